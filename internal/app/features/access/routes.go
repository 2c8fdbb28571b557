// internal/app/features/access/routes.go
package access

import (
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// The service re-checks capabilities; the middleware exists so denied
	// callers never reach the decode path.
	r.With(sm.RequireCapability(capability.AccessScan)).Post("/authorize", h.HandleAuthorize)
	r.With(sm.RequireCapability(capability.AccessManual)).Post("/manual-entry", h.HandleManualEntry)

	return r
}
