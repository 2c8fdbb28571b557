// internal/app/features/accesslog/routes.go
package accesslog

import (
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireCapability(capability.AccessLogView)).Get("/", h.HandleList)
	return r
}
