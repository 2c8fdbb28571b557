// internal/app/features/events/routes.go
package events

import (
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/ws", h.ServeWS)
	return r
}
