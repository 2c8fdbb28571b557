// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.With(sm.RequireCapability(capability.InvitationsCreate)).Post("/", h.HandleCreate)
		pr.With(sm.RequireCapability(capability.InvitationsView)).Get("/", h.HandleList)
		pr.With(sm.RequireCapability(capability.InvitationsView)).Get("/{id}", h.HandleView)
		pr.With(sm.RequireCapability(capability.InvitationsCancel)).Post("/{id}/cancel", h.HandleCancel)
	})

	return r
}
