// internal/app/features/devices/routes.go
package devices

import (
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireCapability(capability.DevicesManage))

		pr.Post("/", h.HandleRegister)
		pr.Get("/", h.HandleList)
		pr.Post("/{id}/disable", h.HandleDisable)
	})

	return r
}
