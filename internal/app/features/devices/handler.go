// internal/app/features/devices/handler.go
package devices

import (
	"encoding/json"
	"net/http"

	errorsfeature "github.com/dalemusser/gatehub/internal/app/features/errors"
	devicestore "github.com/dalemusser/gatehub/internal/app/store/devices"
	"github.com/dalemusser/gatehub/internal/app/system/auditlog"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/sanitize"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provisions and manages kiosk devices for an organization.
type Handler struct {
	Store *devicestore.Store
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(store *devicestore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Audit: audit, Log: logger}
}

type registerRequest struct {
	Name   string `json:"name"`
	UnitID string `json:"unit_id,omitempty"`
}

// HandleRegister handles POST /devices. The response carries the plaintext
// bearer key; it is never retrievable again.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.BadRequest(w, "invalid request body")
		return
	}

	name := sanitize.Name(req.Name)
	if name == "" {
		errorsfeature.BadRequest(w, "name is required")
		return
	}

	var unitID *primitive.ObjectID
	if req.UnitID != "" {
		id, err := primitive.ObjectIDFromHex(req.UnitID)
		if err != nil {
			errorsfeature.BadRequest(w, "invalid unit_id")
			return
		}
		unitID = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register device")
	defer cancel()

	dev, key, err := h.Store.Register(ctx, u.OrganizationID, unitID, name)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	h.Audit.DeviceRegistered(ctx, r, u.OrganizationID, u.UserID, dev.ID, dev.Name)

	errorsfeature.JSON(w, http.StatusCreated, map[string]any{
		"device": dev,
		"key":    key,
	})
}

// HandleList handles GET /devices.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list devices")
	defer cancel()

	devs, err := h.Store.ListByOrg(ctx, u.OrganizationID)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	errorsfeature.JSON(w, http.StatusOK, map[string]any{"devices": devs})
}

// HandleDisable handles POST /devices/{id}/disable. Disabling takes effect on
// the device's next request; there is no grace period.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.BadRequest(w, "invalid device id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "disable device")
	defer cancel()

	// Org scoping: a device belonging to another organization is not found.
	dev, err := h.Store.FindByID(ctx, id)
	if err != nil || dev.OrganizationID != u.OrganizationID {
		errorsfeature.Error(w, http.StatusNotFound, "device not found")
		return
	}

	if err := h.Store.SetStatus(ctx, id, status.Disabled); err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	h.Audit.DeviceDisabled(ctx, r, u.OrganizationID, u.UserID, id)

	errorsfeature.JSON(w, http.StatusOK, map[string]any{"status": status.Disabled})
}
