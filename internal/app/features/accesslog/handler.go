// internal/app/features/accesslog/handler.go
package accesslog

import (
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/gatehub/internal/app/features/errors"
	accesslogstore "github.com/dalemusser/gatehub/internal/app/store/accesslog"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/timeouts"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the read-only gate history.
type Handler struct {
	Store *accesslogstore.Store
	Log   *zap.Logger
}

func NewHandler(store *accesslogstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Store: store, Log: logger}
}

// HandleList handles GET /access-log. Results are always scoped to the
// actor's organization; unit, direction, method, and time-range filters
// come from query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := accesslogstore.QueryFilter{
		OrganizationID: u.OrganizationID,
		Limit:          50,
	}

	q := r.URL.Query()
	if unitHex := q.Get("unit_id"); unitHex != "" {
		unitID, err := primitive.ObjectIDFromHex(unitHex)
		if err != nil {
			errorsfeature.BadRequest(w, "invalid unit_id")
			return
		}
		filter.UnitID = &unitID
	}
	if invHex := q.Get("invitation_id"); invHex != "" {
		invID, err := primitive.ObjectIDFromHex(invHex)
		if err != nil {
			errorsfeature.BadRequest(w, "invalid invitation_id")
			return
		}
		filter.InvitationID = &invID
	}
	if d := q.Get("direction"); d != "" {
		if !models.IsValidDirection(d) {
			errorsfeature.BadRequest(w, "direction must be entry or exit")
			return
		}
		filter.Direction = models.Direction(d)
	}
	if m := q.Get("method"); m != "" {
		if !models.IsValidMethod(m) {
			errorsfeature.BadRequest(w, "method must be qr, code, or manual")
			return
		}
		filter.Method = models.Method(m)
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorsfeature.BadRequest(w, "start must be RFC 3339")
			return
		}
		filter.StartTime = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errorsfeature.BadRequest(w, "end must be RFC 3339")
			return
		}
		filter.EndTime = &t
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list access log")
	defer cancel()

	entries, err := h.Store.List(ctx, filter)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}
	total, err := h.Store.Count(ctx, filter)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	errorsfeature.JSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}
