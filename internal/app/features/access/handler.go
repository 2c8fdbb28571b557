// internal/app/features/access/handler.go
package access

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	errorsfeature "github.com/dalemusser/gatehub/internal/app/features/errors"
	"github.com/dalemusser/gatehub/internal/app/system/access"
	"github.com/dalemusser/gatehub/internal/app/system/auditlog"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/qrtoken"
	"github.com/dalemusser/gatehub/internal/app/system/ratelimit"
	"github.com/dalemusser/gatehub/internal/app/system/sanitize"
	"github.com/dalemusser/gatehub/internal/app/system/timeouts"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the gate endpoints: authorize a scan or typed code, and
// record manual walk-in entries.
type Handler struct {
	Service *access.Service
	Codec   *qrtoken.Codec
	Limiter *ratelimit.ScanLimiter
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(svc *access.Service, codec *qrtoken.Codec, limiter *ratelimit.ScanLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Service: svc,
		Codec:   codec,
		Limiter: limiter,
		Audit:   audit,
		Log:     logger,
	}
}

func actorFrom(u *auth.SessionUser) access.Actor {
	return access.Actor{
		UserID:         u.UserID,
		MembershipID:   u.MembershipID,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		DeviceID:       u.DeviceID,
	}
}

// authorizeRequest is the body of POST /access/authorize. Exactly one of
// qr_token and code is set.
type authorizeRequest struct {
	QRToken   string `json:"qr_token,omitempty"`
	Code      string `json:"code,omitempty"`
	Direction string `json:"direction"`
}

// authorizeResponse reports the gate decision. A denial is a successful
// request with granted=false, not an HTTP error.
type authorizeResponse struct {
	Granted    bool        `json:"granted"`
	Reason     string      `json:"reason,omitempty"`
	Invitation *invitation `json:"invitation,omitempty"`
}

// invitation is the wire shape shown to the attendant after a decision.
type invitation struct {
	ID          string `json:"id"`
	VisitorName string `json:"visitor_name"`
	UnitID      string `json:"unit_id"`
	AccessType  string `json:"access_type"`
	Status      string `json:"status"`
	CurrentUses int    `json:"current_uses"`
	MaxUses     int    `json:"max_uses,omitempty"`
}

func wireInvitation(inv models.Invitation) *invitation {
	return &invitation{
		ID:          inv.ID.Hex(),
		VisitorName: inv.VisitorName,
		UnitID:      inv.UnitID.Hex(),
		AccessType:  string(inv.AccessType),
		Status:      string(inv.Status),
		CurrentUses: inv.CurrentUses,
		MaxUses:     inv.MaxUses,
	}
}

// HandleAuthorize handles POST /access/authorize.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.BadRequest(w, "invalid JSON body")
		return
	}
	if (req.QRToken == "") == (req.Code == "") {
		errorsfeature.BadRequest(w, "exactly one of qr_token and code is required")
		return
	}
	if !models.IsValidDirection(req.Direction) {
		errorsfeature.BadRequest(w, "direction must be entry or exit")
		return
	}

	actorKey := u.UserID.Hex()
	if h.Limiter != nil && h.Limiter.Blocked(r, actorKey) {
		errorsfeature.Error(w, http.StatusTooManyRequests, "too many denied attempts, slow down")
		return
	}

	var (
		ref    access.Ref
		method models.Method
	)
	if req.QRToken != "" {
		method = models.MethodQR
		id, err := h.Codec.Decode(req.QRToken)
		if err != nil {
			// A token that fails authentication is indistinguishable from
			// one that never existed.
			h.recordDenied(r, u, nil, method, "invalid_token")
			errorsfeature.Error(w, http.StatusNotFound, "not found")
			return
		}
		ref = access.Ref{InvitationID: id}
	} else {
		method = models.MethodCode
		ref = access.Ref{Code: req.Code}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "access authorize")
	defer cancel()

	res, err := h.Service.Authorize(ctx, actorFrom(u), access.AuthorizeRequest{
		Ref:       ref,
		Direction: models.Direction(req.Direction),
		Method:    method,
	})
	if err != nil {
		if stderrors.Is(err, access.ErrNotFound) {
			h.recordDenied(r, u, nil, method, "not_found")
		}
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	if !res.Granted {
		h.recordDenied(r, u, &res.Invitation.ID, method, string(res.Reason))
		errorsfeature.JSON(w, http.StatusOK, authorizeResponse{
			Reason:     string(res.Reason),
			Invitation: wireInvitation(res.Invitation),
		})
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetActor(actorKey)
	}
	h.Audit.AccessGranted(r.Context(), r, res.Invitation.OrganizationID, res.Invitation.ID, actorID(u), u.DeviceID, string(method))

	errorsfeature.JSON(w, http.StatusOK, authorizeResponse{
		Granted:    true,
		Invitation: wireInvitation(res.Invitation),
	})
}

// recordDenied counts the attempt against the scan limiter and audits it.
func (h *Handler) recordDenied(r *http.Request, u *auth.SessionUser, invitationID *primitive.ObjectID, method models.Method, reason string) {
	if h.Limiter != nil {
		h.Limiter.Record(r, u.UserID.Hex())
	}
	h.Audit.AccessDenied(r.Context(), r, u.OrganizationID, invitationID, actorID(u), u.DeviceID, string(method), reason)
}

// actorID returns the human actor id, nil for kiosks (whose identity is the
// device id).
func actorID(u *auth.SessionUser) *primitive.ObjectID {
	if u.DeviceID != nil {
		return nil
	}
	id := u.UserID
	return &id
}

// manualEntryRequest is the body of POST /access/manual-entry.
type manualEntryRequest struct {
	VisitorName string `json:"visitor_name"`
	UnitID      string `json:"unit_id,omitempty"`
	Direction   string `json:"direction"`
}

// HandleManualEntry handles POST /access/manual-entry.
func (h *Handler) HandleManualEntry(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req manualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.BadRequest(w, "invalid JSON body")
		return
	}

	name := sanitize.Name(req.VisitorName)
	if name == "" {
		errorsfeature.BadRequest(w, "visitor_name is required")
		return
	}
	if !models.IsValidDirection(req.Direction) {
		errorsfeature.BadRequest(w, "direction must be entry or exit")
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "manual entry")
	defer cancel()

	entry, err := h.Service.ManualEntry(ctx, actorFrom(u), access.ManualEntryRequest{
		VisitorName: name,
		UnitID:      unitID,
		Direction:   models.Direction(req.Direction),
	})
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	h.Audit.ManualEntry(r.Context(), r, u.OrganizationID, u.UserID, name)
	errorsfeature.JSON(w, http.StatusCreated, entry)
}
