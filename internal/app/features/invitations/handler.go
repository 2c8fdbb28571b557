// internal/app/features/invitations/handler.go
package invitations

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/gatehub/internal/app/features/errors"
	"github.com/dalemusser/gatehub/internal/app/policy/invitationpolicy"
	invitationstore "github.com/dalemusser/gatehub/internal/app/store/invitations"
	"github.com/dalemusser/gatehub/internal/app/system/access"
	"github.com/dalemusser/gatehub/internal/app/system/auditlog"
	"github.com/dalemusser/gatehub/internal/app/system/auth"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"github.com/dalemusser/gatehub/internal/app/system/qrtoken"
	"github.com/dalemusser/gatehub/internal/app/system/redemption"
	"github.com/dalemusser/gatehub/internal/app/system/sanitize"
	"github.com/dalemusser/gatehub/internal/app/system/timeouts"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves invitation management: residents issue and revoke passes,
// guards and admins browse them.
type Handler struct {
	Store   *invitationstore.Store
	Service *access.Service
	Codec   *qrtoken.Codec
	Hub     *notify.Hub
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(store *invitationstore.Store, svc *access.Service, codec *qrtoken.Codec, hub *notify.Hub, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:   store,
		Service: svc,
		Codec:   codec,
		Hub:     hub,
		Audit:   audit,
		Log:     logger,
	}
}

// createRequest is the body of POST /invitations.
type createRequest struct {
	VisitorName  string     `json:"visitor_name"`
	VisitorPhone string     `json:"visitor_phone,omitempty"`
	VisitorEmail string     `json:"visitor_email,omitempty"`
	AccessType   string     `json:"access_type"`
	MaxUses      int        `json:"max_uses,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	UnitID       string     `json:"unit_id,omitempty"` // admins only; residents use their own unit
}

// wireInvitation is the full record as returned to callers allowed to see
// it. EffectiveStatus is derived at read time; the stored status may lag.
type wireInvitation struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	QRToken         string     `json:"qr_token"`
	VisitorName     string     `json:"visitor_name"`
	VisitorPhone    string     `json:"visitor_phone,omitempty"`
	VisitorEmail    string     `json:"visitor_email,omitempty"`
	AccessType      string     `json:"access_type"`
	MaxUses         int        `json:"max_uses,omitempty"`
	CurrentUses     int        `json:"current_uses"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	Status          string     `json:"status"`
	EffectiveStatus string     `json:"effective_status"`
	UnitID          string     `json:"unit_id"`
	CreatedAt       time.Time  `json:"created_at"`
}

func wire(inv models.Invitation, now time.Time) wireInvitation {
	return wireInvitation{
		ID:              inv.ID.Hex(),
		Code:            inv.Code,
		QRToken:         inv.QRToken,
		VisitorName:     inv.VisitorName,
		VisitorPhone:    inv.VisitorPhone,
		VisitorEmail:    inv.VisitorEmail,
		AccessType:      string(inv.AccessType),
		MaxUses:         inv.MaxUses,
		CurrentUses:     inv.CurrentUses,
		ValidFrom:       inv.ValidFrom,
		ValidUntil:      inv.ValidUntil,
		Status:          string(inv.Status),
		EffectiveStatus: string(redemption.EffectiveStatus(inv, now)),
		UnitID:          inv.UnitID.Hex(),
		CreatedAt:       inv.CreatedAt,
	}
}

// HandleCreate handles POST /invitations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorsfeature.BadRequest(w, "invalid JSON body")
		return
	}

	name := sanitize.Name(req.VisitorName)
	if name == "" {
		errorsfeature.BadRequest(w, "visitor_name is required")
		return
	}
	if !models.IsValidAccessType(req.AccessType) {
		errorsfeature.BadRequest(w, "access_type must be single, multiple, permanent, or temporary")
		return
	}
	accessType := models.AccessType(req.AccessType)

	switch accessType {
	case models.AccessMultiple:
		if req.MaxUses < 1 {
			errorsfeature.BadRequest(w, "max_uses must be at least 1 for multiple access")
			return
		}
	case models.AccessTemporary:
		if req.ValidUntil == nil {
			errorsfeature.BadRequest(w, "valid_until is required for temporary access")
			return
		}
	default:
		// single and permanent carry no quota of their own
		req.MaxUses = 0
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && req.ValidUntil.Before(*req.ValidFrom) {
		errorsfeature.BadRequest(w, "valid_until must not precede valid_from")
		return
	}

	unitID, err := h.resolveUnit(u, req.UnitID)
	if err != nil {
		errorsfeature.BadRequest(w, err.Error())
		return
	}

	// The QR token must encode the id, so the id is assigned before insert.
	id := primitive.NewObjectID()
	token, err := h.Codec.Encode(id)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create invitation")
	defer cancel()

	inv, err := h.Store.Create(ctx, models.Invitation{
		ID:             id,
		OrganizationID: u.OrganizationID,
		UnitID:         unitID,
		MembershipID:   u.MembershipID,
		QRToken:        token,
		VisitorName:    name,
		VisitorPhone:   sanitize.Text(req.VisitorPhone),
		VisitorEmail:   sanitize.Text(req.VisitorEmail),
		AccessType:     accessType,
		MaxUses:        req.MaxUses,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
	})
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	h.Audit.InvitationCreated(r.Context(), r, inv.OrganizationID, inv.ID, u.UserID, string(inv.AccessType))
	h.Hub.Publish(notify.Event{
		Type:           notify.EventInvitationCreated,
		OrganizationID: inv.OrganizationID.Hex(),
		UnitID:         inv.UnitID.Hex(),
		InvitationID:   inv.ID.Hex(),
		Status:         string(inv.Status),
	})

	errorsfeature.JSON(w, http.StatusCreated, wire(inv, time.Now().UTC()))
}

// resolveUnit picks the unit an invitation belongs to. Residents always use
// their own unit; only roles with org-wide invitation view may create for
// an arbitrary unit.
func (h *Handler) resolveUnit(u *auth.SessionUser, requested string) (primitive.ObjectID, error) {
	if requested == "" {
		if u.UnitID == nil {
			return primitive.NilObjectID, stderrors.New("unit_id is required for actors without a unit")
		}
		return *u.UnitID, nil
	}

	id, err := primitive.ObjectIDFromHex(requested)
	if err != nil {
		return primitive.NilObjectID, stderrors.New("invalid unit_id")
	}
	if u.UnitID != nil && *u.UnitID != id {
		return primitive.NilObjectID, stderrors.New("residents may only invite to their own unit")
	}
	return id, nil
}

// HandleList handles GET /invitations. Residents see their own; roles with
// the org-wide view capability see the organization's, with optional
// status, unit_id, limit, and offset query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := invitationstore.ListFilter{
		Limit:  50,
		Offset: 0,
	}
	if u.Caps().Has(capability.InvitationsView) && u.Role != models.RoleResident {
		filter.OrganizationID = u.OrganizationID
	} else {
		filter.MembershipID = u.MembershipID
	}

	q := r.URL.Query()
	if st := q.Get("status"); st != "" {
		filter.Status = models.InvitationStatus(st)
	}
	if unitHex := q.Get("unit_id"); unitHex != "" {
		unitID, err := primitive.ObjectIDFromHex(unitHex)
		if err != nil {
			errorsfeature.BadRequest(w, "invalid unit_id")
			return
		}
		filter.UnitID = unitID
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list invitations")
	defer cancel()

	invs, err := h.Store.List(ctx, filter)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	now := time.Now().UTC()
	out := make([]wireInvitation, 0, len(invs))
	for _, inv := range invs {
		out = append(out, wire(inv, now))
	}
	errorsfeature.JSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// HandleView handles GET /invitations/{id}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Error(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "view invitation")
	defer cancel()

	inv, err := h.Store.FindByID(ctx, id)
	if stderrors.Is(err, invitationstore.ErrNotFound) {
		errorsfeature.Error(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}
	if !invitationpolicy.CanView(membershipFrom(u), inv) {
		// Hidden records and missing records look identical.
		errorsfeature.Error(w, http.StatusNotFound, "not found")
		return
	}

	errorsfeature.JSON(w, http.StatusOK, wire(inv, time.Now().UTC()))
}

// HandleCancel handles POST /invitations/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		errorsfeature.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		errorsfeature.Error(w, http.StatusNotFound, "not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "cancel invitation")
	defer cancel()

	actor := access.Actor{
		UserID:         u.UserID,
		MembershipID:   u.MembershipID,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		DeviceID:       u.DeviceID,
	}
	inv, err := h.Service.Cancel(ctx, actor, membershipFrom(u), id)
	if err != nil {
		errorsfeature.FromService(w, h.Log, err)
		return
	}

	h.Audit.InvitationCancelled(r.Context(), r, inv.OrganizationID, inv.ID, u.UserID)
	errorsfeature.JSON(w, http.StatusOK, wire(inv, time.Now().UTC()))
}

// membershipFrom reconstructs the policy-relevant membership fields from
// the session principal.
func membershipFrom(u *auth.SessionUser) models.Membership {
	return models.Membership{
		ID:             u.MembershipID,
		UserID:         u.UserID,
		OrganizationID: u.OrganizationID,
		UnitID:         u.UnitID,
		Role:           u.Role,
	}
}
