// internal/app/system/access/service.go
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/gatehub/internal/app/policy/invitationpolicy"
	invitationstore "github.com/dalemusser/gatehub/internal/app/store/invitations"
	"github.com/dalemusser/gatehub/internal/app/system/capability"
	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"github.com/dalemusser/gatehub/internal/app/system/redemption"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	// ErrForbidden is returned when the actor lacks the capability for the
	// operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrNotFound is returned when the referenced invitation does not exist
	// or is not visible to the actor's organization.
	ErrNotFound = errors.New("invitation not found")
	// ErrConflict is returned when a cancel lost its race and the record is
	// no longer cancellable.
	ErrConflict = errors.New("invitation state changed concurrently")
)

// InvitationSource is what the service needs from the invitation store.
type InvitationSource interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error)
	FindByCode(ctx context.Context, orgID primitive.ObjectID, code string) (models.Invitation, error)
	FindByQRToken(ctx context.Context, token string) (models.Invitation, error)
	ConditionalTransition(ctx context.Context, id primitive.ObjectID, expected, next invitationstore.State) (bool, error)
	ConditionalCancel(ctx context.Context, id primitive.ObjectID, expected invitationstore.State, by primitive.ObjectID) (bool, error)
}

// LogAppender is what the service needs from the access log store.
type LogAppender interface {
	Append(ctx context.Context, e models.AccessLogEntry) (models.AccessLogEntry, error)
}

// Publisher delivers change events to realtime subscribers.
type Publisher interface {
	Publish(e notify.Event)
}

// Actor is the authenticated principal attempting a gate operation: a
// signed-in membership or a registered kiosk device acting as one.
type Actor struct {
	UserID         primitive.ObjectID
	MembershipID   primitive.ObjectID
	OrganizationID primitive.ObjectID
	Role           string
	DeviceID       *primitive.ObjectID
}

// Caps returns the actor's capability set, derived from the role on every
// call so role changes apply without re-login.
func (a Actor) Caps() capability.Set {
	return capability.ForRole(a.Role)
}

// Ref identifies the invitation being redeemed. Exactly one of the fields
// is set; InvitationID is used after the QR codec has already resolved a
// signed token.
type Ref struct {
	Code         string
	QRToken      string
	InvitationID primitive.ObjectID
}

// AuthorizeRequest is one redemption attempt at the gate.
type AuthorizeRequest struct {
	Ref       Ref
	Direction models.Direction
	Method    models.Method
}

// Result is the outcome of an authorization attempt. Granted results carry
// the log entry that recorded the admission; denied results carry the
// reason.
type Result struct {
	Granted    bool
	Reason     redemption.Reason
	Invitation models.Invitation
	LogEntry   models.AccessLogEntry
}

// Service coordinates redemption: permission check, lifecycle evaluation,
// the conditional state transition, and the post-commit log append and
// event publish, in that order.
type Service struct {
	invitations InvitationSource
	log         LogAppender
	publisher   Publisher
	logger      *zap.Logger
}

// New creates an access Service.
func New(invitations InvitationSource, log LogAppender, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		invitations: invitations,
		log:         log,
		publisher:   publisher,
		logger:      logger,
	}
}

// resolve turns a Ref into an invitation record scoped to the actor's
// organization. Cross-org records come back as ErrNotFound, never as a
// distinguishable error.
func (s *Service) resolve(ctx context.Context, actor Actor, ref Ref) (models.Invitation, error) {
	var (
		inv models.Invitation
		err error
	)
	switch {
	case ref.Code != "":
		inv, err = s.invitations.FindByCode(ctx, actor.OrganizationID, ref.Code)
	case ref.QRToken != "":
		inv, err = s.invitations.FindByQRToken(ctx, ref.QRToken)
	case !ref.InvitationID.IsZero():
		inv, err = s.invitations.FindByID(ctx, ref.InvitationID)
	default:
		return models.Invitation{}, ErrNotFound
	}
	if errors.Is(err, invitationstore.ErrNotFound) {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.OrganizationID != actor.OrganizationID {
		return models.Invitation{}, ErrNotFound
	}
	return inv, nil
}

// Authorize decides one redemption attempt. On concurrent redemption of the
// same invitation, exactly one caller's conditional transition applies; a
// caller that loses re-reads the record once and either wins the retry or
// is denied with the reason the record now carries.
func (s *Service) Authorize(ctx context.Context, actor Actor, req AuthorizeRequest) (Result, error) {
	if !actor.Caps().Has(capability.AccessScan) {
		return Result{}, ErrForbidden
	}
	if !models.IsValidDirection(string(req.Direction)) || !models.IsValidMethod(string(req.Method)) {
		return Result{}, fmt.Errorf("%w: bad direction or method", ErrNotFound)
	}

	inv, err := s.resolve(ctx, actor, req.Ref)
	if err != nil {
		return Result{}, err
	}

	// First attempt, then at most one retry after a lost race.
	for attempt := 0; ; attempt++ {
		now := time.Now().UTC()
		decision := redemption.Evaluate(inv, now)
		if !decision.Allowed {
			return s.denied(ctx, actor, inv, req, decision.Reason), nil
		}

		applied, err := s.invitations.ConditionalTransition(ctx, inv.ID,
			invitationstore.State{Status: inv.Status, CurrentUses: inv.CurrentUses},
			invitationstore.State{Status: decision.Next.Status, CurrentUses: decision.Next.CurrentUses},
		)
		if err != nil {
			return Result{}, err
		}
		if applied {
			inv.Status = decision.Next.Status
			inv.CurrentUses = decision.Next.CurrentUses
			return s.granted(ctx, actor, inv, req)
		}

		// Lost the race: someone else transitioned the record between our
		// read and our write. Re-read and re-evaluate exactly once.
		inv, err = s.invitations.FindByID(ctx, inv.ID)
		if errors.Is(err, invitationstore.ErrNotFound) {
			return Result{}, ErrNotFound
		}
		if err != nil {
			return Result{}, err
		}
		if attempt >= 1 {
			reason := redemption.TerminalReason(inv, time.Now().UTC())
			return s.denied(ctx, actor, inv, req, reason), nil
		}
	}
}

// granted appends the log entry and publishes the change event. The state
// transition has already committed; a log failure here is surfaced as an
// error but does not (and cannot) undo the admission.
func (s *Service) granted(ctx context.Context, actor Actor, inv models.Invitation, req AuthorizeRequest) (Result, error) {
	entry, err := s.log.Append(ctx, models.AccessLogEntry{
		InvitationID:   &inv.ID,
		OrganizationID: inv.OrganizationID,
		UnitID:         &inv.UnitID,
		VisitorName:    inv.VisitorName,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Direction:      req.Direction,
		Method:         req.Method,
	})
	if err != nil {
		s.logger.Error("access granted but log append failed",
			zap.Error(err),
			zap.String("invitation_id", inv.ID.Hex()),
		)
		return Result{}, fmt.Errorf("append access log: %w", err)
	}

	s.publisher.Publish(notify.Event{
		Type:           notify.EventInvitationRedeemed,
		OrganizationID: inv.OrganizationID.Hex(),
		UnitID:         inv.UnitID.Hex(),
		InvitationID:   inv.ID.Hex(),
		Status:         string(inv.Status),
	})

	return Result{Granted: true, Invitation: inv, LogEntry: entry}, nil
}

// denied publishes the denial for realtime dashboards but appends nothing
// to the access log: the log records admissions, not attempts.
func (s *Service) denied(ctx context.Context, actor Actor, inv models.Invitation, req AuthorizeRequest, reason redemption.Reason) Result {
	s.publisher.Publish(notify.Event{
		Type:           notify.EventAccessDenied,
		OrganizationID: inv.OrganizationID.Hex(),
		UnitID:         inv.UnitID.Hex(),
		InvitationID:   inv.ID.Hex(),
		Reason:         string(reason),
	})
	return Result{Granted: false, Reason: reason, Invitation: inv}
}

// ManualEntryRequest records a walk-in visitor with no invitation.
type ManualEntryRequest struct {
	VisitorName string
	UnitID      *primitive.ObjectID
	Direction   models.Direction
}

// ManualEntry appends a manual log entry. There is no invitation and no
// state to transition, so this is a plain append plus publish.
func (s *Service) ManualEntry(ctx context.Context, actor Actor, req ManualEntryRequest) (models.AccessLogEntry, error) {
	if !actor.Caps().Has(capability.AccessManual) {
		return models.AccessLogEntry{}, ErrForbidden
	}
	if req.VisitorName == "" {
		return models.AccessLogEntry{}, errors.New("visitor name required")
	}
	if !models.IsValidDirection(string(req.Direction)) {
		return models.AccessLogEntry{}, errors.New("bad direction")
	}

	entry, err := s.log.Append(ctx, models.AccessLogEntry{
		OrganizationID: actor.OrganizationID,
		UnitID:         req.UnitID,
		VisitorName:    req.VisitorName,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		Direction:      req.Direction,
		Method:         models.MethodManual,
	})
	if err != nil {
		return models.AccessLogEntry{}, fmt.Errorf("append access log: %w", err)
	}

	unitHex := ""
	if req.UnitID != nil {
		unitHex = req.UnitID.Hex()
	}
	s.publisher.Publish(notify.Event{
		Type:           notify.EventManualEntry,
		OrganizationID: actor.OrganizationID.Hex(),
		UnitID:         unitHex,
	})
	return entry, nil
}

// Cancel revokes an invitation. The same conditional-update discipline as
// Authorize applies: cancellation only lands on the exact state the actor
// observed, so it cannot erase a concurrent redemption's counter update.
func (s *Service) Cancel(ctx context.Context, actor Actor, membership models.Membership, invitationID primitive.ObjectID) (models.Invitation, error) {
	if !actor.Caps().Has(capability.InvitationsCancel) {
		return models.Invitation{}, ErrForbidden
	}

	inv, err := s.invitations.FindByID(ctx, invitationID)
	if errors.Is(err, invitationstore.ErrNotFound) {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	if inv.OrganizationID != actor.OrganizationID {
		return models.Invitation{}, ErrNotFound
	}
	if !invitationpolicy.CanCancel(membership, inv) {
		return models.Invitation{}, ErrForbidden
	}

	for attempt := 0; ; attempt++ {
		if inv.Status.Terminal() {
			return models.Invitation{}, ErrConflict
		}

		applied, err := s.invitations.ConditionalCancel(ctx, inv.ID,
			invitationstore.State{Status: inv.Status, CurrentUses: inv.CurrentUses},
			actor.UserID,
		)
		if err != nil {
			return models.Invitation{}, err
		}
		if applied {
			inv.Status = models.InvitationCancelled
			s.publisher.Publish(notify.Event{
				Type:           notify.EventInvitationCancelled,
				OrganizationID: inv.OrganizationID.Hex(),
				UnitID:         inv.UnitID.Hex(),
				InvitationID:   inv.ID.Hex(),
				Status:         string(models.InvitationCancelled),
			})
			return inv, nil
		}

		inv, err = s.invitations.FindByID(ctx, inv.ID)
		if errors.Is(err, invitationstore.ErrNotFound) {
			return models.Invitation{}, ErrNotFound
		}
		if err != nil {
			return models.Invitation{}, err
		}
		if attempt >= 1 {
			return models.Invitation{}, ErrConflict
		}
	}
}
