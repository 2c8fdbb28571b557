// internal/app/system/redemption/redemption.go
// Package redemption decides whether an invitation is redeemable at a given
// instant and, when it is, what the record's next committed state must be.
//
// Evaluate is a pure function: it never reads the clock, never touches
// storage, and trusts the persisted status only for terminal outcomes that
// were explicitly committed (cancelled, used). Time-based outcomes are always
// recomputed from the validity bounds, because a record can sit "stale
// active" in the database long after its window has passed.
package redemption

import (
	"time"

	"github.com/dalemusser/gatehub/internal/domain/models"
)

// Reason is the machine-readable explanation for a rejection. Reasons are
// surfaced verbatim to callers; they are result values, not errors.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonCancelled      Reason = "cancelled"
	ReasonAlreadyUsed    Reason = "already_used"
	ReasonExpired        Reason = "expired"
	ReasonNotYetValid    Reason = "not_yet_valid"
	ReasonQuotaExhausted Reason = "quota_exhausted"
)

// NextState is the committed state a winning redemption must transition the
// record to. It pairs with the previously observed (status, current_uses) in
// the store's compare-and-swap.
type NextState struct {
	Status      models.InvitationStatus
	CurrentUses int
}

// Decision is the outcome of evaluating one invitation at one instant.
// Next is meaningful only when Allowed is true.
type Decision struct {
	Allowed bool
	Reason  Reason
	Next    NextState
}

// Evaluate runs the ordered validity checks against inv as of now.
//
// The order is deliberate and load-bearing — first match wins:
//  1. cancelled wins over everything, including expiry
//  2. a committed "used" is terminal for all but multiple-use invitations
//  3. expiry is recomputed from ValidUntil even if status still reads active
//  4. not-yet-valid from ValidFrom
//  5. quota exhaustion for multiple-use
//  6. otherwise redeemable; compute the next state
func Evaluate(inv models.Invitation, now time.Time) Decision {
	if inv.Status == models.InvitationCancelled {
		return Decision{Reason: ReasonCancelled}
	}
	if inv.Status == models.InvitationUsed && inv.AccessType != models.AccessMultiple {
		return Decision{Reason: ReasonAlreadyUsed}
	}
	if inv.ValidUntil != nil && now.After(*inv.ValidUntil) {
		return Decision{Reason: ReasonExpired}
	}
	if inv.ValidFrom != nil && now.Before(*inv.ValidFrom) {
		return Decision{Reason: ReasonNotYetValid}
	}
	if inv.AccessType == models.AccessMultiple && inv.CurrentUses >= inv.MaxUses {
		return Decision{Reason: ReasonQuotaExhausted}
	}

	next := NextState{Status: models.InvitationActive, CurrentUses: inv.CurrentUses + 1}
	switch inv.AccessType {
	case models.AccessSingle:
		next = NextState{Status: models.InvitationUsed, CurrentUses: 1}
	case models.AccessMultiple:
		if next.CurrentUses >= inv.MaxUses {
			next.Status = models.InvitationUsed
		}
	}
	return Decision{Allowed: true, Next: next}
}

// EffectiveStatus derives the status an invitation should display as of now,
// without writing anything. It reports expired for stale-active records whose
// window has passed, and used for multiple-use records that exhausted their
// quota without the final commit flipping the status.
func EffectiveStatus(inv models.Invitation, now time.Time) models.InvitationStatus {
	if inv.Status == models.InvitationCancelled || inv.Status == models.InvitationUsed {
		return inv.Status
	}
	if inv.ValidUntil != nil && now.After(*inv.ValidUntil) {
		return models.InvitationExpired
	}
	if inv.AccessType == models.AccessMultiple && inv.CurrentUses >= inv.MaxUses {
		return models.InvitationUsed
	}
	return inv.Status
}

// TerminalReason maps a record's state to the rejection reason a caller
// should see when the record cannot be redeemed. Used to surface the actual
// final state after a lost conditional update. Falls back to already_used
// when the record still evaluates as redeemable, which matches the contract
// that exactly one concurrent caller observes a grant.
func TerminalReason(inv models.Invitation, now time.Time) Reason {
	d := Evaluate(inv, now)
	if d.Allowed {
		return ReasonAlreadyUsed
	}
	return d.Reason
}
