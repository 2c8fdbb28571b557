// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessType controls how many times an invitation may be redeemed.
type AccessType string

const (
	AccessSingle    AccessType = "single"    // exactly one redemption
	AccessMultiple  AccessType = "multiple"  // up to MaxUses redemptions
	AccessPermanent AccessType = "permanent" // unlimited, usually unbounded in time
	AccessTemporary AccessType = "temporary" // unlimited within the validity window
)

// IsValidAccessType reports whether s is a known access type.
func IsValidAccessType(s string) bool {
	switch AccessType(s) {
	case AccessSingle, AccessMultiple, AccessPermanent, AccessTemporary:
		return true
	}
	return false
}

// InvitationStatus is the persisted lifecycle state of an invitation.
//
// Status is a committed snapshot, not the source of truth for time-based
// expiry: a record can still read "active" after its ValidUntil has passed.
// Validity is always recomputed from the bounds and usage counters at read
// time (see internal/app/system/redemption).
type InvitationStatus string

const (
	InvitationActive    InvitationStatus = "active"
	InvitationUsed      InvitationStatus = "used"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Terminal reports whether the stored status is one that no redemption or
// cancellation may move the invitation out of.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationUsed || s == InvitationExpired || s == InvitationCancelled
}

// Invitation is a visitor-access grant with a redeemable short code and a
// usage policy. Invitations are never deleted, only terminally transitioned.
//
// NOTE:
//   - Status and CurrentUses are only mutated together, through the
//     invitation store's ConditionalTransition (compare-and-swap).
//   - Visitor phone/email are informational only and play no part in
//     authorization decisions.
type Invitation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	UnitID         primitive.ObjectID `bson:"unit_id" json:"unit_id"`
	MembershipID   primitive.ObjectID `bson:"membership_id" json:"membership_id"`

	// Code is the fixed-length human-enterable identifier, stored uppercase.
	// QRToken is a signed long-form encoding of the same invitation, carried
	// in the QR image; both resolve to this record.
	Code    string `bson:"code" json:"code"`
	QRToken string `bson:"qr_token" json:"qr_token"`

	VisitorName   string `bson:"visitor_name" json:"visitor_name"`
	VisitorNameCI string `bson:"visitor_name_ci" json:"-"` // lowercase, diacritics-stripped
	VisitorPhone  string `bson:"visitor_phone,omitempty" json:"visitor_phone,omitempty"`
	VisitorEmail  string `bson:"visitor_email,omitempty" json:"visitor_email,omitempty"`

	AccessType  AccessType `bson:"access_type" json:"access_type"`
	MaxUses     int        `bson:"max_uses,omitempty" json:"max_uses,omitempty"` // meaningful only for multiple
	CurrentUses int        `bson:"current_uses" json:"current_uses"`             // monotonically non-decreasing

	ValidFrom  *time.Time `bson:"valid_from,omitempty" json:"valid_from,omitempty"`
	ValidUntil *time.Time `bson:"valid_until,omitempty" json:"valid_until,omitempty"` // nil means unbounded

	Status InvitationStatus `bson:"status" json:"status"`

	CancelledAt *time.Time          `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancelledBy *primitive.ObjectID `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
