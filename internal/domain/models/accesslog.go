// internal/domain/models/accesslog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Direction records whether the visitor was passing into or out of the
// community.
type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// IsValidDirection reports whether s is a known direction.
func IsValidDirection(s string) bool {
	return Direction(s) == DirectionEntry || Direction(s) == DirectionExit
}

// Method is how the attendant resolved the visitor's access.
type Method string

const (
	MethodQR     Method = "qr"     // scanned QR payload
	MethodCode   Method = "code"   // typed short code
	MethodManual Method = "manual" // attendant granted entry without an invitation
)

// IsValidMethod reports whether s is a known access method.
func IsValidMethod(s string) bool {
	switch Method(s) {
	case MethodQR, MethodCode, MethodManual:
		return true
	}
	return false
}

// AccessLogEntry is one immutable row in the gate's audit trail. Entries are
// append-only: created exactly once per successful authorization (or manual
// grant), never updated, never deleted.
//
// InvitationID is nil for manual entries, which are granted by an attendant
// without a backing invitation.
type AccessLogEntry struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	InvitationID   *primitive.ObjectID `bson:"invitation_id,omitempty" json:"invitation_id,omitempty"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	UnitID         *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`

	VisitorName string `bson:"visitor_name" json:"visitor_name"`

	// ActorID identifies who granted the access: a guard's user id or a
	// kiosk device id.
	ActorID   primitive.ObjectID `bson:"actor_id" json:"actor_id"`
	ActorRole string             `bson:"actor_role" json:"actor_role"`

	Direction Direction `bson:"direction" json:"direction"`
	Method    Method    `bson:"method" json:"method"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
