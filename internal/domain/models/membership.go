// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names are lowercase strings; the capability package maps each role to
// its fixed capability set. Unknown roles resolve to no capabilities.
const (
	RoleResident   = "resident"
	RoleGuard      = "guard"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleKiosk      = "kiosk" // automated gate device
)

// IsValidRole reports whether role is one of the known role names.
func IsValidRole(role string) bool {
	switch role {
	case RoleResident, RoleGuard, RoleAdmin, RoleSuperAdmin, RoleKiosk:
		return true
	}
	return false
}

// Membership binds a user to an organization, a unit, and a role. A resident
// owns the invitations issued under their membership; guards and admins act
// across the organization.
//
// UnitID is optional for guards and admins, whose duties are org-wide.
type Membership struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID  `bson:"user_id" json:"user_id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	UnitID         *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"`
	Role           string              `bson:"role" json:"role"`
	Status         string              `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
