// internal/domain/models/device.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Device is a registered automated kiosk or attendant station. Devices
// authenticate with a bearer key (stored as a bcrypt hash) and act with the
// kiosk role's capabilities.
type Device struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID  `bson:"organization_id" json:"organization_id"`
	UnitID         *primitive.ObjectID `bson:"unit_id,omitempty" json:"unit_id,omitempty"` // fixed gate location, if any
	Name           string              `bson:"name" json:"name"`
	KeyHash        string              `bson:"key_hash" json:"-"`
	Status         string              `bson:"status" json:"status"`
	LastSeenAt     *time.Time          `bson:"last_seen_at,omitempty" json:"last_seen_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
