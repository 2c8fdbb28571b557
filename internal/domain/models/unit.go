// internal/domain/models/unit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unit is a destination inside an organization: an apartment, office, or
// house number. Invitations always point at a unit so the attendant knows
// where the visitor is headed.
type Unit struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Label          string             `bson:"label" json:"label"` // e.g. "12B", "Tower 2 / 804"
	LabelCI        string             `bson:"label_ci" json:"-"`
	Building       string             `bson:"building,omitempty" json:"building,omitempty"`
	Status         string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
