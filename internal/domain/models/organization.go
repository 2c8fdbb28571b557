// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is a managed community: a residential complex, gated
// neighborhood, or commercial campus. Includes case/diacritic-insensitive
// fields for search/sort.
type Organization struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"-"` // ← always stored
	City     string             `bson:"city" json:"city"`
	CityCI   string             `bson:"city_ci" json:"-"` // ← always stored
	State    string             `bson:"state" json:"state"`
	StateCI  string             `bson:"state_ci" json:"-"` // ← always stored
	TimeZone string             `bson:"time_zone" json:"time_zone"`
	Status   string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
