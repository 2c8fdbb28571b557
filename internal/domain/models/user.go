// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account known to the community platform. Authentication happens
// in the community's main application; this service only consumes the signed
// session it issues and re-fetches the user to pick up role and status
// changes immediately.
//
// NOTE:
//   - Org/unit/role bindings are not embedded on User.
//     Use the memberships collection to discover a user's memberships.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
