// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateOrganization creates a test organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		City:      "Test City",
		CityCI:    text.Fold("Test City"),
		State:     "TS",
		StateCI:   text.Fold("TS"),
		TimeZone:  "America/New_York",
		Status:    status.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("organizations").InsertOne(ctx, org); err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreateUnit creates a test unit inside the given organization.
func (f *Fixtures) CreateUnit(ctx context.Context, orgID primitive.ObjectID, label string) models.Unit {
	f.t.Helper()

	now := time.Now().UTC()
	unit := models.Unit{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Label:          label,
		LabelCI:        text.Fold(label),
		Status:         status.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := f.db.Collection("units").InsertOne(ctx, unit); err != nil {
		f.t.Fatalf("failed to create test unit: %v", err)
	}
	return unit
}

// CreateUser creates a test user.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Status:     status.Active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateMembership binds a user to an organization with the given role.
// unitID may be nil for guards and admins.
func (f *Fixtures) CreateMembership(ctx context.Context, userID, orgID primitive.ObjectID, unitID *primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Membership{
		ID:             primitive.NewObjectID(),
		UserID:         userID,
		OrganizationID: orgID,
		UnitID:         unitID,
		Role:           role,
		Status:         status.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateResident creates a user plus a resident membership for a unit.
func (f *Fixtures) CreateResident(ctx context.Context, name string, orgID, unitID primitive.ObjectID) models.Membership {
	f.t.Helper()
	user := f.CreateUser(ctx, name, uuid.NewString()+"@example.com")
	return f.CreateMembership(ctx, user.ID, orgID, &unitID, models.RoleResident)
}

// CreateGuard creates a user plus an org-wide guard membership.
func (f *Fixtures) CreateGuard(ctx context.Context, name string, orgID primitive.ObjectID) models.Membership {
	f.t.Helper()
	user := f.CreateUser(ctx, name, uuid.NewString()+"@example.com")
	return f.CreateMembership(ctx, user.ID, orgID, nil, models.RoleGuard)
}

// CreateInvitation inserts an invitation directly (bypassing the store) so
// tests can set up arbitrary lifecycle states. mut may be nil.
func (f *Fixtures) CreateInvitation(ctx context.Context, orgID, unitID, membershipID primitive.ObjectID, mut func(*models.Invitation)) models.Invitation {
	f.t.Helper()

	now := time.Now().UTC()
	inv := models.Invitation{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		UnitID:         unitID,
		MembershipID:   membershipID,
		Code:           generateTestCode(),
		QRToken:        uuid.NewString(),
		VisitorName:    "Test Visitor",
		VisitorNameCI:  text.Fold("Test Visitor"),
		AccessType:     models.AccessSingle,
		Status:         models.InvitationActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mut != nil {
		mut(&inv)
	}

	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv
}

// generateTestCode returns a unique-enough 8-char uppercase code for
// fixtures without depending on the invitation store.
func generateTestCode() string {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	id := uuid.New()
	out := make([]byte, 8)
	for i := range out {
		out[i] = alphabet[int(id[i])%len(alphabet)]
	}
	return string(out)
}
