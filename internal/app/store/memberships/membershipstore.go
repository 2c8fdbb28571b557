// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no membership matches the lookup.
	ErrNotFound = errors.New("membership not found")
	// ErrDuplicateMembership is returned when the user already holds this
	// role in the organization.
	ErrDuplicateMembership = errors.New("user already has this membership")

	errBadRole = errors.New("unknown membership role")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// EnsureIndexes creates the membership indexes. A user may hold at most one
// membership per (organization, role, unit) combination.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "organization_id", Value: 1},
				{Key: "role", Value: 1},
				{Key: "unit_id", Value: 1},
			},
			Options: options.Index().SetName("uniq_membership_user_org_role_unit").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "role", Value: 1},
			},
			Options: options.Index().SetName("idx_membership_org_role"),
		},
		{
			Keys:    bson.D{{Key: "unit_id", Value: 1}},
			Options: options.Index().SetName("idx_membership_unit"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a membership after validating the role.
func (s *Store) Create(ctx context.Context, m models.Membership) (models.Membership, error) {
	if !models.IsValidRole(m.Role) {
		return models.Membership{}, errBadRole
	}

	now := time.Now().UTC()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Status == "" {
		m.Status = status.Active
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// FindByID loads one membership by its id.
func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, ErrNotFound
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// ListByUser returns all active memberships a user holds, across
// organizations. Session resolution uses this to pick the acting membership.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "status": status.Active})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// FindActiveByUserAndOrg resolves the active membership a user holds in one
// organization. When a user holds several (rare, but allowed for admins who
// also reside in the community), the first by role precedence is undefined
// and callers pass an explicit membership id instead.
func (s *Store) FindActiveByUserAndOrg(ctx context.Context, userID, orgID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{
		"user_id":         userID,
		"organization_id": orgID,
		"status":          status.Active,
	}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, ErrNotFound
	}
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// ListByOrg returns memberships in an organization, optionally filtered by
// role.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"organization_id": orgID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.Membership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// SetStatus activates or disables a membership.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, st string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": st, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByOrg returns how many memberships an organization has, optionally
// restricted to one role.
func (s *Store) CountByOrg(ctx context.Context, orgID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"organization_id": orgID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}
