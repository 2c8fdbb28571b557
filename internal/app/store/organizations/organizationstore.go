// internal/app/store/organizations/organizationstore.go
package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no organization matches the lookup.
	ErrNotFound = errors.New("organization not found")
	// ErrDuplicateName is returned when an organization with the same
	// case-folded name already exists.
	ErrDuplicateName = errors.New("organization name already in use")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("organizations")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("uniq_org_name_ci").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "state_ci", Value: 1},
				{Key: "city_ci", Value: 1},
			},
			Options: options.Index().SetName("idx_org_state_city"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new organization, folding the display fields for
// case-insensitive lookup.
func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	if org.ID.IsZero() {
		org.ID = primitive.NewObjectID()
	}
	org.NameCI = text.Fold(org.Name)
	org.CityCI = text.Fold(org.City)
	org.StateCI = text.Fold(org.State)
	if org.Status == "" {
		org.Status = status.Active
	}
	org.CreatedAt = now
	org.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, org); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Organization{}, ErrDuplicateName
		}
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.Organization{}, ErrNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// FindByName resolves an organization by case-insensitive name.
func (s *Store) FindByName(ctx context.Context, name string) (models.Organization, error) {
	var org models.Organization
	err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.Organization{}, ErrNotFound
	}
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

// List returns organizations sorted by folded name.
func (s *Store) List(ctx context.Context, limit, offset int64) ([]models.Organization, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// SetStatus activates or disables an organization.
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
