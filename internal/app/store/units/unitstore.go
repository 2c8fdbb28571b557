// internal/app/store/units/unitstore.go
package unitstore

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
	// ErrNotFound is returned when no unit matches the lookup.
	ErrNotFound = errors.New("unit not found")
	// ErrDuplicateLabel is returned when the organization already has a unit
	// with the same case-folded label.
	ErrDuplicateLabel = errors.New("unit label already in use in this organization")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("units")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "label_ci", Value: 1},
			},
			Options: options.Index().SetName("uniq_unit_org_label_ci").SetUnique(true),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *Store) Create(ctx context.Context, unit models.Unit) (models.Unit, error) {
	now := time.Now().UTC()
	if unit.ID.IsZero() {
		unit.ID = primitive.NewObjectID()
	}
	unit.LabelCI = text.Fold(unit.Label)
	if unit.Status == "" {
		unit.Status = status.Active
	}
	unit.CreatedAt = now
	unit.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, unit); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Unit{}, ErrDuplicateLabel
		}
		return models.Unit{}, err
	}
	return unit, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Unit, error) {
	var unit models.Unit
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&unit)
	if err == mongo.ErrNoDocuments {
		return models.Unit{}, ErrNotFound
	}
	if err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// FindByLabel resolves a unit by its case-insensitive label within an
// organization.
func (s *Store) FindByLabel(ctx context.Context, orgID primitive.ObjectID, label string) (models.Unit, error) {
	var unit models.Unit
	err := s.c.FindOne(ctx, bson.M{
		"organization_id": orgID,
		"label_ci":        text.Fold(label),
	}).Decode(&unit)
	if err == mongo.ErrNoDocuments {
		return models.Unit{}, ErrNotFound
	}
	if err != nil {
		return models.Unit{}, err
	}
	return unit, nil
}

// ListByOrg returns an organization's units sorted by folded label.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Unit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "label_ci", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var units []models.Unit
	if err := cur.All(ctx, &units); err != nil {
		return nil, err
	}
	return units, nil
}
