// internal/app/store/devices/devicestore.go
package devicestore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// keyBytes is the entropy of a freshly issued device key before encoding.
const keyBytes = 32

var (
	// ErrNotFound is returned when no device matches the lookup.
	ErrNotFound = errors.New("device not found")
	// ErrBadKey is returned when the presented key does not match the
	// stored hash, or the device is disabled. Callers treat both the same
	// so a probe cannot distinguish a revoked device from a wrong key.
	ErrBadKey = errors.New("device key rejected")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("devices")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "name", Value: 1},
			},
			Options: options.Index().SetName("idx_device_org_name"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Register creates a device and returns it together with the plaintext
// bearer key. The key is shown exactly once; only its bcrypt hash is stored.
func (s *Store) Register(ctx context.Context, orgID primitive.ObjectID, unitID *primitive.ObjectID, name string) (models.Device, string, error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return models.Device{}, "", err
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return models.Device{}, "", err
	}

	now := time.Now().UTC()
	dev := models.Device{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		UnitID:         unitID,
		Name:           name,
		KeyHash:        string(hash),
		Status:         status.Active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, dev); err != nil {
		return models.Device{}, "", err
	}
	return dev, key, nil
}

// Verify checks a presented key against the device's stored hash. Disabled
// devices fail verification regardless of the key.
func (s *Store) Verify(ctx context.Context, id primitive.ObjectID, key string) (models.Device, error) {
	dev, err := s.FindByID(ctx, id)
	if err != nil {
		return models.Device{}, err
	}
	if dev.Status != status.Active {
		return models.Device{}, ErrBadKey
	}
	if bcrypt.CompareHashAndPassword([]byte(dev.KeyHash), []byte(key)) != nil {
		return models.Device{}, ErrBadKey
	}
	return dev, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Device, error) {
	var dev models.Device
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&dev)
	if err == mongo.ErrNoDocuments {
		return models.Device{}, ErrNotFound
	}
	if err != nil {
		return models.Device{}, err
	}
	return dev, nil
}

// Touch records that the device checked in. Best-effort; a miss just means
// a stale last_seen_at.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_seen_at": time.Now().UTC()}},
	)
	return err
}

// ListByOrg returns an organization's devices sorted by name.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Device, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var devices []models.Device
	if err := cur.All(ctx, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// SetStatus activates or disables a device. Disabling revokes the key for
// authentication immediately.
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
