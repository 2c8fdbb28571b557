// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"strings"
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
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_user_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_user_full_name_ci"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a new user. Email is lowercased for uniqueness.
func (s *Store) Create(ctx context.Context, user models.User) (models.User, error) {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.FullNameCI = text.Fold(user.FullName)
	if user.Status == "" {
		user.Status = status.Active
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, user); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.c.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SetStatus activates or disables a user account. Session loading re-checks
// this on every request, so disabling takes effect immediately.
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
