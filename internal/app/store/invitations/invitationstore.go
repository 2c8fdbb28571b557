// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/gatehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// CodeLength is the length of the short code attendants type by hand.
	CodeLength = 8

	// codeAlphabet deliberately omits 0/O, 1/I/L and other glyphs that are
	// easy to misread on a phone screen at the gate.
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	// maxCodeAttempts bounds regeneration when a generated code collides
	// with an existing one in the same organization.
	maxCodeAttempts = 5
)

var (
	// ErrNotFound is returned when no invitation matches the lookup.
	ErrNotFound = errors.New("invitation not found")
	// ErrCodeCollision is returned when code generation kept colliding;
	// callers should surface this as a retryable failure.
	ErrCodeCollision = errors.New("could not generate a unique invitation code")
)

// State is the (status, current_uses) pair the compare-and-swap observes and
// writes. Both fields always travel together; there is no operation that
// writes one without the other.
type State struct {
	Status      models.InvitationStatus
	CurrentUses int
}

// Store manages invitation records.
type Store struct {
	c *mongo.Collection
}

// New creates an invitation Store backed by the "invitations" collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

// EnsureIndexes creates the indexes the store depends on, including the
// unique per-organization code index that backs GenerateCode's collision
// detection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "code", Value: 1},
			},
			Options: options.Index().SetName("uniq_invitation_org_code").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "qr_token", Value: 1}},
			Options: options.Index().SetName("idx_invitation_qr_token"),
		},
		{
			Keys: bson.D{
				{Key: "membership_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_invitation_membership_created"),
		},
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_invitation_org_created"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// NormalizeCode maps attendant input to stored form: trimmed, uppercased,
// with separators people tend to add when reading codes aloud removed.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

// GenerateCode returns a random short code from the unambiguous alphabet.
// Uniqueness is enforced by the unique index, not here; Create retries on
// collision. Panics if the system's cryptographic RNG fails.
func GenerateCode() string {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	out := make([]byte, CodeLength)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out)
}

// Create inserts a new invitation. The caller may pre-assign ID (needed when
// the QR token must encode the id before insert); a zero ID is generated
// here. The short code is always generated here, retrying on the rare
// collision within the organization.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	now := time.Now().UTC()
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.VisitorNameCI = text.Fold(inv.VisitorName)
	if inv.Status == "" {
		inv.Status = models.InvitationActive
	}
	inv.CurrentUses = 0
	inv.CreatedAt = now
	inv.UpdatedAt = now

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		inv.Code = GenerateCode()
		_, err := s.c.InsertOne(ctx, inv)
		if err == nil {
			return inv, nil
		}
		if !wafflemongo.IsDup(err) {
			return models.Invitation{}, fmt.Errorf("insert invitation: %w", err)
		}
	}
	return models.Invitation{}, ErrCodeCollision
}

// FindByID loads one invitation by its id.
func (s *Store) FindByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// FindByCode resolves a short code within an organization. The input is
// normalized first, so attendants can type codes in any case.
func (s *Store) FindByCode(ctx context.Context, orgID primitive.ObjectID, code string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{
		"organization_id": orgID,
		"code":            NormalizeCode(code),
	}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// FindByQRToken resolves the long-form QR payload. The token is globally
// unique, so no org scoping is needed; callers still verify the org matches
// the actor before acting on the record.
func (s *Store) FindByQRToken(ctx context.Context, token string) (models.Invitation, error) {
	var inv models.Invitation
	err := s.c.FindOne(ctx, bson.M{"qr_token": token}).Decode(&inv)
	if err == mongo.ErrNoDocuments {
		return models.Invitation{}, ErrNotFound
	}
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

// ConditionalTransition atomically moves the invitation from the exact
// previously-observed (status, current_uses) pair to next. It reports
// whether the update applied: false means another writer got there first and
// the caller must re-fetch and re-evaluate.
//
// This single-document conditional update is the only coordination primitive
// between concurrent redeemers — no in-process locks exist anywhere above it.
func (s *Store) ConditionalTransition(ctx context.Context, id primitive.ObjectID, expected, next State) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":          id,
			"status":       expected.Status,
			"current_uses": expected.CurrentUses,
		},
		bson.M{"$set": bson.M{
			"status":       next.Status,
			"current_uses": next.CurrentUses,
			"updated_at":   time.Now().UTC(),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("conditional transition: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ConditionalCancel is the cancellation flavor of ConditionalTransition: the
// same compare-and-swap, additionally recording who cancelled and when.
func (s *Store) ConditionalCancel(ctx context.Context, id primitive.ObjectID, expected State, by primitive.ObjectID) (bool, error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":          id,
			"status":       expected.Status,
			"current_uses": expected.CurrentUses,
		},
		bson.M{"$set": bson.M{
			"status":       models.InvitationCancelled,
			"current_uses": expected.CurrentUses,
			"cancelled_at": now,
			"cancelled_by": by,
			"updated_at":   now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("conditional cancel: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	OrganizationID primitive.ObjectID
	MembershipID   primitive.ObjectID
	UnitID         primitive.ObjectID
	Status         models.InvitationStatus
	Limit          int64
	Offset         int64
}

// List returns invitations newest first. At least one of OrganizationID or
// MembershipID must be set; listing the whole collection is not a supported
// operation.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.Invitation, error) {
	filter := bson.M{}
	if !f.OrganizationID.IsZero() {
		filter["organization_id"] = f.OrganizationID
	}
	if !f.MembershipID.IsZero() {
		filter["membership_id"] = f.MembershipID
	}
	if len(filter) == 0 {
		return nil, errors.New("invitation list requires an organization or membership filter")
	}
	if !f.UnitID.IsZero() {
		filter["unit_id"] = f.UnitID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var invs []models.Invitation
	if err := cur.All(ctx, &invs); err != nil {
		return nil, err
	}
	return invs, nil
}

// CountByMembership returns how many invitations a membership has issued,
// optionally restricted to one status.
func (s *Store) CountByMembership(ctx context.Context, membershipID primitive.ObjectID, st models.InvitationStatus) (int64, error) {
	filter := bson.M{"membership_id": membershipID}
	if st != "" {
		filter["status"] = st
	}
	return s.c.CountDocuments(ctx, filter)
}
