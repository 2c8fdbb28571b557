// internal/app/store/accesslog/accesslogstore.go
package accesslogstore

import (
	"context"
	"time"

	"github.com/dalemusser/gatehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the append-only access log. There are no update or delete
// operations on this collection; entries are facts about what happened at
// the gate and stay as written.
type Store struct {
	c *mongo.Collection
}

// New creates an access log Store backed by the "access_logs" collection.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("access_logs")}
}

// EnsureIndexes creates the indexes that back the log views.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Org-wide log, most recent first.
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_accesslog_org_ts"),
		},
		// Per-invitation history.
		{
			Keys: bson.D{
				{Key: "invitation_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_accesslog_invitation_ts"),
		},
		// Per-unit view for residents.
		{
			Keys: bson.D{
				{Key: "unit_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_accesslog_unit_ts"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Append records one gate event. ID and Timestamp are filled in when zero.
func (s *Store) Append(ctx context.Context, e models.AccessLogEntry) (models.AccessLogEntry, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.AccessLogEntry{}, err
	}
	return e, nil
}

// QueryFilter narrows List results. OrganizationID is required; the rest are
// optional.
type QueryFilter struct {
	OrganizationID primitive.ObjectID
	UnitID         *primitive.ObjectID
	InvitationID   *primitive.ObjectID
	Direction      models.Direction
	Method         models.Method
	StartTime      *time.Time
	EndTime        *time.Time
	Limit          int64
	Offset         int64
}

func (f QueryFilter) query() bson.M {
	q := bson.M{"organization_id": f.OrganizationID}
	if f.UnitID != nil {
		q["unit_id"] = *f.UnitID
	}
	if f.InvitationID != nil {
		q["invitation_id"] = *f.InvitationID
	}
	if f.Direction != "" {
		q["direction"] = f.Direction
	}
	if f.Method != "" {
		q["method"] = f.Method
	}
	if f.StartTime != nil || f.EndTime != nil {
		tq := bson.M{}
		if f.StartTime != nil {
			tq["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			tq["$lte"] = *f.EndTime
		}
		q["timestamp"] = tq
	}
	return q
}

// List returns log entries matching the filter, most recent first.
func (s *Store) List(ctx context.Context, f QueryFilter) ([]models.AccessLogEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(f.Offset)

	cur, err := s.c.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []models.AccessLogEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns how many entries match the filter.
func (s *Store) Count(ctx context.Context, f QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, f.query())
}

// CountByInvitation returns how many times an invitation appears in the log.
func (s *Store) CountByInvitation(ctx context.Context, invitationID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"invitation_id": invitationID})
}
