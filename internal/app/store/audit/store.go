// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAccess = "access"
	CategoryAdmin  = "admin"
)

// Access event types
const (
	EventAccessGranted = "access_granted"
	EventAccessDenied  = "access_denied"
	EventManualEntry   = "manual_entry"
)

// Admin event types
const (
	EventInvitationCreated   = "invitation_created"
	EventInvitationCancelled = "invitation_cancelled"
	EventDeviceRegistered    = "device_registered"
	EventDeviceDisabled      = "device_disabled"
	EventOrgCreated          = "org_created"
	EventUnitCreated         = "unit_created"
	EventMembershipCreated   = "membership_created"
)

// Event represents an audit event. This is operational telemetry about who
// did what in the system; the gate-level visitor record lives in the access
// log, not here.
type Event struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp      time.Time           `bson:"timestamp"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who performed the action. DeviceID is set instead of ActorID when a
	// kiosk acted.
	ActorID  *primitive.ObjectID `bson:"actor_id,omitempty"`
	DeviceID *primitive.ObjectID `bson:"device_id,omitempty"`

	// What it acted on.
	InvitationID *primitive.ObjectID `bson:"invitation_id,omitempty"`

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	OrganizationID *primitive.ObjectID
	ActorID        *primitive.ObjectID
	Category       string
	EventType      string
	StartTime      *time.Time
	EndTime        *time.Time
	Limit          int64
	Offset         int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// EnsureIndexes creates necessary indexes for efficient querying.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{
				{Key: "organization_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func (f QueryFilter) query() bson.M {
	q := bson.M{}
	if f.OrganizationID != nil {
		q["organization_id"] = f.OrganizationID
	}
	if f.ActorID != nil {
		q["actor_id"] = f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
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

// Query retrieves audit events matching the given filter.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetRecent retrieves the most recent audit events.
func (s *Store) GetRecent(ctx context.Context, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{Limit: limit})
}
