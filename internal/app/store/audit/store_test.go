package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/gatehub/internal/app/store/audit"
	"github.com/dalemusser/gatehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	events := []audit.Event{
		{OrganizationID: &orgID, Category: audit.CategoryAdmin, EventType: audit.EventInvitationCreated, ActorID: &actorID, Success: true},
		{OrganizationID: &orgID, Category: audit.CategoryAccess, EventType: audit.EventAccessGranted, ActorID: &actorID, Success: true},
		{OrganizationID: &orgID, Category: audit.CategoryAccess, EventType: audit.EventAccessDenied, Success: false, FailureReason: "expired"},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	access, err := store.Query(ctx, audit.QueryFilter{
		OrganizationID: &orgID,
		Category:       audit.CategoryAccess,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(access) != 2 {
		t.Errorf("Query(category=access): got %d events, want 2", len(access))
	}

	denied, err := store.Query(ctx, audit.QueryFilter{
		OrganizationID: &orgID,
		EventType:      audit.EventAccessDenied,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(denied) != 1 || denied[0].FailureReason != "expired" {
		t.Errorf("Query(event_type=access_denied): got %+v", denied)
	}

	byActor, err := store.CountByFilter(ctx, audit.QueryFilter{ActorID: &actorID})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if byActor != 2 {
		t.Errorf("CountByFilter(actor): got %d, want 2", byActor)
	}
}

func TestStore_QueryTimeRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	old := audit.Event{
		OrganizationID: &orgID,
		Category:       audit.CategoryAdmin,
		EventType:      audit.EventDeviceRegistered,
		Timestamp:      time.Now().Add(-72 * time.Hour),
		Success:        true,
	}
	recent := old
	recent.EventType = audit.EventDeviceDisabled
	recent.Timestamp = time.Now()
	for _, e := range []audit.Event{old, recent} {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	start := time.Now().Add(-time.Hour)
	got, err := store.Query(ctx, audit.QueryFilter{OrganizationID: &orgID, StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].EventType != audit.EventDeviceDisabled {
		t.Errorf("time-range Query: got %+v", got)
	}
}

func TestStore_GetRecentNewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, audit.Event{
			Category:  audit.CategoryAccess,
			EventType: audit.EventAccessGranted,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Success:   true,
			Details:   map[string]string{"seq": string(rune('a' + i))},
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetRecent: got %d events, want 2", len(got))
	}
	if got[0].Details["seq"] != "c" || got[1].Details["seq"] != "b" {
		t.Errorf("GetRecent order: %v, %v", got[0].Details, got[1].Details)
	}
}
