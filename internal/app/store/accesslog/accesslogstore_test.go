package accesslogstore_test

import (
	"testing"
	"time"

	accesslogstore "github.com/dalemusser/gatehub/internal/app/store/accesslog"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/gatehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesslogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	unitID := primitive.NewObjectID()
	invID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	entry, err := store.Append(ctx, models.AccessLogEntry{
		InvitationID:   &invID,
		OrganizationID: orgID,
		UnitID:         &unitID,
		VisitorName:    "Ada Visitor",
		ActorID:        actorID,
		ActorRole:      models.RoleGuard,
		Direction:      models.DirectionEntry,
		Method:         models.MethodQR,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entry.ID.IsZero() {
		t.Error("Append did not assign an ID")
	}
	if entry.Timestamp.IsZero() {
		t.Error("Append did not assign a timestamp")
	}

	entries, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].VisitorName != "Ada Visitor" {
		t.Errorf("VisitorName: got %q", entries[0].VisitorName)
	}
	if entries[0].InvitationID == nil || *entries[0].InvitationID != invID {
		t.Error("InvitationID not preserved")
	}
}

func TestStore_ManualEntryHasNoInvitation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesslogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()

	entry, err := store.Append(ctx, models.AccessLogEntry{
		OrganizationID: orgID,
		VisitorName:    "Walk-in Visitor",
		ActorID:        primitive.NewObjectID(),
		ActorRole:      models.RoleGuard,
		Direction:      models.DirectionEntry,
		Method:         models.MethodManual,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].InvitationID != nil {
		t.Error("manual entry must have nil InvitationID")
	}
	if entries[0].ID != entry.ID {
		t.Error("round-tripped entry does not match")
	}
}

func TestStore_ListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesslogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	otherOrg := primitive.NewObjectID()
	unitA := primitive.NewObjectID()
	unitB := primitive.NewObjectID()
	invID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	seed := []models.AccessLogEntry{
		{OrganizationID: orgID, UnitID: &unitA, InvitationID: &invID, ActorID: actorID, ActorRole: models.RoleGuard, Direction: models.DirectionEntry, Method: models.MethodQR, Timestamp: base},
		{OrganizationID: orgID, UnitID: &unitA, InvitationID: &invID, ActorID: actorID, ActorRole: models.RoleGuard, Direction: models.DirectionExit, Method: models.MethodQR, Timestamp: base.Add(time.Hour)},
		{OrganizationID: orgID, UnitID: &unitB, ActorID: actorID, ActorRole: models.RoleGuard, Direction: models.DirectionEntry, Method: models.MethodManual, Timestamp: base.Add(2 * time.Hour)},
		{OrganizationID: otherOrg, UnitID: &unitA, ActorID: actorID, ActorRole: models.RoleGuard, Direction: models.DirectionEntry, Method: models.MethodCode, Timestamp: base.Add(3 * time.Hour)},
	}
	for _, e := range seed {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatalf("seed Append failed: %v", err)
		}
	}

	all, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("org filter: got %d, want 3", len(all))
	}
	// Most recent first.
	if len(all) == 3 && !all[0].Timestamp.After(all[2].Timestamp) {
		t.Error("List is not sorted newest first")
	}

	byUnit, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID, UnitID: &unitA})
	if err != nil {
		t.Fatalf("List by unit failed: %v", err)
	}
	if len(byUnit) != 2 {
		t.Errorf("unit filter: got %d, want 2", len(byUnit))
	}

	exits, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID, Direction: models.DirectionExit})
	if err != nil {
		t.Fatalf("List by direction failed: %v", err)
	}
	if len(exits) != 1 {
		t.Errorf("direction filter: got %d, want 1", len(exits))
	}

	manual, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID, Method: models.MethodManual})
	if err != nil {
		t.Fatalf("List by method failed: %v", err)
	}
	if len(manual) != 1 {
		t.Errorf("method filter: got %d, want 1", len(manual))
	}

	start := base.Add(30 * time.Minute)
	end := base.Add(90 * time.Minute)
	window, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID, StartTime: &start, EndTime: &end})
	if err != nil {
		t.Fatalf("List by time range failed: %v", err)
	}
	if len(window) != 1 {
		t.Errorf("time range filter: got %d, want 1", len(window))
	}

	n, err := store.CountByInvitation(ctx, invID)
	if err != nil {
		t.Fatalf("CountByInvitation failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountByInvitation: got %d, want 2", n)
	}

	total, err := store.Count(ctx, accesslogstore.QueryFilter{OrganizationID: orgID})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Count: got %d, want 3", total)
	}
}

func TestStore_ListLimitAndOffset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := accesslogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, models.AccessLogEntry{
			OrganizationID: orgID,
			ActorID:        primitive.NewObjectID(),
			ActorRole:      models.RoleGuard,
			Direction:      models.DirectionEntry,
			Method:         models.MethodCode,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed Append failed: %v", err)
		}
	}

	page, err := store.List(ctx, accesslogstore.QueryFilter{OrganizationID: orgID, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size: got %d, want 2", len(page))
	}
	// Newest first: offset 2 of 5 lands on the third-newest entry.
	if want := base.Add(2 * time.Minute); !page[0].Timestamp.Equal(want) {
		t.Errorf("page start: got %v, want %v", page[0].Timestamp, want)
	}
}
