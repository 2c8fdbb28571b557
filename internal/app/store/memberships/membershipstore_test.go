package membershipstore_test

import (
	"testing"

	membershipstore "github.com/dalemusser/gatehub/internal/app/store/memberships"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/gatehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	orgID := primitive.NewObjectID()
	unitID := primitive.NewObjectID()

	m, err := store.Create(ctx, models.Membership{
		UserID:         userID,
		OrganizationID: orgID,
		UnitID:         &unitID,
		Role:           models.RoleResident,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.Status != status.Active {
		t.Errorf("Status: got %s, want active", m.Status)
	}

	found, err := store.FindByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Role != models.RoleResident || found.UnitID == nil || *found.UnitID != unitID {
		t.Errorf("FindByID returned %+v", found)
	}
}

func TestStore_CreateRejectsUnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.Membership{
		UserID:         primitive.NewObjectID(),
		OrganizationID: primitive.NewObjectID(),
		Role:           "janitor",
	})
	if err == nil {
		t.Fatal("expected an error for an unknown role")
	}
}

func TestStore_DuplicateMembership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	m := models.Membership{
		UserID:         primitive.NewObjectID(),
		OrganizationID: primitive.NewObjectID(),
		Role:           models.RoleGuard,
	}
	if _, err := store.Create(ctx, m); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := store.Create(ctx, m); err != membershipstore.ErrDuplicateMembership {
		t.Errorf("second Create: got %v, want ErrDuplicateMembership", err)
	}
}

func TestStore_ListByUserSkipsInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	active, err := store.Create(ctx, models.Membership{
		UserID:         userID,
		OrganizationID: primitive.NewObjectID(),
		Role:           models.RoleResident,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	former, err := store.Create(ctx, models.Membership{
		UserID:         userID,
		OrganizationID: primitive.NewObjectID(),
		Role:           models.RoleGuard,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetStatus(ctx, former.ID, status.Disabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	list, err := store.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != active.ID {
		t.Errorf("ListByUser returned %d memberships, want only the active one", len(list))
	}
}

func TestStore_FindActiveByUserAndOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	orgID := primitive.NewObjectID()
	m, err := store.Create(ctx, models.Membership{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := store.FindActiveByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		t.Fatalf("FindActiveByUserAndOrg failed: %v", err)
	}
	if found.ID != m.ID {
		t.Error("resolved the wrong membership")
	}

	if err := store.SetStatus(ctx, m.ID, status.Disabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if _, err := store.FindActiveByUserAndOrg(ctx, userID, orgID); err != membershipstore.ErrNotFound {
		t.Errorf("after disable: got %v, want ErrNotFound", err)
	}
}

func TestStore_ListAndCountByOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	for _, role := range []string{models.RoleResident, models.RoleResident, models.RoleGuard} {
		if _, err := store.Create(ctx, models.Membership{
			UserID:         primitive.NewObjectID(),
			OrganizationID: orgID,
			Role:           role,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	residents, err := store.ListByOrg(ctx, orgID, models.RoleResident)
	if err != nil {
		t.Fatalf("ListByOrg failed: %v", err)
	}
	if len(residents) != 2 {
		t.Errorf("ListByOrg(resident): got %d, want 2", len(residents))
	}

	total, err := store.CountByOrg(ctx, orgID, "")
	if err != nil {
		t.Fatalf("CountByOrg failed: %v", err)
	}
	if total != 3 {
		t.Errorf("CountByOrg: got %d, want 3", total)
	}
}
