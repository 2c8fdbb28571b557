package organizationstore_test

import (
	"testing"

	organizationstore "github.com/dalemusser/gatehub/internal/app/store/organizations"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/domain/models"
	"github.com/dalemusser/gatehub/internal/testutil"
)

func TestStore_CreateFoldsNames(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, models.Organization{
		Name:     "Cedar Grove Estates",
		City:     "Columbia",
		State:    "MO",
		TimeZone: "America/Chicago",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if org.NameCI != "cedar grove estates" {
		t.Errorf("NameCI: got %q", org.NameCI)
	}
	if org.Status != status.Active {
		t.Errorf("Status: got %s, want active", org.Status)
	}

	// Lookup is case-insensitive.
	found, err := store.FindByName(ctx, "CEDAR grove ESTATES")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if found.ID != org.ID {
		t.Error("FindByName resolved the wrong organization")
	}
}

func TestStore_DuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Organization{Name: "Elm Court"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Organization{Name: "elm COURT"}); err != organizationstore.ErrDuplicateName {
		t.Errorf("second Create: got %v, want ErrDuplicateName", err)
	}
}

func TestStore_ListSortedByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, name := range []string{"Willow Park", "Aspen Ridge", "Maple Row"} {
		if _, err := store.Create(ctx, models.Organization{Name: name}); err != nil {
			t.Fatalf("Create %q failed: %v", name, err)
		}
	}

	orgs, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(orgs) != 3 || orgs[0].Name != "Aspen Ridge" || orgs[2].Name != "Willow Park" {
		t.Errorf("List returned wrong order: %+v", orgs)
	}

	page, err := store.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List with paging failed: %v", err)
	}
	if len(page) != 1 || page[0].Name != "Maple Row" {
		t.Errorf("paged List: got %+v", page)
	}
}

func TestStore_SetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, models.Organization{Name: "Sunset Villas"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetStatus(ctx, org.ID, status.Disabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	found, err := store.FindByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if found.Status != status.Disabled {
		t.Errorf("Status after disable: got %s", found.Status)
	}
}
