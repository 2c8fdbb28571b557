package devicestore_test

import (
	"testing"

	devicestore "github.com/dalemusser/gatehub/internal/app/store/devices"
	"github.com/dalemusser/gatehub/internal/app/system/status"
	"github.com/dalemusser/gatehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_RegisterAndVerify(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := devicestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	dev, key, err := store.Register(ctx, orgID, nil, "North Gate Kiosk")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if key == "" {
		t.Fatal("Register returned an empty key")
	}
	if dev.KeyHash == key {
		t.Fatal("key stored in plaintext")
	}
	if dev.Status != status.Active {
		t.Errorf("Status: got %s, want active", dev.Status)
	}

	verified, err := store.Verify(ctx, dev.ID, key)
	if err != nil {
		t.Fatalf("Verify with correct key failed: %v", err)
	}
	if verified.ID != dev.ID {
		t.Error("Verify returned the wrong device")
	}

	if _, err := store.Verify(ctx, dev.ID, key+"x"); err != devicestore.ErrBadKey {
		t.Errorf("Verify with wrong key: got %v, want ErrBadKey", err)
	}
}

func TestStore_VerifyDisabledDevice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := devicestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dev, key, err := store.Register(ctx, primitive.NewObjectID(), nil, "Old Kiosk")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := store.SetStatus(ctx, dev.ID, status.Disabled); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	// A disabled device fails with the same error as a wrong key.
	if _, err := store.Verify(ctx, dev.ID, key); err != devicestore.ErrBadKey {
		t.Errorf("Verify of disabled device: got %v, want ErrBadKey", err)
	}
}

func TestStore_VerifyUnknownDevice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := devicestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Verify(ctx, primitive.NewObjectID(), "anything"); err != devicestore.ErrNotFound {
		t.Errorf("Verify of unknown device: got %v, want ErrNotFound", err)
	}
}

func TestStore_Touch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := devicestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dev, _, err := store.Register(ctx, primitive.NewObjectID(), nil, "Gate Kiosk")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if dev.LastSeenAt != nil {
		t.Error("fresh device should have no last_seen_at")
	}

	if err := store.Touch(ctx, dev.ID); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	after, err := store.FindByID(ctx, dev.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if after.LastSeenAt == nil {
		t.Error("Touch did not record last_seen_at")
	}
}
