package notify_test

import (
	"testing"
	"time"

	"github.com/dalemusser/gatehub/internal/app/system/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestHub_PublishReachesOrgSubscribers(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	orgA := primitive.NewObjectID()
	orgB := primitive.NewObjectID()

	subA := hub.Subscribe(orgA)
	defer hub.Unsubscribe(subA)
	subB := hub.Subscribe(orgB)
	defer hub.Unsubscribe(subB)

	hub.Publish(notify.Event{
		Type:           notify.EventInvitationRedeemed,
		OrganizationID: orgA.Hex(),
	})

	select {
	case e := <-subA.C:
		if e.Type != notify.EventInvitationRedeemed {
			t.Errorf("event type: got %q", e.Type)
		}
		if e.Timestamp.IsZero() {
			t.Error("Publish did not stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber in the event's org received nothing")
	}

	select {
	case e := <-subB.C:
		t.Fatalf("subscriber in another org received %+v", e)
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	orgID := primitive.NewObjectID()

	sub := hub.Subscribe(orgID)
	defer hub.Unsubscribe(sub)

	// Never drain; publish far past the buffer. If Publish blocked, this
	// test would time out.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Publish(notify.Event{
				Type:           notify.EventInvitationCreated,
				OrganizationID: orgID.Hex(),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if hub.Dropped() == 0 {
		t.Error("expected drops for a never-draining subscriber")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	orgID := primitive.NewObjectID()

	sub := hub.Subscribe(orgID)
	if hub.SubscriberCount(orgID) != 1 {
		t.Fatalf("SubscriberCount: got %d, want 1", hub.SubscriberCount(orgID))
	}

	hub.Unsubscribe(sub)
	if hub.SubscriberCount(orgID) != 0 {
		t.Errorf("SubscriberCount after Unsubscribe: got %d", hub.SubscriberCount(orgID))
	}
	if _, ok := <-sub.C; ok {
		t.Error("channel not closed after Unsubscribe")
	}

	// Double unsubscribe is a no-op, not a panic.
	hub.Unsubscribe(sub)

	// Publishing to an org with no subscribers is fine.
	hub.Publish(notify.Event{Type: notify.EventManualEntry, OrganizationID: orgID.Hex()})
}

func TestHub_BadOrganizationIDIgnored(t *testing.T) {
	hub := notify.NewHub(zap.NewNop())
	hub.Publish(notify.Event{Type: notify.EventAccessDenied, OrganizationID: "not-hex"})
}
