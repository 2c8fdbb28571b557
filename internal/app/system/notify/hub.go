// internal/app/system/notify/hub.go
package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event types published on the hub.
const (
	EventInvitationCreated   = "invitation_created"
	EventInvitationRedeemed  = "invitation_redeemed"
	EventInvitationCancelled = "invitation_cancelled"
	EventAccessDenied        = "access_denied"
	EventManualEntry         = "manual_entry"
)

// Event is a change notification scoped to one organization. IDs are hex
// strings because events go straight onto the wire as JSON.
type Event struct {
	Type           string    `json:"type"`
	OrganizationID string    `json:"organization_id"`
	UnitID         string    `json:"unit_id,omitempty"`
	InvitationID   string    `json:"invitation_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// subscriberBuffer bounds each subscriber's pending events. A subscriber
// that falls this far behind starts losing events rather than stalling
// publishers.
const subscriberBuffer = 16

// Hub fans change events out to websocket subscribers. Publish never
// blocks: delivery to a full subscriber is dropped and counted, because a
// slow dashboard must not delay the gate.
type Hub struct {
	mu     sync.RWMutex
	subs   map[primitive.ObjectID]map[*Subscription]struct{}
	logger *zap.Logger

	dropped atomic.Uint64
}

// Subscription is one subscriber's event stream. Close it via Unsubscribe.
type Subscription struct {
	C     chan Event
	orgID primitive.ObjectID
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[primitive.ObjectID]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new listener for one organization's events.
func (h *Hub) Subscribe(orgID primitive.ObjectID) *Subscription {
	sub := &Subscription{
		C:     make(chan Event, subscriberBuffer),
		orgID: orgID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[orgID] == nil {
		h.subs[orgID] = make(map[*Subscription]struct{})
	}
	h.subs[orgID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.orgID]
	if set == nil {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.orgID)
	}
	close(sub.C)
}

// Publish delivers the event to every subscriber of its organization.
// Best-effort: full subscribers are skipped.
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	orgID, err := primitive.ObjectIDFromHex(e.OrganizationID)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("notify event with bad organization id", zap.String("organization_id", e.OrganizationID))
		}
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[orgID] {
		select {
		case sub.C <- e:
		default:
			h.dropped.Add(1)
			if h.logger != nil {
				h.logger.Debug("notify event dropped for slow subscriber",
					zap.String("type", e.Type),
					zap.String("organization_id", e.OrganizationID),
				)
			}
		}
	}
}

// SubscriberCount reports how many listeners an organization has.
func (h *Hub) SubscriberCount(orgID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[orgID])
}

// Dropped reports how many events were discarded for slow subscribers since
// the hub was created.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
