// README: Lifecycle event envelope and publisher port (Kafka in production, Nop/Recorder otherwise).
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeOfferRemoved          Type = "offer.removed"
	TypeDeliveryAccepted      Type = "delivery.accepted"
	TypeDeliveryStatusChanged Type = "delivery.status_changed"
	TypeEarningsRecorded      Type = "earnings.recorded"
	TypeVerificationRequested Type = "verification.requested"
)

type Event struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func New(t Type, key string, data any) Event {
	return Event{
		ID:        uuid.New(),
		Type:      t,
		Key:       key,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory; used by tests and the simulate command.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
