package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Type names an auction event
type Type string

const (
	BidPlaced  Type = "bid_placed"
	ItemClosed Type = "item_closed"
)

// Event is a fact about an auction, emitted after it is committed.
// A BidPlaced Amount is the item's price after the bid, which only rises, so it
// orders an item's bids even when events arrive out of order.
// For ItemClosed, BidID/UserID/Amount describe the winning bid and are empty when
// the item closed without bids.
type Event struct {
	Type       Type            `json:"type"`
	ItemID     string          `json:"item_id"`
	BidID      string          `json:"bid_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers. Delivery is best effort:
// callers log a failed Publish and carry on, the auction state is already committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewRecorder returns an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent Publish calls return err without recording
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
