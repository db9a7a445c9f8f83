package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

const (
	defaultRelayBatch    = 100
	defaultRelayInterval = 2 * time.Second
)

// Relay moves pending outbox events to the event bus. Delivery is
// at-least-once: events are marked published only after the bus accepted
// them.
type Relay struct {
	events    ports.EventRepository
	publisher ports.Publisher
	batch     int
	interval  time.Duration
}

func NewRelay(events ports.EventRepository, publisher ports.Publisher, batch int, interval time.Duration) *Relay {
	if batch <= 0 {
		batch = defaultRelayBatch
	}
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	return &Relay{events: events, publisher: publisher, batch: batch, interval: interval}
}

// RelayOnce publishes one batch and returns how many events it sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.events.PendingEvents(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	messages, err := toMessages(pending)
	if err != nil {
		return 0, err
	}
	if err := r.publisher.Push(ctx, messages); err != nil {
		return 0, err
	}
	if err := r.events.MarkEventsPublished(ctx, extractIDs(pending)); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// Run relays until ctx is cancelled. A full batch is followed immediately
// by the next one; otherwise the relay waits for the interval.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.ErrorContext(ctx, "relay failed", "error", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "events relayed", "count", n)
		}
		if n == r.batch {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func toMessages(events []domain.OrderEvent) ([]ports.Message, error) {
	res := make([]ports.Message, 0, len(events))
	for _, e := range events {
		b, err := json.Marshal(e.Envelope())
		if err != nil {
			return nil, fmt.Errorf("encode event %d: %w", e.ID, err)
		}
		res = append(res, ports.Message{Key: e.OrderID, Value: b})
	}
	return res, nil
}

func extractIDs(events []domain.OrderEvent) []int64 {
	res := make([]int64, 0, len(events))
	for _, e := range events {
		res = append(res, e.ID)
	}
	return res
}
