package domain

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type EventType string

const (
	EventOrderCreated      EventType = "order.created"
	EventLineAdded         EventType = "order.line_added"
	EventLineUpdated       EventType = "order.line_updated"
	EventLineRemoved       EventType = "order.line_removed"
	EventTotalRecalculated EventType = "order.total_recalculated"
	EventStatusChanged     EventType = "order.status_changed"
	EventOrderDeleted      EventType = "order.deleted"
)

type EventStatus int

const (
	EventPending   EventStatus = 1
	EventPublished EventStatus = 2
)

// OrderEvent is one row of the order outbox. It is written in the same
// transaction as the change it describes and relayed later.
type OrderEvent struct {
	ID        int64
	OrderID   string
	Type      EventType
	Payload   []byte
	TraceID   string
	SpanID    string
	Status    EventStatus
	CreatedAt time.Time
}

// TraceInfo holds the OTel identifiers found in a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo returns empty strings when ctx carries no valid span.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewOrderEvent builds a pending event with trace ids taken from ctx.
func NewOrderEvent(ctx context.Context, orderID string, typ EventType, body any) (*OrderEvent, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	ti := ExtractTraceInfo(ctx)
	return &OrderEvent{
		OrderID:   orderID,
		Type:      typ,
		Payload:   payload,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		Status:    EventPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Envelope is the message published for an event.
type Envelope struct {
	ID        int64           `json:"id"`
	OrderID   string          `json:"order_id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	TraceID   string          `json:"trace_id,omitempty"`
	SpanID    string          `json:"span_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (e OrderEvent) Envelope() Envelope {
	return Envelope{
		ID:        e.ID,
		OrderID:   e.OrderID,
		Type:      e.Type,
		Payload:   json.RawMessage(e.Payload),
		TraceID:   e.TraceID,
		SpanID:    e.SpanID,
		CreatedAt: e.CreatedAt,
	}
}
