package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

type eventRow struct {
	ID        int64  `db:"id"`
	OrderID   string `db:"order_id"`
	Type      string `db:"type"`
	Payload   []byte `db:"payload"`
	TraceID   string `db:"trace_id"`
	SpanID    string `db:"span_id"`
	Status    int    `db:"status"`
	CreatedAt string `db:"created_at"`
}

var appendEventQuery = `INSERT INTO order_events (order_id, type, payload, trace_id, span_id, status, created_at)
	VALUES (:order_id, :type, :payload, :trace_id, :span_id, :status, :created_at)`

// AppendEvent inserts e and sets its ID.
func (s *Store) AppendEvent(ctx context.Context, e *domain.OrderEvent) error {
	row := eventRow{
		OrderID:   e.OrderID,
		Type:      string(e.Type),
		Payload:   e.Payload,
		TraceID:   e.TraceID,
		SpanID:    e.SpanID,
		Status:    int(e.Status),
		CreatedAt: formatTime(e.CreatedAt),
	}
	res, err := sqlx.NamedExecContext(ctx, s.conn(ctx), appendEventQuery, row)
	if err != nil {
		return fmt.Errorf("sqlstore: append %s for %q: %w", e.Type, e.OrderID, err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlstore: append %s for %q: %w", e.Type, e.OrderID, err)
	}
	return nil
}

var pendingEventsQuery = `SELECT id, order_id, type, payload, trace_id, span_id, status, created_at
	FROM order_events WHERE status = ? ORDER BY id LIMIT ?`

// PendingEvents returns up to limit unpublished events, oldest first.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error) {
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, pendingEventsQuery, int(domain.EventPending), limit); err != nil {
		return nil, fmt.Errorf("sqlstore: pending events: %w", err)
	}
	res := make([]domain.OrderEvent, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseRFC3339(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		res = append(res, domain.OrderEvent{
			ID:        row.ID,
			OrderID:   row.OrderID,
			Type:      domain.EventType(row.Type),
			Payload:   row.Payload,
			TraceID:   row.TraceID,
			SpanID:    row.SpanID,
			Status:    domain.EventStatus(row.Status),
			CreatedAt: createdAt,
		})
	}
	return res, nil
}

var markEventsPublishedQuery = "UPDATE order_events SET status = ? WHERE id IN (?)"

func (s *Store) MarkEventsPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(markEventsPublishedQuery, int(domain.EventPublished), ids)
	if err != nil {
		return err
	}
	if _, err := s.conn(ctx).ExecContext(ctx, s.conn(ctx).Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlstore: mark events published: %w", err)
	}
	return nil
}
