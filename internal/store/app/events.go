package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

type orderCreatedPayload struct {
	UserID    string             `json:"user_id"`
	Status    domain.OrderStatus `json:"status"`
	Reference string             `json:"reference,omitempty"`
}

type linePayload struct {
	LineID      string          `json:"line_id"`
	ProductID   string          `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
}

func newLinePayload(l domain.OrderLine) linePayload {
	return linePayload{
		LineID:      l.ID,
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		PriceAtTime: l.PriceAtTime,
	}
}

type totalPayload struct {
	Previous decimal.Decimal `json:"previous"`
	Total    decimal.Decimal `json:"total"`
}

type statusPayload struct {
	From domain.OrderStatus `json:"from"`
	To   domain.OrderStatus `json:"to"`
}

// appendEvent writes an outbox row in the transaction carried by ctx.
func appendEvent(ctx context.Context, events ports.EventRepository, orderID string, typ domain.EventType, body any) error {
	e, err := domain.NewOrderEvent(ctx, orderID, typ, body)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	return events.AppendEvent(ctx, e)
}
