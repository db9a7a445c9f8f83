package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

// Orders owns the order aggregate: the order row, its lines and its cached
// total. Each operation runs in one transaction and records an outbox event.
type Orders struct {
	store ports.Store
	opts  options
}

func NewOrders(store ports.Store, opts ...Option) *Orders {
	return &Orders{store: store, opts: buildOptions(opts)}
}

// Create opens a pending order with a zero total.
func (s *Orders) Create(ctx context.Context, userID string) (domain.Order, error) {
	return s.create(ctx, userID, "", domain.StatusPending)
}

func (s *Orders) CreateWithStatus(ctx context.Context, userID string, status domain.OrderStatus) (domain.Order, error) {
	return s.create(ctx, userID, "", status)
}

// CreateWithReference opens an order keyed by an external reference, such as
// a client idempotency key. A repeat by the same user returns the existing
// order and created=false; a repeat by another user is a conflict.
func (s *Orders) CreateWithReference(ctx context.Context, userID, reference string, status domain.OrderStatus) (order domain.Order, created bool, err error) {
	if reference == "" {
		order, err = s.create(ctx, userID, "", status)
		return order, err == nil, err
	}

	order, err = s.byReference(ctx, userID, reference)
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Order{}, false, err
	}

	order, err = s.create(ctx, userID, reference, status)
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent request using the same reference.
		order, err = s.byReference(ctx, userID, reference)
		return order, false, err
	}
	return order, err == nil, err
}

func (s *Orders) byReference(ctx context.Context, userID, reference string) (domain.Order, error) {
	existing, err := s.store.GetOrderByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if existing.UserID != userID {
		return domain.Order{}, &domain.ConflictError{Resource: "order", Key: reference}
	}
	return existing, nil
}

func (s *Orders) create(ctx context.Context, userID, reference string, status domain.OrderStatus) (domain.Order, error) {
	status, err := domain.ParseStatus(string(status))
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:          s.opts.newID(),
		UserID:      userID,
		Reference:   reference,
		Status:      status,
		TotalAmount: decimal.Zero,
		CreatedAt:   s.opts.now(),
	}
	err = s.store.Transact(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return err
		}
		if err := s.store.CreateOrder(ctx, order); err != nil {
			return err
		}
		return appendEvent(ctx, s.store, order.ID, domain.EventOrderCreated, orderCreatedPayload{
			UserID:    userID,
			Status:    status,
			Reference: reference,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	slog.InfoContext(ctx, "order created", "order_id", order.ID, "user_id", userID, "status", status)
	return order, nil
}

// Get returns the order with its lines.
func (s *Orders) Get(ctx context.Context, orderID string) (domain.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

// ListByUser returns the user's orders newest first.
func (s *Orders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListOrdersByUser(ctx, userID)
}

// AddLine snapshots the product's current price into a new line. It leaves
// the cached total alone unless auto-recalculation is enabled.
func (s *Orders) AddLine(ctx context.Context, orderID, productID string, quantity int) (domain.OrderLine, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.OrderLine{}, err
	}

	var line domain.OrderLine
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		order, err := s.lockWithLines(ctx, orderID)
		if err != nil {
			return err
		}
		product, err := s.store.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if _, exists := order.LineFor(productID); exists {
			return &domain.ConflictError{Resource: "order line", Key: orderID + "/" + productID}
		}

		line, err = domain.NewLine(s.opts.newID(), orderID, product, quantity)
		if err != nil {
			return err
		}
		if err := s.store.CreateLine(ctx, line); err != nil {
			return err
		}
		order.Lines = append(order.Lines, line)

		if err := appendEvent(ctx, s.store, orderID, domain.EventLineAdded, newLinePayload(line)); err != nil {
			return err
		}
		return s.afterLineChange(ctx, &order)
	})
	if err != nil {
		return domain.OrderLine{}, err
	}

	slog.InfoContext(ctx, "order line added",
		"order_id", orderID, "product_id", productID, "quantity", quantity, "price_at_time", line.PriceAtTime)
	return line, nil
}

// UpdateLineQuantity changes the quantity of a line. The price snapshot is
// kept.
func (s *Orders) UpdateLineQuantity(ctx context.Context, orderID, lineID string, quantity int) (domain.OrderLine, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.OrderLine{}, err
	}

	var line domain.OrderLine
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		order, err := s.lockWithLines(ctx, orderID)
		if err != nil {
			return err
		}
		i, err := lineIndex(order, lineID)
		if err != nil {
			return err
		}
		if err := s.store.UpdateLineQuantity(ctx, lineID, quantity); err != nil {
			return err
		}
		order.Lines[i].Quantity = quantity
		line = order.Lines[i]

		if err := appendEvent(ctx, s.store, orderID, domain.EventLineUpdated, newLinePayload(line)); err != nil {
			return err
		}
		return s.afterLineChange(ctx, &order)
	})
	if err != nil {
		return domain.OrderLine{}, err
	}
	return line, nil
}

// RemoveLine deletes one line of the order.
func (s *Orders) RemoveLine(ctx context.Context, orderID, lineID string) error {
	return s.store.Transact(ctx, func(ctx context.Context) error {
		order, err := s.lockWithLines(ctx, orderID)
		if err != nil {
			return err
		}
		i, err := lineIndex(order, lineID)
		if err != nil {
			return err
		}
		removed := order.Lines[i]
		if err := s.store.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		order.Lines = append(order.Lines[:i], order.Lines[i+1:]...)

		if err := appendEvent(ctx, s.store, orderID, domain.EventLineRemoved, newLinePayload(removed)); err != nil {
			return err
		}
		return s.afterLineChange(ctx, &order)
	})
}

// RecalculateTotal sums the stored line subtotals, persists the result and
// returns it. Live product prices are never consulted.
func (s *Orders) RecalculateTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		total, err = recalculate(ctx, s.store, orderID)
		return err
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	slog.InfoContext(ctx, "order total recalculated", "order_id", orderID, "total", total.StringFixed(domain.MoneyScale))
	return total, nil
}

// SetStatus moves the order to status if the configured policy allows it.
// Setting the current status again changes nothing.
func (s *Orders) SetStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	to, err := domain.ParseStatus(string(status))
	if err != nil {
		return domain.Order{}, err
	}

	var order domain.Order
	err = s.store.Transact(ctx, func(ctx context.Context) error {
		order, err = s.lockWithLines(ctx, orderID)
		if err != nil {
			return err
		}
		from := order.Status
		if err := s.opts.policy.Allow(from, to); err != nil {
			return err
		}
		if from == to {
			return nil
		}
		if err := s.store.UpdateStatus(ctx, orderID, to); err != nil {
			return err
		}
		order.Status = to
		return appendEvent(ctx, s.store, orderID, domain.EventStatusChanged, statusPayload{From: from, To: to})
	})
	if err != nil {
		return domain.Order{}, err
	}

	slog.InfoContext(ctx, "order status set", "order_id", orderID, "status", to)
	return order, nil
}

// Delete removes the order and, by cascade, its lines.
func (s *Orders) Delete(ctx context.Context, orderID string) error {
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteOrder(ctx, orderID); err != nil {
			return err
		}
		return appendEvent(ctx, s.store, orderID, domain.EventOrderDeleted, struct{}{})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "order deleted", "order_id", orderID)
	return nil
}

func (s *Orders) lockWithLines(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.store.LockOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Lines, err = s.store.ListLines(ctx, orderID); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Orders) afterLineChange(ctx context.Context, order *domain.Order) error {
	if !s.opts.autoRecalculate {
		return nil
	}
	return persistTotal(ctx, s.store, order)
}

func lineIndex(order domain.Order, lineID string) (int, error) {
	for i, l := range order.Lines {
		if l.ID == lineID {
			return i, nil
		}
	}
	return -1, &domain.NotFoundError{Resource: "order line", Key: lineID}
}

// recalculate locks the order and refreshes its cached total from the
// stored lines.
func recalculate(ctx context.Context, store ports.Store, orderID string) (decimal.Decimal, error) {
	order, err := store.LockOrder(ctx, orderID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if order.Lines, err = store.ListLines(ctx, orderID); err != nil {
		return decimal.Decimal{}, err
	}
	if err := persistTotal(ctx, store, &order); err != nil {
		return decimal.Decimal{}, err
	}
	return order.TotalAmount, nil
}

// persistTotal writes order's recomputed total. An unchanged total is not
// rewritten and produces no event.
func persistTotal(ctx context.Context, store ports.Store, order *domain.Order) error {
	previous := order.TotalAmount
	total := order.RecalculateTotal()
	if err := domain.ValidateAmount("total_amount", total); err != nil {
		return err
	}
	if total.Equal(previous) {
		return nil
	}
	if err := store.UpdateTotal(ctx, order.ID, total); err != nil {
		return err
	}
	return appendEvent(ctx, store, order.ID, domain.EventTotalRecalculated, totalPayload{Previous: previous, Total: total})
}
