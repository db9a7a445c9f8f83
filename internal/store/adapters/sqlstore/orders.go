package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

type orderRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Reference  sql.NullString `db:"reference"`
	Status     string         `db:"status"`
	TotalCents int64          `db:"total_cents"`
	CreatedAt  string         `db:"created_at"`
}

func newOrderRow(o domain.Order) (orderRow, error) {
	total, err := toCents("total_amount", o.TotalAmount)
	if err != nil {
		return orderRow{}, err
	}
	return orderRow{
		ID:         o.ID,
		UserID:     o.UserID,
		Reference:  sql.NullString{String: o.Reference, Valid: o.Reference != ""},
		Status:     string(o.Status),
		TotalCents: total,
		CreatedAt:  formatTime(o.CreatedAt),
	}, nil
}

func (r orderRow) toDomain() (domain.Order, error) {
	createdAt, err := parseRFC3339(r.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("sqlstore: order %q: %w", r.ID, err)
	}
	return domain.Order{
		ID:          r.ID,
		UserID:      r.UserID,
		Reference:   r.Reference.String,
		Status:      status,
		TotalAmount: fromCents(r.TotalCents),
		CreatedAt:   createdAt,
	}, nil
}

type lineRow struct {
	ID         string `db:"id"`
	OrderID    string `db:"order_id"`
	ProductID  string `db:"product_id"`
	Quantity   int    `db:"quantity"`
	PriceCents int64  `db:"price_at_time_cents"`
}

func newLineRow(l domain.OrderLine) (lineRow, error) {
	price, err := toCents("price_at_time", l.PriceAtTime)
	if err != nil {
		return lineRow{}, err
	}
	return lineRow{
		ID:         l.ID,
		OrderID:    l.OrderID,
		ProductID:  l.ProductID,
		Quantity:   l.Quantity,
		PriceCents: price,
	}, nil
}

func (r lineRow) toDomain() domain.OrderLine {
	return domain.OrderLine{
		ID:          r.ID,
		OrderID:     r.OrderID,
		ProductID:   r.ProductID,
		Quantity:    r.Quantity,
		PriceAtTime: fromCents(r.PriceCents),
	}
}

const orderColumns = "id, user_id, reference, status, total_cents, created_at"

var createOrderQuery = `INSERT INTO orders (` + orderColumns + `)
	VALUES (:id, :user_id, :reference, :status, :total_cents, :created_at)`

func (s *Store) CreateOrder(ctx context.Context, o domain.Order) error {
	row, err := newOrderRow(o)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), createOrderQuery, row); err != nil {
		key := o.ID
		if o.Reference != "" {
			key = o.Reference
		}
		return fmt.Errorf("sqlstore: create order: %w", conflictOr(err, "order", key))
	}
	return nil
}

var getOrderQuery = "SELECT " + orderColumns + " FROM orders WHERE id = ?"

// LockOrder reads the order row. On MySQL the row stays locked until the
// surrounding transaction ends; SQLite already serializes writers.
func (s *Store) LockOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.getOrder(ctx, getOrderQuery+s.lockSuffix(), id, id)
}

// GetOrder returns the order with its lines.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.getOrder(ctx, getOrderQuery, id, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Lines, err = s.ListLines(ctx, id); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

var getOrderByReferenceQuery = "SELECT " + orderColumns + " FROM orders WHERE reference = ?"

func (s *Store) GetOrderByReference(ctx context.Context, ref string) (domain.Order, error) {
	o, err := s.getOrder(ctx, getOrderByReferenceQuery, ref, ref)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Lines, err = s.ListLines(ctx, o.ID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Store) getOrder(ctx context.Context, query, key string, args ...any) (domain.Order, error) {
	var row orderRow
	if err := sqlx.GetContext(ctx, s.conn(ctx), &row, query, args...); err != nil {
		return domain.Order{}, notFoundOr(err, "order", key)
	}
	return row.toDomain()
}

var listOrdersByUserQuery = "SELECT " + orderColumns + " FROM orders WHERE user_id = ? ORDER BY created_at DESC, id"

// ListOrdersByUser returns the user's orders newest first, without lines.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	var rows []orderRow
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, listOrdersByUserQuery, userID); err != nil {
		return nil, fmt.Errorf("sqlstore: list orders of %q: %w", userID, err)
	}
	res := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, nil
}

var orderIDsForProductQuery = "SELECT DISTINCT order_id FROM order_lines WHERE product_id = ? ORDER BY order_id"

func (s *Store) OrderIDsForProduct(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &ids, orderIDsForProductQuery, productID); err != nil {
		return nil, fmt.Errorf("sqlstore: orders of product %q: %w", productID, err)
	}
	return ids, nil
}

var updateTotalQuery = "UPDATE orders SET total_cents = ? WHERE id = ?"

func (s *Store) UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error {
	cents, err := toCents("total_amount", total)
	if err != nil {
		return err
	}
	if _, err := s.conn(ctx).ExecContext(ctx, updateTotalQuery, cents, id); err != nil {
		return fmt.Errorf("sqlstore: update total of %q: %w", id, err)
	}
	return nil
}

var updateStatusQuery = "UPDATE orders SET status = ? WHERE id = ?"

func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if _, err := s.conn(ctx).ExecContext(ctx, updateStatusQuery, string(status), id); err != nil {
		return fmt.Errorf("sqlstore: update status of %q: %w", id, err)
	}
	return nil
}

var deleteOrderQuery = "DELETE FROM orders WHERE id = ?"

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, deleteOrderQuery, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete order %q: %w", id, err)
	}
	return requireAffected(res, "order", id)
}

var createLineQuery = `INSERT INTO order_lines (id, order_id, product_id, quantity, price_at_time_cents)
	VALUES (:id, :order_id, :product_id, :quantity, :price_at_time_cents)`

func (s *Store) CreateLine(ctx context.Context, l domain.OrderLine) error {
	row, err := newLineRow(l)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), createLineQuery, row); err != nil {
		return fmt.Errorf("sqlstore: create line: %w",
			conflictOr(err, "order line", l.OrderID+"/"+l.ProductID))
	}
	return nil
}

var listLinesQuery = `SELECT id, order_id, product_id, quantity, price_at_time_cents
	FROM order_lines WHERE order_id = ? ORDER BY id`

func (s *Store) ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	var rows []lineRow
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, listLinesQuery, orderID); err != nil {
		return nil, fmt.Errorf("sqlstore: list lines of %q: %w", orderID, err)
	}
	res := make([]domain.OrderLine, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

var updateLineQuantityQuery = "UPDATE order_lines SET quantity = ? WHERE id = ?"

func (s *Store) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	if _, err := s.conn(ctx).ExecContext(ctx, updateLineQuantityQuery, quantity, lineID); err != nil {
		return fmt.Errorf("sqlstore: update line %q: %w", lineID, err)
	}
	return nil
}

var deleteLineQuery = "DELETE FROM order_lines WHERE id = ?"

func (s *Store) DeleteLine(ctx context.Context, lineID string) error {
	res, err := s.conn(ctx).ExecContext(ctx, deleteLineQuery, lineID)
	if err != nil {
		return fmt.Errorf("sqlstore: delete line %q: %w", lineID, err)
	}
	return requireAffected(res, "order line", lineID)
}

var countLinesQuery = "SELECT COUNT(*) FROM order_lines"

func (s *Store) CountLines(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, s.conn(ctx), &n, countLinesQuery); err != nil {
		return 0, fmt.Errorf("sqlstore: count lines: %w", err)
	}
	return n, nil
}
