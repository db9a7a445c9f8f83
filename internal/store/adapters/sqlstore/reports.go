package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

var userSpendQuery = `SELECT u.id AS user_id, u.username, COUNT(o.id) AS order_count,
	       COALESCE(SUM(o.total_cents), 0) AS total_cents
	FROM users u
	JOIN orders o ON o.user_id = u.id
	GROUP BY u.id, u.username
	ORDER BY total_cents DESC, u.username`

// UserSpend sums the cached order totals of every user with orders.
func (s *Store) UserSpend(ctx context.Context) ([]domain.UserSpend, error) {
	var rows []struct {
		UserID     string `db:"user_id"`
		Username   string `db:"username"`
		OrderCount int    `db:"order_count"`
		TotalCents int64  `db:"total_cents"`
	}
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, userSpendQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: user spend: %w", err)
	}
	res := make([]domain.UserSpend, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.UserSpend{
			UserID:     r.UserID,
			Username:   r.Username,
			OrderCount: r.OrderCount,
			TotalSpent: fromCents(r.TotalCents),
		})
	}
	return res, nil
}

var productSalesQuery = `SELECT p.id AS product_id, p.name AS product_name,
	       SUM(l.quantity) AS units, COUNT(DISTINCT l.order_id) AS order_count
	FROM order_lines l
	JOIN products p ON p.id = l.product_id
	GROUP BY p.id, p.name
	ORDER BY units DESC, p.name`

func (s *Store) ProductSales(ctx context.Context) ([]domain.ProductSales, error) {
	var rows []struct {
		ProductID   string `db:"product_id"`
		ProductName string `db:"product_name"`
		Units       int    `db:"units"`
		OrderCount  int    `db:"order_count"`
	}
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, productSalesQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: product sales: %w", err)
	}
	res := make([]domain.ProductSales, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.ProductSales{
			ProductID:      r.ProductID,
			ProductName:    r.ProductName,
			TotalUnitsSold: r.Units,
			OrderCount:     r.OrderCount,
		})
	}
	return res, nil
}

var inventoryQuery = `SELECT p.id AS product_id, p.name AS product_name, p.stock,
	       COALESCE(SUM(l.quantity), 0) AS units_sold
	FROM products p
	LEFT JOIN order_lines l ON l.product_id = p.id
	GROUP BY p.id, p.name, p.stock
	ORDER BY p.name, p.id`

// Inventory lists every product with the units ordered so far. Stock is the
// stored value; orders never decrement it.
func (s *Store) Inventory(ctx context.Context) ([]domain.InventoryStatus, error) {
	var rows []struct {
		ProductID   string `db:"product_id"`
		ProductName string `db:"product_name"`
		Stock       int    `db:"stock"`
		UnitsSold   int    `db:"units_sold"`
	}
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, inventoryQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: inventory: %w", err)
	}
	res := make([]domain.InventoryStatus, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.InventoryStatus(r))
	}
	return res, nil
}

var multiLineOrdersQuery = `SELECT o.id AS order_id, u.username, COUNT(l.id) AS line_count, o.total_cents
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN order_lines l ON l.order_id = o.id
	GROUP BY o.id, u.username, o.total_cents, o.created_at
	HAVING COUNT(l.id) > 1
	ORDER BY o.created_at DESC, o.id`

func (s *Store) MultiLineOrders(ctx context.Context) ([]domain.MultiLineOrder, error) {
	var rows []struct {
		OrderID    string `db:"order_id"`
		Username   string `db:"username"`
		LineCount  int    `db:"line_count"`
		TotalCents int64  `db:"total_cents"`
	}
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, multiLineOrdersQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: multi-line orders: %w", err)
	}
	res := make([]domain.MultiLineOrder, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.MultiLineOrder{
			OrderID:     r.OrderID,
			Username:    r.Username,
			LineCount:   r.LineCount,
			TotalAmount: fromCents(r.TotalCents),
		})
	}
	return res, nil
}

var statsQuery = `SELECT
	(SELECT COUNT(*) FROM users) AS users,
	(SELECT COUNT(*) FROM products) AS products,
	(SELECT COUNT(*) FROM orders) AS orders,
	(SELECT COUNT(*) FROM order_lines) AS order_lines,
	(SELECT COALESCE(SUM(total_cents), 0) FROM orders) AS total_cents`

// Stats counts rows per table. The average order value is zero when there
// are no orders.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var row struct {
		Users      int   `db:"users"`
		Products   int   `db:"products"`
		Orders     int   `db:"orders"`
		OrderLines int   `db:"order_lines"`
		TotalCents int64 `db:"total_cents"`
	}
	if err := sqlx.GetContext(ctx, s.conn(ctx), &row, statsQuery); err != nil {
		return domain.Stats{}, fmt.Errorf("sqlstore: stats: %w", err)
	}
	st := domain.Stats{
		Users:             row.Users,
		Products:          row.Products,
		Orders:            row.Orders,
		OrderLines:        row.OrderLines,
		AverageOrderValue: fromCents(0),
	}
	if row.Orders > 0 {
		st.AverageOrderValue = domain.RoundMoney(fromCents(row.TotalCents).Div(decimal.NewFromInt(int64(row.Orders))))
	}
	return st, nil
}
