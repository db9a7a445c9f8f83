package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

type productRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	PriceCents  int64  `db:"price_cents"`
	Stock       int    `db:"stock"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

func newProductRow(p domain.Product) (productRow, error) {
	price, err := toCents("price", p.Price)
	if err != nil {
		return productRow{}, err
	}
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  price,
		Stock:       p.Stock,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}, nil
}

func (r productRow) toDomain() (domain.Product, error) {
	createdAt, err := parseRFC3339(r.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	updatedAt, err := parseRFC3339(r.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       fromCents(r.PriceCents),
		Stock:       r.Stock,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

const productColumns = "id, name, description, price_cents, stock, created_at, updated_at"

var createProductQuery = `INSERT INTO products (` + productColumns + `)
	VALUES (:id, :name, :description, :price_cents, :stock, :created_at, :updated_at)`

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) error {
	row, err := newProductRow(p)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), createProductQuery, row); err != nil {
		return fmt.Errorf("sqlstore: create product %q: %w", p.Name, conflictOr(err, "product", p.ID))
	}
	return nil
}

var getProductQuery = "SELECT " + productColumns + " FROM products WHERE id = ?"

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.getProduct(ctx, getProductQuery, id)
}

// Names are not unique; the oldest product with the name wins.
var getProductByNameQuery = "SELECT " + productColumns + " FROM products WHERE name = ? ORDER BY created_at, id LIMIT 1"

func (s *Store) GetProductByName(ctx context.Context, name string) (domain.Product, error) {
	return s.getProduct(ctx, getProductByNameQuery, name)
}

func (s *Store) getProduct(ctx context.Context, query, key string) (domain.Product, error) {
	var row productRow
	if err := sqlx.GetContext(ctx, s.conn(ctx), &row, query, key); err != nil {
		return domain.Product{}, notFoundOr(err, "product", key)
	}
	return row.toDomain()
}

var listProductsQuery = "SELECT " + productColumns + " FROM products ORDER BY name, id"

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productRow
	if err := sqlx.SelectContext(ctx, s.conn(ctx), &rows, listProductsQuery); err != nil {
		return nil, fmt.Errorf("sqlstore: list products: %w", err)
	}
	res := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

var updateProductQuery = `UPDATE products
	SET name = :name, description = :description, price_cents = :price_cents, stock = :stock, updated_at = :updated_at
	WHERE id = :id`

func (s *Store) UpdateProduct(ctx context.Context, p domain.Product) error {
	row, err := newProductRow(p)
	if err != nil {
		return err
	}
	if _, err := sqlx.NamedExecContext(ctx, s.conn(ctx), updateProductQuery, row); err != nil {
		return fmt.Errorf("sqlstore: update product %q: %w", p.ID, err)
	}
	return nil
}

var deleteProductQuery = "DELETE FROM products WHERE id = ?"

// DeleteProduct removes the product; its order lines go with it.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.conn(ctx).ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete product %q: %w", id, err)
	}
	return requireAffected(res, "product", id)
}
