package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

const (
	cacheOpProduct  = "product"
	cacheOpProducts = "products"
	cacheKeyAll     = "all"
)

// Catalog manages products. Reads go through the cache; every write
// invalidates it after the transaction commits.
type Catalog struct {
	store ports.Store
	opts  options
}

func NewCatalog(store ports.Store, opts ...Option) *Catalog {
	return &Catalog{store: store, opts: buildOptions(opts)}
}

func (c *Catalog) Create(ctx context.Context, name, description string, price decimal.Decimal, stock int) (domain.Product, error) {
	now := c.opts.now()
	p := domain.Product{
		ID:          c.opts.newID(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := domain.ValidateProduct(p); err != nil {
		return domain.Product{}, err
	}
	if err := c.store.CreateProduct(ctx, p); err != nil {
		return domain.Product{}, err
	}

	c.invalidate(ctx)
	slog.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (domain.Product, error) {
	key := c.opts.cache.GenerateKey(cacheOpProduct, id)
	var p domain.Product
	if hit, err := cache.GetJSON(ctx, c.opts.cache, key, &p); err != nil {
		slog.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	} else if hit {
		return p, nil
	}

	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	c.remember(ctx, key, p)
	return p, nil
}

// List returns every product ordered by name.
func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	key := c.opts.cache.GenerateKey(cacheOpProducts, cacheKeyAll)
	var products []domain.Product
	if hit, err := cache.GetJSON(ctx, c.opts.cache, key, &products); err != nil {
		slog.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	} else if hit {
		return products, nil
	}

	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, key, products)
	return products, nil
}

// Update sets price and stock. Existing order lines keep their price
// snapshot and no order total changes.
func (c *Catalog) Update(ctx context.Context, id string, price decimal.Decimal, stock int) (domain.Product, error) {
	return c.Patch(ctx, id, domain.ProductPatch{Price: &price, Stock: &stock})
}

// Patch applies the non-nil fields of patch.
func (c *Catalog) Patch(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	c.invalidate(ctx, id)
	var p domain.Product
	err := c.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		if p, err = c.store.GetProduct(ctx, id); err != nil {
			return err
		}
		patch.Apply(&p)
		if err := domain.ValidateProduct(p); err != nil {
			return err
		}
		p.UpdatedAt = c.opts.now()
		return c.store.UpdateProduct(ctx, p)
	})
	if err != nil {
		return domain.Product{}, err
	}

	c.invalidate(ctx, id)
	slog.InfoContext(ctx, "product updated", "product_id", id, "price", p.Price.StringFixed(domain.MoneyScale), "stock", p.Stock)
	return p, nil
}

// Delete removes the product and every order line that references it.
// With auto-recalculation the affected orders get fresh totals in the same
// transaction; otherwise their cached totals are left as they were.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.invalidate(ctx, id)
	var affected []string
	err := c.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		if affected, err = c.store.OrderIDsForProduct(ctx, id); err != nil {
			return err
		}
		if err := c.store.DeleteProduct(ctx, id); err != nil {
			return err
		}
		if !c.opts.autoRecalculate {
			return nil
		}
		for _, orderID := range affected {
			if _, err := recalculate(ctx, c.store, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.invalidate(ctx, id)
	slog.InfoContext(ctx, "product deleted", "product_id", id, "affected_orders", len(affected))
	return nil
}

func (c *Catalog) remember(ctx context.Context, key string, value any) {
	if err := cache.SetJSON(ctx, c.opts.cache, key, value, c.opts.cacheTTL); err != nil {
		slog.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
}

// invalidate drops the list and the given product keys. Writers call it
// before and after their transaction: a read that lands in between can
// cache the old row, and the second pass removes it.
func (c *Catalog) invalidate(ctx context.Context, ids ...string) {
	keys := []string{c.opts.cache.GenerateKey(cacheOpProducts, cacheKeyAll)}
	for _, id := range ids {
		keys = append(keys, c.opts.cache.GenerateKey(cacheOpProduct, id))
	}
	if err := c.opts.cache.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "catalog cache invalidation failed", "keys", keys, "error", err)
	}
}
