package app

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jcmexdev/storefront/internal/coordinator"
	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

//go:embed fixtures/sample.yaml
var sampleFixture []byte

type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Products []FixtureProduct `yaml:"products"`
	Orders   []FixtureOrder   `yaml:"orders"`
}

type FixtureUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type FixtureProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
}

type FixtureOrder struct {
	Reference string        `yaml:"reference"`
	User      string        `yaml:"user"`
	Status    string        `yaml:"status"`
	Lines     []FixtureLine `yaml:"lines"`
}

type FixtureLine struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
}

// LoadFixture decodes a YAML fixture. Unknown keys are rejected.
func LoadFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// SampleFixture returns the built-in sample data set.
func SampleFixture() (Fixture, error) {
	return LoadFixture(bytes.NewReader(sampleFixture))
}

type SeedResult struct {
	UsersCreated    int
	ProductsCreated int
	OrdersCreated   int
}

// Seeder loads fixtures with get-or-create semantics.
type Seeder struct {
	store    ports.Store
	catalog  *Catalog
	orders   *Orders
	accounts *Accounts
}

func NewSeeder(store ports.Store, catalog *Catalog, orders *Orders, accounts *Accounts) *Seeder {
	return &Seeder{store: store, catalog: catalog, orders: orders, accounts: accounts}
}

// Seed creates whatever part of f is missing. Lines are only written for
// orders created by this call, and those orders get their totals
// recalculated. Everything happens in one transaction.
func (s *Seeder) Seed(ctx context.Context, f Fixture) (SeedResult, error) {
	var (
		res      SeedResult
		users    = map[string]domain.User{}
		products = map[string]domain.Product{}
	)
	job := coordinator.NewOrchestrator("seed",
		coordinator.NewStep("users", func(ctx context.Context) error {
			for _, fu := range f.Users {
				u, created, err := s.user(ctx, fu)
				if err != nil {
					return err
				}
				users[u.Email] = u
				if created {
					res.UsersCreated++
				}
			}
			return nil
		}),
		coordinator.NewStep("products", func(ctx context.Context) error {
			for _, fp := range f.Products {
				p, created, err := s.product(ctx, fp)
				if err != nil {
					return err
				}
				products[p.Name] = p
				if created {
					res.ProductsCreated++
				}
			}
			return nil
		}),
		coordinator.NewStep("orders", func(ctx context.Context) error {
			for _, fo := range f.Orders {
				created, err := s.order(ctx, fo, users, products)
				if err != nil {
					return err
				}
				if created {
					res.OrdersCreated++
				}
			}
			return nil
		}),
	)
	s.catalog.invalidate(ctx)
	if err := s.store.Transact(ctx, job.Start); err != nil {
		return SeedResult{}, err
	}

	s.catalog.invalidate(ctx)
	slog.InfoContext(ctx, "seed applied",
		"users_created", res.UsersCreated, "products_created", res.ProductsCreated, "orders_created", res.OrdersCreated)
	return res, nil
}

// user finds fu by email. A new user whose username is already taken by
// another email is a conflict.
func (s *Seeder) user(ctx context.Context, fu FixtureUser) (domain.User, bool, error) {
	if err := domain.ValidateUser(fu.Username, fu.Email); err != nil {
		return domain.User{}, false, err
	}
	email := domain.NormalizeEmail(fu.Email)
	u, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, err
	}

	if _, err := s.store.GetUserByUsername(ctx, fu.Username); err == nil {
		return domain.User{}, false, &domain.ConflictError{Resource: "user", Key: fu.Username}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, err
	}

	hash, err := s.accounts.hash(fu.Password)
	if err != nil {
		return domain.User{}, false, err
	}
	u = domain.User{
		ID:           s.accounts.opts.newID(),
		Username:     strings.TrimSpace(fu.Username),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		DateJoined:   s.accounts.opts.now(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

func (s *Seeder) product(ctx context.Context, fp FixtureProduct) (domain.Product, bool, error) {
	p, err := s.store.GetProductByName(ctx, strings.TrimSpace(fp.Name))
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Product{}, false, err
	}

	price, err := decimal.NewFromString(fp.Price)
	if err != nil {
		return domain.Product{}, false, &domain.ValidationError{Field: "price", Reason: fmt.Sprintf("%q is not a decimal", fp.Price)}
	}
	p, err = s.catalog.Create(ctx, fp.Name, fp.Description, price, fp.Stock)
	if err != nil {
		return domain.Product{}, false, err
	}
	return p, true, nil
}

func (s *Seeder) order(ctx context.Context, fo FixtureOrder, users map[string]domain.User, products map[string]domain.Product) (bool, error) {
	if fo.Reference == "" {
		return false, &domain.ValidationError{Field: "reference", Reason: "must not be empty"}
	}
	u, ok := users[domain.NormalizeEmail(fo.User)]
	if !ok {
		return false, &domain.ValidationError{Field: "user", Reason: fmt.Sprintf("%q is not a fixture user", fo.User)}
	}

	existing, err := s.store.GetOrderByReference(ctx, fo.Reference)
	if err == nil {
		if existing.UserID != u.ID {
			return false, &domain.ConflictError{Resource: "order", Key: fo.Reference}
		}
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	status := domain.StatusPending
	if fo.Status != "" {
		status = domain.OrderStatus(fo.Status)
	}
	o, err := s.orders.create(ctx, u.ID, fo.Reference, status)
	if err != nil {
		return false, err
	}
	for _, fl := range fo.Lines {
		p, ok := products[strings.TrimSpace(fl.Product)]
		if !ok {
			return false, &domain.ValidationError{Field: "product", Reason: fmt.Sprintf("%q is not a fixture product", fl.Product)}
		}
		if _, err := s.orders.AddLine(ctx, o.ID, p.ID, fl.Quantity); err != nil {
			return false, err
		}
	}
	if _, err := s.orders.RecalculateTotal(ctx, o.ID); err != nil {
		return false, err
	}
	return true, nil
}
