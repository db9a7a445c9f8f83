package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jcmexdev/storefront/internal/store/adapters/sqlstore"
	"github.com/jcmexdev/storefront/internal/store/domain"
)

type testEnv struct {
	store    *sqlstore.Store
	catalog  *Catalog
	orders   *Orders
	accounts *Accounts
	seeder   *Seeder
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	st, err := sqlstore.Open(sqlstore.DriverSQLite, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.MigrateUp())

	opts = append([]Option{WithPasswordCost(bcrypt.MinCost)}, opts...)
	env := &testEnv{
		store:    st,
		catalog:  NewCatalog(st, opts...),
		orders:   NewOrders(st, opts...),
		accounts: NewAccounts(st, opts...),
	}
	env.seeder = NewSeeder(st, env.catalog, env.orders, env.accounts)
	return env
}

func (e *testEnv) user(t *testing.T, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      username + "@example.com",
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) product(t *testing.T, name, price string, stock int) domain.Product {
	t.Helper()
	p, err := e.catalog.Create(context.Background(), name, "", decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	return p
}

func (e *testEnv) eventTypes(t *testing.T) []domain.EventType {
	t.Helper()
	events, err := e.store.PendingEvents(context.Background(), 1000)
	require.NoError(t, err)
	var types []domain.EventType
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memCache is an in-process cache.Cache for tests.
type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	gets    int
	deletes int
}

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}}
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	return m.data[key], nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) GenerateKey(operation, key string) string {
	return "test:" + operation + ":" + key
}

func (m *memCache) Close() error { return nil }

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
