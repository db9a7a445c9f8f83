package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

// Transactor runs fn in one database transaction. Repository calls made with
// the ctx handed to fn join that transaction.
type Transactor interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, p domain.Product) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	GetProductByName(ctx context.Context, name string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, o domain.Order) error
	// LockOrder reads the order row for update inside the current transaction.
	LockOrder(ctx context.Context, id string) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	GetOrderByReference(ctx context.Context, ref string) (domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	OrderIDsForProduct(ctx context.Context, productID string) ([]string, error)
	UpdateTotal(ctx context.Context, id string, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	DeleteOrder(ctx context.Context, id string) error

	CreateLine(ctx context.Context, l domain.OrderLine) error
	ListLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error
	DeleteLine(ctx context.Context, lineID string) error
	CountLines(ctx context.Context) (int, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
	DeleteUsersExcept(ctx context.Context, username string) (int64, error)
	CountOrdersOfUsersExcept(ctx context.Context, username string) (int64, error)
}

type EventRepository interface {
	AppendEvent(ctx context.Context, e *domain.OrderEvent) error
	PendingEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error)
	MarkEventsPublished(ctx context.Context, ids []int64) error
}

type ReportRepository interface {
	UserSpend(ctx context.Context) ([]domain.UserSpend, error)
	ProductSales(ctx context.Context) ([]domain.ProductSales, error)
	Inventory(ctx context.Context) ([]domain.InventoryStatus, error)
	MultiLineOrders(ctx context.Context) ([]domain.MultiLineOrder, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Store is everything the application services need from persistence.
type Store interface {
	Transactor
	ProductRepository
	OrderRepository
	UserRepository
	EventRepository
	ReportRepository
}
