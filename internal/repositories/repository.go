package repositories

import (
	"context"
	"errors"

	"marketplace/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail expects a normalized (lower-cased) email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// ProductFilter narrows product listings. Zero values match everything.
type ProductFilter struct {
	SellerID   string
	Category   string
	Search     string
	ActiveOnly bool
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes every field except stock, which only moves through
	// SetStock, DecrementStock and IncrementStock.
	Update(ctx context.Context, product *models.Product) error
	// SetStock replaces the stock only if it still equals from. It reports
	// false, without error, when another writer changed it first.
	SetStock(ctx context.Context, id string, from, to int) (bool, error)
	// DecrementStock subtracts qty only if at least qty units are in stock.
	// It reports false, without error, when stock is insufficient.
	DecrementStock(ctx context.Context, id string, qty int) (bool, error)
	IncrementStock(ctx context.Context, id string, qty int) error
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	CustomerID string
}

// OrderRepository defines the interface for order data access.
// Orders are listed newest first and are never deleted.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus writes the order's status and delivery time only if the
	// stored status is still from. It reports false, without error, when
	// another writer moved the order first.
	UpdateStatus(ctx context.Context, order *models.Order, from models.OrderStatus) (bool, error)
}

// TxRepos are the repositories bound to a single unit of work.
type TxRepos interface {
	Products() ProductRepository
	Orders() OrderRepository
}

// TxManager runs fn as one unit of work: either every change made through the
// given repositories is kept, or none is.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

type txRepos struct {
	products ProductRepository
	orders   OrderRepository
}

func (r *txRepos) Products() ProductRepository { return r.products }
func (r *txRepos) Orders() OrderRepository     { return r.orders }
