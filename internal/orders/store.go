package orders

import (
	"context"
	"errors"
	"time"

	"restoran-pos/internal/models"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/stock"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by CreateOrder when the idempotency key is already taken.
	ErrDuplicate = errors.New("duplicate idempotency key")
)

type ListFilter struct {
	Statuses  []models.OrderStatus
	OrderType models.OrderType
	TableID   *uint
	WaiterID  *uint
	// StaffID limits results to orders the staff member serves or created.
	StaffID *uint
	// CustomerUserID limits results to one registered customer's orders.
	CustomerUserID *uint
	From           *time.Time
	To             *time.Time
	Page           int
	// Limit 0 returns every match.
	Limit       int
	OldestFirst bool
}

// Reader is the read side shared by Store and Tx.
type Reader interface {
	Order(ctx context.Context, id uint) (*models.Order, error)
	OrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	Catalog(ctx context.Context, menuItemIDs []uint) (pricing.Catalog, error)
	Table(ctx context.Context, id uint) (*models.Table, error)
}

// Tx is a unit of work. Every write of one operation goes through the same Tx and
// commits or rolls back together.
type Tx interface {
	Reader
	LockOrder(ctx context.Context, id uint) (*models.Order, error)
	LockTable(ctx context.Context, id uint) (*models.Table, error)
	NextSequence(ctx context.Context, scope string, day time.Time) (int, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	// SaveOrder writes the order's own columns and its items. Payments and reprints are
	// append-only and written by AddPayment and AddReprint.
	SaveOrder(ctx context.Context, o *models.Order) error
	AddPayment(ctx context.Context, p *models.Payment) error
	AddReprint(ctx context.Context, r *models.KOTReprint) error
	SaveTable(ctx context.Context, t *models.Table) error
	ApplyStock(ctx context.Context, ch stock.Change) (*models.InventoryItem, error)
	StockMovements(ctx context.Context, reference string) ([]models.StockMovement, error)
}

type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
