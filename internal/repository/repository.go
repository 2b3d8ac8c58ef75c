package repository

import (
	"context"

	"loja-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VariantRepository is the stock ledger plus canonical catalogue lookups.
type VariantRepository interface {
	// GetByID retrieves a variant with its product name, price and image.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Variant, error)

	// GetByIDs retrieves multiple variants with product details.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Variant, error)

	// Reserve atomically decrements stock by qty within the given
	// transaction, only if the current stock covers it. Returns
	// *model.InsufficientStockError when it does not; the row update is
	// the serialization point, no application lock is taken.
	Reserve(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error

	// Release increments stock by qty. Callers must ensure it runs at most
	// once per item per cancellation, via the order status transition.
	Release(ctx context.Context, variantID uuid.UUID, qty int) error

	// HasSufficientStock reports whether the variant currently covers qty.
	// The answer is advisory; only Reserve is authoritative.
	HasSufficientStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items. Returns
	// (nil, nil, nil) when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// UpdateStatus moves an order from one status to another. The update
	// is conditional on the current status, so replays are no-ops; it
	// reports whether a row actually changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)

	// NumberExists reports whether an order number is already taken.
	NumberExists(ctx context.Context, numero string) (bool, error)
}

// CouponRepository defines the interface for coupon lookups.
type CouponRepository interface {
	// GetByCode retrieves a coupon by code, case-insensitively. Returns
	// (nil, nil) when no such coupon exists.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// PaymentEventRepository is the append-only payment audit log.
type PaymentEventRepository interface {
	// Append inserts a new payment event. Rows are never updated or deleted.
	Append(ctx context.Context, event *model.PaymentEvent) error

	// ListByPaymentID returns all recorded events for a provider payment id,
	// oldest first.
	ListByPaymentID(ctx context.Context, paymentID string) ([]model.PaymentEvent, error)
}
