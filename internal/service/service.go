package service

import (
	"context"

	"loja-core/internal/model"
	"loja-core/internal/payment"

	"github.com/google/uuid"
)

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder creates an order with its line items, reserving stock
	// per item in one all-or-nothing transaction. Totals are recomputed
	// server-side from canonical prices.
	CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order by its ID with all items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// Cancel cancels a pending order and restores the reserved stock.
	Cancel(ctx context.Context, id uuid.UUID) error
}

// CheckoutService creates provider checkout sessions for pending orders.
type CheckoutService interface {
	// CreatePreference builds and creates the provider session. backBase
	// is the storefront origin for redirect back-urls; it is sanitised
	// before use. Provider failures never mutate the order.
	CreatePreference(ctx context.Context, orderID uuid.UUID, backBase string) (*payment.Preference, error)
}
