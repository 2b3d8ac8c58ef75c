package service

import (
	"context"
	"fmt"

	"loja-core/internal/model"
	"loja-core/internal/payment"
	"loja-core/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo repository.OrderRepository
	builder   *payment.Builder
	provider  payment.API
	logger    zerolog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	builder *payment.Builder,
	provider payment.API,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		orderRepo: orderRepo,
		builder:   builder,
		provider:  provider,
		logger:    logger.With().Str("service", "checkout").Logger(),
	}
}

// CreatePreference builds and creates the provider checkout session for a
// pending order. The order is never mutated here; a provider failure leaves
// it exactly as it was.
func (s *checkoutService) CreatePreference(ctx context.Context, orderID uuid.UUID, backBase string) (*payment.Preference, error) {
	order, items, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	// Sessions are only created for orders still waiting for payment. This
	// is what keeps the pay-first reconstruction path from ever being
	// exercised: the pending order always exists before the redirect.
	if order.Status != model.StatusPendente {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("status", string(order.Status)).
			Msg("preference requested for non-pending order")
		return nil, model.ErrInvalidTransition
	}

	req := s.builder.Build(order, items, backBase)

	pref, err := s.provider.CreatePreference(ctx, req)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to create provider preference")
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("preference_id", pref.ID).
		Msg("checkout preference created")

	return pref, nil
}
