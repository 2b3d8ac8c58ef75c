package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"loja-core/internal/coupon"
	"loja-core/internal/events"
	"loja-core/internal/model"
	"loja-core/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// pgUniqueViolation is the postgres error code for unique constraint hits.
const pgUniqueViolation = "23505"

// maxNumberAttempts bounds how often order creation retries after an order
// number collision, at the pre-check and again at the insert.
const maxNumberAttempts = 3

// OrderConfig tunes order creation.
type OrderConfig struct {
	// MethodDiscounts maps a payment method to a flat discount percent
	// applied against the subtotal, composing additively with coupons.
	MethodDiscounts map[string]float64
}

// DefaultOrderConfig returns the default order configuration.
func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		MethodDiscounts: map[string]float64{
			model.PaymentMethodPix: 5,
		},
	}
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	variantRepo repository.VariantRepository
	validator   coupon.Validator
	publisher   *events.Publisher
	cfg         OrderConfig
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	variantRepo repository.VariantRepository,
	validator coupon.Validator,
	publisher *events.Publisher,
	cfg OrderConfig,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		variantRepo: variantRepo,
		validator:   validator,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder creates an order, its items and stock reservations atomically.
func (s *orderService) CreateOrder(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	// Coupon first, it is the cheapest thing to reject on.
	var couponPercent float64
	if req.CouponCode != nil && *req.CouponCode != "" {
		percent, err := s.validator.Validate(ctx, *req.CouponCode)
		if err != nil {
			s.logger.Warn().
				Str("coupon_code", *req.CouponCode).
				Err(err).
				Msg("coupon rejected")
			return nil, err
		}
		couponPercent = percent
	}

	// Canonical prices come from the catalogue; whatever totals the caller
	// sent are ignored for money calculations.
	variantIDs := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		variantIDs[i] = item.VariantID
	}

	variants, err := s.variantRepo.GetByIDs(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}

	variantByID := make(map[uuid.UUID]model.Variant, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
	}
	for _, id := range variantIDs {
		if _, ok := variantByID[id]; !ok {
			s.logger.Warn().Str("variant_id", id.String()).Msg("unknown variant in order request")
			return nil, model.ErrVariantNotFound
		}
	}

	var subtotal float64
	for _, item := range req.Items {
		subtotal += variantByID[item.VariantID].Price * float64(item.Quantity)
	}
	subtotal = roundCents(subtotal)

	// Coupon and payment-method discounts compose additively against the
	// subtotal, before shipping.
	discountPercent := couponPercent + s.cfg.MethodDiscounts[req.PaymentMethod]
	discount := roundCents(subtotal * discountPercent / 100)
	shipping := roundCents(req.Shipping)
	total := roundCents(subtotal - discount + shipping)

	numero, err := s.generateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &model.Order{
		ID:              uuid.New(),
		Numero:          numero,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerCPF:     req.CustomerCPF,
		Subtotal:        subtotal,
		Discount:        discount,
		Shipping:        shipping,
		Total:           total,
		Status:          model.StatusPendente,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponCode,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	orderItems := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		v := variantByID[item.VariantID]
		orderItems[i] = model.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: v.ProductID,
			VariantID: v.ID,
			Name:      v.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: v.Price,
			Subtotal:  roundCents(v.Price * float64(item.Quantity)),
			Size:      v.Size,
			Color:     v.Color,
			ImageURL:  v.ImageURL,
		}
	}

	// The pre-checked number can still lose a race to a concurrent insert;
	// the unique constraint on numero catches that, and a fresh number plus
	// a new transaction resolves it.
	for attempt := 1; ; attempt++ {
		err = s.persistOrder(ctx, order, orderItems)
		if err == nil {
			break
		}
		if isNumeroConflict(err) && attempt < maxNumberAttempts {
			s.logger.Warn().
				Str("numero", order.Numero).
				Int("attempt", attempt).
				Msg("order number collided on insert, retrying with a new one")
			numero, numErr := s.generateOrderNumber(ctx)
			if numErr != nil {
				return nil, numErr
			}
			order.Numero = numero
			continue
		}
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("numero", order.Numero).
		Int("item_count", len(orderItems)).
		Float64("total", order.Total).
		Msg("order created successfully")

	s.publisher.Publish(events.TopicOrderCreated, order.ID, events.OrderEventPayload{
		OrderID: order.ID.String(),
		Numero:  order.Numero,
		Status:  string(order.Status),
		Total:   order.Total,
	})

	return &model.OrderResponse{Order: *order, Items: orderItems}, nil
}

// GetByID retrieves an order by its ID with all items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// Cancel cancels a pending order and releases its stock reservations. The
// conditional status update is the exactly-once guard: only the caller that
// actually flipped pendente→cancelado performs the releases.
func (s *orderService) Cancel(ctx context.Context, id uuid.UUID) error {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	if !model.CanTransition(order.Status, model.StatusCancelado) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("status", string(order.Status)).
			Msg("cancellation not allowed from current status")
		return model.ErrInvalidTransition
	}

	changed, err := s.orderRepo.UpdateStatus(ctx, id, order.Status, model.StatusCancelado)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if !changed {
		// Someone else moved the order first (another cancel, or a webhook).
		return model.ErrInvalidTransition
	}

	for _, item := range items {
		if err := s.variantRepo.Release(ctx, item.VariantID, item.Quantity); err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", id.String()).
				Str("variant_id", item.VariantID.String()).
				Msg("failed to release stock for cancelled order")
			return fmt.Errorf("failed to release stock: %w", err)
		}
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("numero", order.Numero).
		Msg("order cancelled, stock released")

	s.publisher.Publish(events.TopicOrderCancelled, order.ID, events.OrderEventPayload{
		OrderID: order.ID.String(),
		Numero:  order.Numero,
		Status:  string(model.StatusCancelado),
		Total:   order.Total,
	})

	return nil
}

// persistOrder runs one attempt at the order-creation transaction: insert
// the order, insert its item snapshots and reserve stock per item. Any
// failure rolls the whole attempt back.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}

	// Reserve stock inside the same transaction. The first insufficiency
	// aborts everything, including reservations already made for earlier
	// items of this request.
	for _, item := range items {
		if err = s.variantRepo.Reserve(ctx, tx, item.VariantID, item.Quantity); err != nil {
			var stockErr *model.InsufficientStockError
			if errors.As(err, &stockErr) {
				s.logger.Warn().
					Str("order_id", order.ID.String()).
					Str("variant_id", item.VariantID.String()).
					Int("requested", stockErr.Requested).
					Int("available", stockErr.Available).
					Msg("order rejected, insufficient stock")
			}
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// isNumeroConflict reports whether an insert failed because the order number
// lost a race on its unique constraint.
func isNumeroConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgUniqueViolation &&
		strings.Contains(pgErr.ConstraintName, "numero")
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeValidation, "Pedido vazio")
	}

	if len(req.Items) == 0 {
		return model.NewDomainError(model.ErrCodeValidation, "Pedido deve conter ao menos um item")
	}

	if req.PaymentMethod != model.PaymentMethodPix && req.PaymentMethod != model.PaymentMethodCartao {
		return model.NewDomainError(model.ErrCodeValidation,
			fmt.Sprintf("Forma de pagamento inválida: %s", req.PaymentMethod))
	}

	if strings.TrimSpace(req.ShippingAddress) == "" {
		return model.NewDomainError(model.ErrCodeValidation, "Endereço de entrega é obrigatório")
	}

	if req.Shipping < 0 {
		return model.NewDomainError(model.ErrCodeValidation, "Frete não pode ser negativo")
	}

	for i, item := range req.Items {
		if item.VariantID == uuid.Nil {
			return model.NewDomainError(model.ErrCodeValidation,
				fmt.Sprintf("Item %d: variante é obrigatória", i))
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}

	return nil
}

// generateOrderNumber produces a date-prefixed human-readable number,
// retrying on the unlikely collision.
func (s *orderService) generateOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
		numero := fmt.Sprintf("PED-%s-%s", time.Now().Format("20060102"), suffix)

		exists, err := s.orderRepo.NumberExists(ctx, numero)
		if err != nil {
			return "", fmt.Errorf("failed to check order number: %w", err)
		}
		if !exists {
			return numero, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique order number")
}

// roundCents rounds a monetary value to two decimal places.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
