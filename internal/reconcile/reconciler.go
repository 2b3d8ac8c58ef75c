// Package reconcile maps provider payment state onto local order state.
// Webhook deliveries are at-least-once, out of order, and may race each
// other; the reconciler stays correct by always fetching the provider's
// current state and applying it through a conditional status update keyed
// by the allowed-transition table.
package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"loja-core/internal/dispatch"
	"loja-core/internal/events"
	"loja-core/internal/model"
	"loja-core/internal/payment"
	"loja-core/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// statusByProvider maps provider payment statuses to order statuses.
// Unmapped statuses are logged and leave the order untouched.
var statusByProvider = map[string]model.OrderStatus{
	"approved":     model.StatusPago,
	"pending":      model.StatusPendente,
	"in_process":   model.StatusPendente,
	"rejected":     model.StatusRecusado,
	"cancelled":    model.StatusCancelado,
	"refunded":     model.StatusReembolsado,
	"charged_back": model.StatusContestacao,
}

// Redis keys, best-effort accelerators only. Reconciliation stays correct
// when redis is down or the keys expire.
const (
	keyDedup       = "dedup:pagamento:%s:%s" // payment id, status
	keyOrderStatus = "pedido_status:%s"      // order id

	ttlDedup       = 48 * time.Hour
	ttlStatusCache = 5 * time.Minute
)

// Reconciler applies provider payment state to local orders.
type Reconciler struct {
	provider   payment.API
	orderRepo  repository.OrderRepository
	eventRepo  repository.PaymentEventRepository
	dispatcher dispatch.Dispatcher
	publisher  *events.Publisher
	rdb        *redis.Client // nil disables caching
	logger     zerolog.Logger
}

// New creates a reconciler. rdb may be nil.
func New(
	provider payment.API,
	orderRepo repository.OrderRepository,
	eventRepo repository.PaymentEventRepository,
	dispatcher dispatch.Dispatcher,
	publisher *events.Publisher,
	rdb *redis.Client,
	logger zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		provider:   provider,
		orderRepo:  orderRepo,
		eventRepo:  eventRepo,
		dispatcher: dispatcher,
		publisher:  publisher,
		rdb:        rdb,
		logger:     logger.With().Str("component", "reconciler").Logger(),
	}
}

// ProcessPayment reconciles one payment id against local state. It fetches
// the provider's current authoritative status, never a diff against what was
// last seen. Replays of the same (id, status) are no-ops on the order; an
// audit event row is still appended per delivery.
func (r *Reconciler) ProcessPayment(ctx context.Context, paymentID, source string) error {
	p, err := r.provider.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}

	orderID := r.matchOrder(ctx, p)

	event := &model.PaymentEvent{
		ID:           uuid.New(),
		PaymentID:    paymentID,
		Status:       p.Status,
		StatusDetail: p.StatusDetail,
		Amount:       p.TransactionAmount,
		OrderID:      orderID,
		Source:       source,
		CreatedAt:    time.Now(),
	}
	if orderID == nil {
		event.Source = model.EventSourceOrphan
	}
	if err := r.eventRepo.Append(ctx, event); err != nil {
		// Losing the audit row would lose the delivery history; let the
		// provider retry the whole notification.
		return err
	}

	if orderID == nil {
		// Pay-first path: an approved payment with no local order would
		// need an order reconstructed from payment metadata, which would
		// bypass stock reservation entirely. The event row above is the
		// queue for manual reconciliation instead.
		r.logger.Error().
			Str("payment_id", paymentID).
			Str("status", p.Status).
			Str("external_reference", p.ExternalReference).
			Msg("payment has no matching local order, recorded for manual reconciliation")
		return nil
	}

	target, mapped := statusByProvider[p.Status]
	if !mapped {
		r.logger.Warn().
			Str("payment_id", paymentID).
			Str("status", p.Status).
			Msg("unmapped provider status, order untouched")
		return nil
	}

	if r.seenBefore(ctx, paymentID, p.Status) {
		r.logger.Debug().
			Str("payment_id", paymentID).
			Str("status", p.Status).
			Msg("duplicate delivery short-circuited")
		return nil
	}

	if err := r.apply(ctx, *orderID, paymentID, target); err != nil {
		return err
	}

	r.markSeen(ctx, paymentID, p.Status)
	return nil
}

// ProcessMerchantOrder fans a merchant order out into its individual
// payments and reconciles each one.
func (r *Reconciler) ProcessMerchantOrder(ctx context.Context, merchantOrderID string) error {
	mo, err := r.provider.GetMerchantOrder(ctx, merchantOrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch merchant order %s: %w", merchantOrderID, err)
	}

	for _, p := range mo.Payments {
		if err := r.ProcessPayment(ctx, strconv.FormatInt(p.ID, 10), model.EventSourceMerchantOrder); err != nil {
			return err
		}
	}

	return nil
}

// matchOrder resolves the payment's external reference to a local order id.
func (r *Reconciler) matchOrder(ctx context.Context, p *payment.Payment) *uuid.UUID {
	orderID, err := uuid.Parse(p.ExternalReference)
	if err != nil {
		return nil
	}

	order, _, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil || order == nil {
		return nil
	}

	return &order.ID
}

// apply moves the order to the target status when the transition table
// allows it. The conditional UPDATE makes the write repeatable: a replay or
// a racing webhook that already applied the same transition changes nothing.
func (r *Reconciler) apply(ctx context.Context, orderID uuid.UUID, paymentID string, target model.OrderStatus) error {
	order, items, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	if order == nil {
		return fmt.Errorf("order %s vanished during reconciliation", orderID)
	}

	if order.Status == target {
		r.logger.Debug().
			Str("order_id", orderID.String()).
			Str("status", string(target)).
			Msg("order already at target status")
		return nil
	}

	if !model.CanTransition(order.Status, target) {
		r.logger.Warn().
			Str("order_id", orderID.String()).
			Str("from", string(order.Status)).
			Str("to", string(target)).
			Str("payment_id", paymentID).
			Msg("transition not allowed, ignoring")
		return nil
	}

	changed, err := r.orderRepo.UpdateStatus(ctx, orderID, order.Status, target)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !changed {
		// A concurrent delivery won the race; its effect is the same.
		r.logger.Debug().
			Str("order_id", orderID.String()).
			Msg("status already changed by concurrent delivery")
		return nil
	}

	r.logger.Info().
		Str("order_id", orderID.String()).
		Str("numero", order.Numero).
		Str("from", string(order.Status)).
		Str("to", string(target)).
		Str("payment_id", paymentID).
		Msg("order status reconciled")

	r.cacheStatus(ctx, orderID, target)

	if target == model.StatusPago {
		order.Status = model.StatusPago

		r.publisher.Publish(events.TopicOrderPaid, order.ID, events.OrderEventPayload{
			OrderID: order.ID.String(),
			Numero:  order.Numero,
			Status:  string(order.Status),
			Total:   order.Total,
		})

		// Dispatch is best-effort and at-least-once; a failure is
		// recorded for remediation, never propagated back to the
		// webhook, and never rolls the order back.
		if r.dispatcher != nil {
			if err := r.dispatcher.Dispatch(ctx, order, items); err != nil {
				r.logger.Error().
					Err(err).
					Str("order_id", order.ID.String()).
					Msg("downstream dispatch failed for paid order")
				r.recordDispatchFailure(ctx, order, paymentID, err)
			}
		}
	}

	return nil
}

// recordDispatchFailure appends an audit row for an exhausted dispatch. The
// payment itself stays reconciled, so a replayed webhook cannot retrigger the
// dispatch; the row keyed by the order is what remediation queries for.
func (r *Reconciler) recordDispatchFailure(ctx context.Context, order *model.Order, paymentID string, dispatchErr error) {
	detail := dispatchErr.Error()
	if len(detail) > 100 {
		detail = detail[:100] // status_detalhe column width
	}
	event := &model.PaymentEvent{
		ID:           uuid.New(),
		PaymentID:    paymentID,
		Status:       model.StatusDispatchFailed,
		StatusDetail: detail,
		Amount:       order.Total,
		OrderID:      &order.ID,
		Source:       model.EventSourceDispatch,
		CreatedAt:    time.Now(),
	}
	if err := r.eventRepo.Append(ctx, event); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("payment_id", paymentID).
			Msg("failed to record dispatch failure")
	}
}

// seenBefore checks the redis dedup key for this (payment, status) pair.
func (r *Reconciler) seenBefore(ctx context.Context, paymentID, status string) bool {
	if r.rdb == nil {
		return false
	}
	n, err := r.rdb.Exists(ctx, fmt.Sprintf(keyDedup, paymentID, status)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// markSeen records a processed (payment, status) pair, best-effort.
func (r *Reconciler) markSeen(ctx context.Context, paymentID, status string) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, fmt.Sprintf(keyDedup, paymentID, status), "1", ttlDedup).Err(); err != nil {
		r.logger.Debug().Err(err).Msg("failed to write dedup key")
	}
}

// cacheStatus refreshes the order-status cache, best-effort.
func (r *Reconciler) cacheStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), string(status), ttlStatusCache).Err(); err != nil {
		r.logger.Debug().Err(err).Msg("failed to write status cache")
	}
}
