package repository

import (
	"context"
	"fmt"

	"loja-core/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentEventRepository implements PaymentEventRepository using PostgreSQL.
type paymentEventRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentEventRepository creates a new PostgreSQL-backed payment event repository.
func NewPaymentEventRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentEventRepository {
	return &paymentEventRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment_event").Logger(),
	}
}

// Append inserts a new payment event. The table has no UPDATE or DELETE path.
func (r *paymentEventRepository) Append(ctx context.Context, event *model.PaymentEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO eventos_pagamento (
			id, pagamento_id, status, status_detalhe, valor, pedido_id, origem, criado_em
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		event.ID, event.PaymentID, event.Status, event.StatusDetail,
		event.Amount, event.OrderID, event.Source, event.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("payment_id", event.PaymentID).
			Str("status", event.Status).
			Msg("failed to append payment event")
		return fmt.Errorf("failed to append payment event: %w", err)
	}

	r.logger.Debug().
		Str("payment_id", event.PaymentID).
		Str("status", event.Status).
		Str("source", event.Source).
		Msg("payment event appended")

	return nil
}

// ListByPaymentID returns all recorded events for a provider payment id.
func (r *paymentEventRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]model.PaymentEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, pagamento_id, status, status_detalhe, valor, pedido_id, origem, criado_em
		FROM eventos_pagamento
		WHERE pagamento_id = $1
		ORDER BY criado_em
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer rows.Close()

	var events []model.PaymentEvent
	for rows.Next() {
		var e model.PaymentEvent
		err := rows.Scan(
			&e.ID, &e.PaymentID, &e.Status, &e.StatusDetail,
			&e.Amount, &e.OrderID, &e.Source, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment events: %w", err)
	}

	return events, nil
}
