package repository

import (
	"context"
	"fmt"

	"loja-core/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// couponRepository implements CouponRepository using PostgreSQL.
type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCode retrieves a coupon by code, case-insensitively.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var c model.Coupon
	err := r.pool.QueryRow(ctx, `
		SELECT id, codigo, percentual, inicio, fim, ativo
		FROM cupons
		WHERE UPPER(codigo) = UPPER($1)
	`, code).Scan(&c.ID, &c.Code, &c.Percent, &c.StartsAt, &c.EndsAt, &c.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}
	return &c, nil
}
