package repository

import (
	"context"
	"fmt"

	"loja-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// variantRepository implements VariantRepository using PostgreSQL.
type variantRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool *pgxpool.Pool, logger zerolog.Logger) VariantRepository {
	return &variantRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "variant").Logger(),
	}
}

const variantSelect = `
	SELECT v.id, v.produto_id, v.tamanho, v.cor, v.estoque, p.nome, p.preco, p.imagem
	FROM variantes v
	JOIN produtos p ON p.id = v.produto_id
`

// GetByID retrieves a variant with its product name, price and image.
func (r *variantRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	var v model.Variant
	err := r.pool.QueryRow(ctx, variantSelect+` WHERE v.id = $1`, id).Scan(
		&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Stock,
		&v.ProductName, &v.Price, &v.ImageURL,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.ErrVariantNotFound
		}
		r.logger.Error().Err(err).Str("variant_id", id.String()).Msg("failed to query variant")
		return nil, fmt.Errorf("failed to query variant: %w", err)
	}
	return &v, nil
}

// GetByIDs retrieves multiple variants with product details.
func (r *variantRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Variant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, variantSelect+` WHERE v.id = ANY($1)`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants")
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []model.Variant
	for rows.Next() {
		var v model.Variant
		err := rows.Scan(
			&v.ID, &v.ProductID, &v.Size, &v.Color, &v.Stock,
			&v.ProductName, &v.Price, &v.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}

// Reserve atomically decrements stock within the transaction. The conditional
// UPDATE is a single statement, so under concurrent reservations the database
// row is the only serialization point: when requests sum to more than the
// available stock, exactly the available quantity is granted.
func (r *variantRepository) Reserve(ctx context.Context, tx pgx.Tx, variantID uuid.UUID, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE variantes
		SET estoque = estoque - $2
		WHERE id = $1 AND estoque >= $2
	`, variantID, qty)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("variant_id", variantID.String()).
			Int("qty", qty).
			Msg("failed to reserve stock")
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Either the stock does not cover qty or the variant is gone.
		// Read the current value for the error report; the transaction is
		// about to be rolled back either way.
		var available int
		err := tx.QueryRow(ctx, `SELECT estoque FROM variantes WHERE id = $1`, variantID).Scan(&available)
		if err != nil {
			if err == pgx.ErrNoRows {
				return model.ErrVariantNotFound
			}
			return fmt.Errorf("failed to read stock: %w", err)
		}

		r.logger.Warn().
			Str("variant_id", variantID.String()).
			Int("requested", qty).
			Int("available", available).
			Msg("insufficient stock")

		return &model.InsufficientStockError{
			VariantID: variantID,
			Requested: qty,
			Available: available,
		}
	}

	return nil
}

// Release increments stock by qty, the inverse of Reserve.
func (r *variantRepository) Release(ctx context.Context, variantID uuid.UUID, qty int) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE variantes
		SET estoque = estoque + $2
		WHERE id = $1
	`, variantID, qty)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("variant_id", variantID.String()).
			Int("qty", qty).
			Msg("failed to release stock")
		return fmt.Errorf("failed to release stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return model.ErrVariantNotFound
	}

	r.logger.Debug().
		Str("variant_id", variantID.String()).
		Int("qty", qty).
		Msg("stock released")

	return nil
}

// HasSufficientStock reports whether the variant currently covers qty.
func (r *variantRepository) HasSufficientStock(ctx context.Context, variantID uuid.UUID, qty int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT estoque >= $2 FROM variantes WHERE id = $1
	`, variantID, qty).Scan(&ok)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, model.ErrVariantNotFound
		}
		return false, fmt.Errorf("failed to check stock: %w", err)
	}
	return ok, nil
}
