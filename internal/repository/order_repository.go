package repository

import (
	"context"
	"fmt"
	"time"

	"loja-core/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO pedidos (
			id, numero, cliente_id, cliente_nome, cliente_email, cliente_cpf,
			subtotal, desconto, frete, total, status, forma_pagamento,
			endereco_entrega, cupom, criado_em, atualizado_em
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.Numero, order.CustomerID, order.CustomerName,
		order.CustomerEmail, order.CustomerCPF,
		order.Subtotal, order.Discount, order.Shipping, order.Total,
		order.Status, order.PaymentMethod, order.ShippingAddress,
		order.CouponCode, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("numero", order.Numero).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("numero", order.Numero).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO itens_pedido (
			id, pedido_id, produto_id, variante_id, nome, quantidade,
			preco_unitario, subtotal, tamanho, cor, imagem
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.ID, item.OrderID, item.ProductID, item.VariantID,
			item.Name, item.Quantity, item.UnitPrice, item.Subtotal,
			item.Size, item.Color, item.ImageURL,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("variant_id", items[i].VariantID.String()).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	orderQuery := `
		SELECT id, numero, cliente_id, cliente_nome, cliente_email, cliente_cpf,
		       subtotal, desconto, frete, total, status, forma_pagamento,
		       endereco_entrega, cupom, criado_em, atualizado_em
		FROM pedidos
		WHERE id = $1
	`

	var order model.Order
	err := r.pool.QueryRow(ctx, orderQuery, id).Scan(
		&order.ID, &order.Numero, &order.CustomerID, &order.CustomerName,
		&order.CustomerEmail, &order.CustomerCPF,
		&order.Subtotal, &order.Discount, &order.Shipping, &order.Total,
		&order.Status, &order.PaymentMethod, &order.ShippingAddress,
		&order.CouponCode, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, pedido_id, produto_id, variante_id, nome, quantidade,
		       preco_unitario, subtotal, tamanho, cor, imagem
		FROM itens_pedido
		WHERE pedido_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID,
			&item.Name, &item.Quantity, &item.UnitPrice, &item.Subtotal,
			&item.Size, &item.Color, &item.ImageURL,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return &order, items, nil
}

// UpdateStatus moves an order from one status to another. The WHERE clause
// carries the expected current status, so a replayed or racing update that
// already happened affects zero rows instead of double-applying.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE pedidos
		SET status = $3, atualizado_em = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, time.Now())
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	changed := ct.RowsAffected() == 1
	r.logger.Debug().
		Str("order_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Bool("changed", changed).
		Msg("order status update")

	return changed, nil
}

// NumberExists reports whether an order number is already taken.
func (r *orderRepository) NumberExists(ctx context.Context, numero string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pedidos WHERE numero = $1)
	`, numero).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	return exists, nil
}
