package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing. The CHECK on
// estoque is the database-level backstop for the non-negative stock
// invariant; application code should never trip it.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS produtos (
			id UUID PRIMARY KEY,
			nome VARCHAR(255) NOT NULL,
			preco DECIMAL(10, 2) NOT NULL,
			imagem TEXT NOT NULL DEFAULT '',
			criado_em TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS variantes (
			id UUID PRIMARY KEY,
			produto_id UUID NOT NULL REFERENCES produtos(id),
			tamanho VARCHAR(20) NOT NULL DEFAULT '',
			cor VARCHAR(50) NOT NULL DEFAULT '',
			estoque INTEGER NOT NULL CHECK (estoque >= 0)
		);

		CREATE TABLE IF NOT EXISTS cupons (
			id UUID PRIMARY KEY,
			codigo VARCHAR(50) NOT NULL UNIQUE,
			percentual DECIMAL(5, 2) NOT NULL,
			inicio TIMESTAMP,
			fim TIMESTAMP,
			ativo BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS pedidos (
			id UUID PRIMARY KEY,
			numero VARCHAR(30) NOT NULL UNIQUE,
			cliente_id UUID,
			cliente_nome VARCHAR(255) NOT NULL DEFAULT '',
			cliente_email VARCHAR(255) NOT NULL DEFAULT '',
			cliente_cpf VARCHAR(20) NOT NULL DEFAULT '',
			subtotal DECIMAL(10, 2) NOT NULL,
			desconto DECIMAL(10, 2) NOT NULL,
			frete DECIMAL(10, 2) NOT NULL,
			total DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			forma_pagamento VARCHAR(20) NOT NULL,
			endereco_entrega TEXT NOT NULL,
			cupom VARCHAR(50),
			criado_em TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			atualizado_em TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS itens_pedido (
			id UUID PRIMARY KEY,
			pedido_id UUID NOT NULL REFERENCES pedidos(id) ON DELETE CASCADE,
			produto_id UUID NOT NULL,
			variante_id UUID NOT NULL,
			nome VARCHAR(255) NOT NULL,
			quantidade INTEGER NOT NULL CHECK (quantidade > 0),
			preco_unitario DECIMAL(10, 2) NOT NULL,
			subtotal DECIMAL(10, 2) NOT NULL,
			tamanho VARCHAR(20) NOT NULL DEFAULT '',
			cor VARCHAR(50) NOT NULL DEFAULT '',
			imagem TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS eventos_pagamento (
			id UUID PRIMARY KEY,
			pagamento_id VARCHAR(50) NOT NULL,
			status VARCHAR(30) NOT NULL,
			status_detalhe VARCHAR(100) NOT NULL DEFAULT '',
			valor DECIMAL(10, 2) NOT NULL DEFAULT 0,
			pedido_id UUID,
			origem VARCHAR(20) NOT NULL,
			criado_em TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_variantes_produto_id ON variantes(produto_id);
		CREATE INDEX IF NOT EXISTS idx_itens_pedido_pedido_id ON itens_pedido(pedido_id);
		CREATE INDEX IF NOT EXISTS idx_eventos_pagamento_pagamento_id ON eventos_pagamento(pagamento_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedVariant inserts one product with one variant and returns the variant id.
func SeedVariant(t *testing.T, pool *pgxpool.Pool, name string, price float64, stock int) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	productID := uuid.New()
	variantID := uuid.New()

	_, err := pool.Exec(ctx,
		"INSERT INTO produtos (id, nome, preco, imagem) VALUES ($1, $2, $3, $4)",
		productID, name, price, "https://cdn.example.com/"+productID.String()+".jpg",
	)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO variantes (id, produto_id, tamanho, cor, estoque) VALUES ($1, $2, $3, $4, $5)",
		variantID, productID, "M", "preto", stock,
	)
	if err != nil {
		t.Fatalf("failed to seed variant: %v", err)
	}

	return variantID
}

// SeedCoupon inserts a percentage coupon valid for the given window.
func SeedCoupon(t *testing.T, pool *pgxpool.Pool, code string, percent float64, start, end *time.Time, active bool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"INSERT INTO cupons (id, codigo, percentual, inicio, fim, ativo) VALUES ($1, $2, $3, $4, $5, $6)",
		uuid.New(), code, percent, start, end, active,
	)
	if err != nil {
		t.Fatalf("failed to seed coupon %s: %v", code, err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"eventos_pagamento", "itens_pedido", "pedidos", "cupons", "variantes", "produtos"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
