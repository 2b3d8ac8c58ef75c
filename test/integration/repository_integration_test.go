package integration

import (
	"context"
	"testing"
	"time"

	"loja-core/internal/model"
	"loja-core/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(variantID uuid.UUID) (*model.Order, []model.OrderItem) {
	now := time.Now()
	order := &model.Order{
		ID:              uuid.New(),
		Numero:          "PED-20250101-" + uuid.NewString()[:6],
		Subtotal:        100.0,
		Discount:        10.0,
		Shipping:        15.0,
		Total:           105.0,
		Status:          model.StatusPendente,
		PaymentMethod:   model.PaymentMethodPix,
		ShippingAddress: "Rua das Flores, 123, São Paulo",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := []model.OrderItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: uuid.New(),
			VariantID: variantID,
			Name:      "Camiseta básica",
			Quantity:  2,
			UnitPrice: 50.0,
			Subtotal:  100.0,
			Size:      "M",
			Color:     "preto",
		},
	}
	return order, items
}

func TestOrderRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewOrderRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("create and fetch order with items", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 50.0, 10)
		order, items := pendingOrder(variantID)

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.CreateOrder(ctx, tx, order))
		require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
		require.NoError(t, tx.Commit(ctx))

		got, gotItems, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.Numero, got.Numero)
		assert.Equal(t, model.StatusPendente, got.Status)
		assert.Equal(t, order.Total, got.Total)
		require.Len(t, gotItems, 1)
		assert.Equal(t, "Camiseta básica", gotItems[0].Name)
		assert.Equal(t, 2, gotItems[0].Quantity)
	})

	t.Run("rolled back transaction leaves nothing behind", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 50.0, 10)
		order, items := pendingOrder(variantID)

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.CreateOrder(ctx, tx, order))
		require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
		require.NoError(t, tx.Rollback(ctx))

		got, _, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("GetByID returns nil for unknown order", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		got, gotItems, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Nil(t, gotItems)
	})

	t.Run("conditional status update applies exactly once", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 50.0, 10)
		order, items := pendingOrder(variantID)

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.CreateOrder(ctx, tx, order))
		require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
		require.NoError(t, tx.Commit(ctx))

		changed, err := repo.UpdateStatus(ctx, order.ID, model.StatusPendente, model.StatusPago)
		require.NoError(t, err)
		assert.True(t, changed)

		// Replay of the same transition affects zero rows.
		changed, err = repo.UpdateStatus(ctx, order.ID, model.StatusPendente, model.StatusPago)
		require.NoError(t, err)
		assert.False(t, changed)

		got, _, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPago, got.Status)
	})

	t.Run("NumberExists detects taken numbers", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 50.0, 10)
		order, items := pendingOrder(variantID)

		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.CreateOrder(ctx, tx, order))
		require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
		require.NoError(t, tx.Commit(ctx))

		exists, err := repo.NumberExists(ctx, order.Numero)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.NumberExists(ctx, "PED-19990101-FFFFFF")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestVariantRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewVariantRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("GetByID joins product details", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 49.9, 5)

		v, err := repo.GetByID(ctx, variantID)
		require.NoError(t, err)
		assert.Equal(t, "Camiseta básica", v.ProductName)
		assert.Equal(t, 49.9, v.Price)
		assert.Equal(t, 5, v.Stock)
	})

	t.Run("reserve and release adjust stock", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 49.9, 5)

		tx, err := testDB.Pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.Reserve(ctx, tx, variantID, 3))
		require.NoError(t, tx.Commit(ctx))

		v, err := repo.GetByID(ctx, variantID)
		require.NoError(t, err)
		assert.Equal(t, 2, v.Stock)

		require.NoError(t, repo.Release(ctx, variantID, 3))

		v, err = repo.GetByID(ctx, variantID)
		require.NoError(t, err)
		assert.Equal(t, 5, v.Stock)
	})

	t.Run("reserve beyond stock fails with details", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 49.9, 2)

		tx, err := testDB.Pool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		err = repo.Reserve(ctx, tx, variantID, 3)
		var stockErr *model.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 3, stockErr.Requested)
		assert.Equal(t, 2, stockErr.Available)
	})

	t.Run("HasSufficientStock answers both ways", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		variantID := SeedVariant(t, testDB.Pool, "Camiseta básica", 49.9, 2)

		ok, err := repo.HasSufficientStock(ctx, variantID, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.HasSufficientStock(ctx, variantID, 3)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCouponRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewCouponRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)
		start := time.Now().Add(-time.Hour)
		end := time.Now().Add(time.Hour)
		SeedCoupon(t, testDB.Pool, "PROMO10", 10, &start, &end, true)

		c, err := repo.GetByCode(ctx, "promo10")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "PROMO10", c.Code)
		assert.Equal(t, 10.0, c.Percent)
	})

	t.Run("unknown code returns nil without error", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		c, err := repo.GetByCode(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestPaymentEventRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()
	repo := repository.NewPaymentEventRepository(testDB.Pool, logger)

	ctx := context.Background()

	t.Run("append keeps every delivery including orphans", func(t *testing.T) {
		CleanupDB(t, testDB.Pool)

		first := &model.PaymentEvent{
			ID:        uuid.New(),
			PaymentID: "12345",
			Status:    "pending",
			Amount:    105.0,
			Source:    model.EventSourceWebhook,
			CreatedAt: time.Now(),
		}
		second := &model.PaymentEvent{
			ID:           uuid.New(),
			PaymentID:    "12345",
			Status:       "approved",
			StatusDetail: "accredited",
			Amount:       105.0,
			Source:       model.EventSourceOrphan,
			CreatedAt:    time.Now().Add(time.Second),
		}

		require.NoError(t, repo.Append(ctx, first))
		require.NoError(t, repo.Append(ctx, second))

		events, err := repo.ListByPaymentID(ctx, "12345")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "pending", events[0].Status)
		assert.Equal(t, "approved", events[1].Status)
		assert.Nil(t, events[1].OrderID)
		assert.Equal(t, model.EventSourceOrphan, events[1].Source)
	})
}
