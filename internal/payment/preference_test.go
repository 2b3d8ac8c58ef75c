package payment

import (
	"testing"

	"loja-core/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder(dev bool) *Builder {
	return NewBuilder(BuilderConfig{
		PublicBaseURL: "https://loja.example.com",
		Dev:           dev,
	}, zerolog.Nop())
}

func testOrder(method string) (*model.Order, []model.OrderItem) {
	order := &model.Order{
		ID:            uuid.New(),
		Numero:        "PED-20260830-ABC123",
		CustomerName:  "Maria Silva",
		CustomerEmail: "maria@example.com",
		Subtotal:      100.00,
		Discount:      10.00,
		Shipping:      15.00,
		Total:         105.00,
		Status:        model.StatusPendente,
		PaymentMethod: method,
	}
	items := []model.OrderItem{
		{
			Name:      "Camiseta Básica",
			Quantity:  2,
			UnitPrice: 50.00,
			Subtotal:  100.00,
			Size:      "M",
			Color:     "preto",
		},
	}
	return order, items
}

func TestBuilder_Build_ItemsAndReference(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "https://loja.example.com")

	require.Len(t, req.Items, 2)
	assert.Equal(t, "Camiseta Básica", req.Items[0].Title)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, 50.00, req.Items[0].UnitPrice)
	assert.Equal(t, "BRL", req.Items[0].CurrencyID)

	// Adjustment line: frete 15 - desconto 10.
	assert.Equal(t, 5.00, req.Items[1].UnitPrice)

	assert.Equal(t, order.ID.String(), req.ExternalReference)
	assert.Equal(t, "https://loja.example.com/webhooks/pagamento", req.NotificationURL)
}

func TestBuilder_Build_PixExcludesCardAndTicket(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "")

	ids := make([]string, 0, len(req.PaymentMethods.ExcludedPaymentTypes))
	for _, ref := range req.PaymentMethods.ExcludedPaymentTypes {
		ids = append(ids, ref.ID)
	}
	assert.ElementsMatch(t, []string{"credit_card", "debit_card", "ticket", "atm"}, ids)
}

func TestBuilder_Build_CardExcludesPixAndTicket(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodCartao)

	req := b.Build(order, items, "")

	ids := make([]string, 0, len(req.PaymentMethods.ExcludedPaymentTypes))
	for _, ref := range req.PaymentMethods.ExcludedPaymentTypes {
		ids = append(ids, ref.ID)
	}
	assert.ElementsMatch(t, []string{"pix", "bank_transfer", "ticket", "atm"}, ids)
}

func TestBuilder_Build_HTTPBackURLRewrittenToHTTPS(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "http://loja.example.com")

	assert.Equal(t, "https://loja.example.com/pedido/confirmado", req.BackURLs.Success)
	assert.Equal(t, "https://loja.example.com/pedido/pendente", req.BackURLs.Pending)
	assert.Equal(t, "https://loja.example.com/pedido/erro", req.BackURLs.Failure)
}

func TestBuilder_Build_LocalhostReplacedOutsideDev(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "http://localhost:3000")

	assert.Equal(t, "https://loja.example.com/pedido/confirmado", req.BackURLs.Success)
}

func TestBuilder_Build_LocalhostAllowedInDev(t *testing.T) {
	b := testBuilder(true)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "http://localhost:3000")

	assert.Equal(t, "http://localhost:3000/pedido/confirmado", req.BackURLs.Success)
}

func TestBuilder_Build_EmptyBackBaseUsesPublicBase(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)

	req := b.Build(order, items, "")

	assert.Equal(t, "https://loja.example.com/pedido/confirmado", req.BackURLs.Success)
}

func TestBuilder_Build_NoAdjustmentLineWhenZero(t *testing.T) {
	b := testBuilder(false)
	order, items := testOrder(model.PaymentMethodPix)
	order.Shipping = 10.00
	order.Discount = 10.00

	req := b.Build(order, items, "")

	assert.Len(t, req.Items, 1)
}
