package model

import (
	"time"

	"github.com/google/uuid"
)

// Sources a payment event can come from.
const (
	EventSourceWebhook       = "webhook"
	EventSourceMerchantOrder = "merchant_order"
	EventSourceOrphan        = "orphan"
	EventSourceDispatch      = "dispatch"
)

// StatusDispatchFailed marks an audit row recording an exhausted outbound
// dispatch for a paid order, so remediation can query for stuck orders
// instead of scraping logs.
const StatusDispatchFailed = "dispatch_failed"

// PaymentEvent is an append-only audit record of a provider notification.
// One row is written per delivery, including duplicates, so the full
// delivery history is reconstructable. OrderID is nil when the payment
// could not be matched to a local order.
type PaymentEvent struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	PaymentID    string     `json:"pagamento_id" db:"pagamento_id"`
	Status       string     `json:"status" db:"status"`
	StatusDetail string     `json:"status_detalhe" db:"status_detalhe"`
	Amount       float64    `json:"valor" db:"valor"`
	OrderID      *uuid.UUID `json:"pedido_id,omitempty" db:"pedido_id"`
	Source       string     `json:"origem" db:"origem"`
	CreatedAt    time.Time  `json:"criado_em" db:"criado_em"`
}
