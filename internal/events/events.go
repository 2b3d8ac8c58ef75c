// Package events publishes order lifecycle events to Kafka for downstream
// consumers. Publishing is best-effort: a broker outage never fails the
// request that produced the event.
package events

import (
	"encoding/json"
	"time"
)

// Topics for order lifecycle events.
const (
	TopicOrderCreated   = "pedido.criado"
	TopicOrderPaid      = "pedido.pago"
	TopicOrderCancelled = "pedido.cancelado"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// OrderEventPayload is the common payload for lifecycle events.
type OrderEventPayload struct {
	OrderID string  `json:"pedido_id"`
	Numero  string  `json:"numero_pedido"`
	Status  string  `json:"status"`
	Total   float64 `json:"total"`
}
