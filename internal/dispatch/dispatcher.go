// Package dispatch forwards finalized orders to the downstream automation
// system. Delivery is best-effort and at-least-once; failure never rolls
// back order state.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"loja-core/internal/model"
	"loja-core/internal/retry"
	"loja-core/internal/webhook"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Headers carried on dispatch requests.
const (
	HeaderSignature = "X-N8N-Signature"
	HeaderTimestamp = "X-Request-Timestamp"
)

// Dispatcher notifies the downstream system of a finalized order.
type Dispatcher interface {
	// Dispatch sends the order. Exhausted retries return
	// *model.DispatchError; a nil error means the downstream accepted it.
	Dispatch(ctx context.Context, order *model.Order, items []model.OrderItem) error
}

// Config holds dispatcher settings.
type Config struct {
	URL    string
	Token  string // bearer token, optional
	Secret string // HMAC secret, optional
}

// Payload is the JSON body sent downstream.
type Payload struct {
	NumeroPedido    string        `json:"numero_pedido"`
	PedidoID        string        `json:"pedido_id"`
	CriadoEm        time.Time     `json:"criado_em"`
	Status          string        `json:"status"`
	Subtotal        float64       `json:"subtotal"`
	Desconto        float64       `json:"desconto"`
	Frete           float64       `json:"frete"`
	Total           float64       `json:"total"`
	Cliente         Cliente       `json:"cliente"`
	EnderecoEntrega string        `json:"endereco_entrega"`
	Itens           []ItemPayload `json:"itens"`
}

// Cliente is the customer block of the payload.
type Cliente struct {
	ID    string `json:"id,omitempty"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	CPF   string `json:"cpf"`
}

// ItemPayload is one dispatched line item.
type ItemPayload struct {
	ProdutoID     string  `json:"produto_id"`
	Nome          string  `json:"nome"`
	Quantidade    int     `json:"quantidade"`
	PrecoUnitario float64 `json:"preco_unitario"`
	Subtotal      float64 `json:"subtotal"`
	Tamanho       string  `json:"tamanho"`
	Cor           string  `json:"cor"`
	Imagem        string  `json:"imagem"`
}

// httpDispatcher implements Dispatcher over HTTP with the shared retry policy.
type httpDispatcher struct {
	cfg    Config
	policy retry.Policy
	client *http.Client
	logger zerolog.Logger
}

// NewDispatcher creates an HTTP dispatcher.
func NewDispatcher(cfg Config, policy retry.Policy, logger zerolog.Logger) Dispatcher {
	return &httpDispatcher{
		cfg:    cfg,
		policy: policy,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// buildPayload converts an order and its items to the wire format.
func buildPayload(order *model.Order, items []model.OrderItem) Payload {
	itens := make([]ItemPayload, len(items))
	for i, item := range items {
		itens[i] = ItemPayload{
			ProdutoID:     item.ProductID.String(),
			Nome:          item.Name,
			Quantidade:    item.Quantity,
			PrecoUnitario: item.UnitPrice,
			Subtotal:      item.Subtotal,
			Tamanho:       item.Size,
			Cor:           item.Color,
			Imagem:        item.ImageURL,
		}
	}

	cliente := Cliente{
		Nome:  order.CustomerName,
		Email: order.CustomerEmail,
		CPF:   order.CustomerCPF,
	}
	if order.CustomerID != nil {
		cliente.ID = order.CustomerID.String()
	}

	return Payload{
		NumeroPedido:    order.Numero,
		PedidoID:        order.ID.String(),
		CriadoEm:        order.CreatedAt,
		Status:          string(order.Status),
		Subtotal:        order.Subtotal,
		Desconto:        order.Discount,
		Frete:           order.Shipping,
		Total:           order.Total,
		Cliente:         cliente,
		EnderecoEntrega: order.ShippingAddress,
		Itens:           itens,
	}
}

// Dispatch sends the order downstream, retrying only transient failures
// (5xx, 429, network errors). 4xx responses are permanent.
func (d *httpDispatcher) Dispatch(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	body, err := json.Marshal(buildPayload(order, items))
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch payload: %w", err)
	}

	requestID := uuid.NewString()

	attempts, err := d.policy.Do(ctx, func(ctx context.Context) (bool, error) {
		return d.send(ctx, order.ID.String(), requestID, body)
	})
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("attempts", attempts).
			Msg("dispatch failed")
		return &model.DispatchError{Attempts: attempts, LastError: err}
	}

	d.logger.Info().
		Str("order_id", order.ID.String()).
		Str("numero", order.Numero).
		Int("attempts", attempts).
		Msg("order dispatched")

	return nil
}

// send performs one delivery attempt.
func (d *httpDispatcher) send(ctx context.Context, orderID, requestID string, body []byte) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build dispatch request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if d.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.Token)
	}

	ts := time.Now().Unix()
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	if d.cfg.Secret != "" {
		req.Header.Set(HeaderSignature, webhook.SignatureHeader(d.cfg.Secret, orderID, requestID, ts))
		req.Header.Set(webhook.HeaderRequestID, requestID)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		// Network failures and timeouts are transient.
		return true, fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("dispatch returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("dispatch returned %d", resp.StatusCode)
	}
}
