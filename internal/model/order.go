package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order. Values are the Portuguese
// labels used on the wire and in the database.
type OrderStatus string

const (
	StatusPendente    OrderStatus = "pendente"
	StatusPago        OrderStatus = "pago"
	StatusRecusado    OrderStatus = "recusado"
	StatusCancelado   OrderStatus = "cancelado"
	StatusReembolsado OrderStatus = "reembolsado"
	StatusContestacao OrderStatus = "contestacao"
)

// validNext is the allowed status transition table. Anything not listed
// here is terminal.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPendente: {StatusPago: true, StatusRecusado: true, StatusCancelado: true},
	StatusPago:     {StatusReembolsado: true, StatusContestacao: true},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Payment methods accepted at checkout.
const (
	PaymentMethodPix    = "pix"
	PaymentMethodCartao = "cartao"
)

// Order represents a customer order. Customer and address fields are
// snapshots taken at creation time.
type Order struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	Numero          string      `json:"numero_pedido" db:"numero"`
	CustomerID      *uuid.UUID  `json:"cliente_id,omitempty" db:"cliente_id"`
	CustomerName    string      `json:"cliente_nome,omitempty" db:"cliente_nome"`
	CustomerEmail   string      `json:"cliente_email,omitempty" db:"cliente_email"`
	CustomerCPF     string      `json:"cliente_cpf,omitempty" db:"cliente_cpf"`
	Subtotal        float64     `json:"subtotal" db:"subtotal"`
	Discount        float64     `json:"desconto" db:"desconto"`
	Shipping        float64     `json:"frete" db:"frete"`
	Total           float64     `json:"total" db:"total"`
	Status          OrderStatus `json:"status" db:"status"`
	PaymentMethod   string      `json:"forma_pagamento" db:"forma_pagamento"`
	ShippingAddress string      `json:"endereco_entrega" db:"endereco_entrega"`
	CouponCode      *string     `json:"cupom,omitempty" db:"cupom"`
	CreatedAt       time.Time   `json:"criado_em" db:"criado_em"`
	UpdatedAt       time.Time   `json:"atualizado_em" db:"atualizado_em"`
}

// OrderItem is a line item. Name, price, image, size and colour are copied
// from the catalogue at creation time and never change afterwards, no matter
// what happens to the product later.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"pedido_id"`
	ProductID uuid.UUID `json:"produto_id" db:"produto_id"`
	VariantID uuid.UUID `json:"variante_id" db:"variante_id"`
	Name      string    `json:"nome" db:"nome"`
	Quantity  int       `json:"quantidade" db:"quantidade"`
	UnitPrice float64   `json:"preco_unitario" db:"preco_unitario"`
	Subtotal  float64   `json:"subtotal" db:"subtotal"`
	Size      string    `json:"tamanho" db:"tamanho"`
	Color     string    `json:"cor" db:"cor"`
	ImageURL  string    `json:"imagem" db:"imagem"`
}

// OrderRequest is the payload for creating an order. Monetary fields supplied
// by the caller are advisory only; the service recomputes everything from
// canonical catalogue prices.
type OrderRequest struct {
	CustomerID      *uuid.UUID         `json:"cliente_id,omitempty"`
	CustomerName    string             `json:"cliente_nome,omitempty"`
	CustomerEmail   string             `json:"cliente_email,omitempty"`
	CustomerCPF     string             `json:"cliente_cpf,omitempty"`
	Shipping        float64            `json:"frete"`
	PaymentMethod   string             `json:"forma_pagamento"`
	ShippingAddress string             `json:"endereco_entrega"`
	CouponCode      *string            `json:"cupom,omitempty"`
	Items           []OrderItemRequest `json:"itens"`
}

// OrderItemRequest is a single requested line item.
type OrderItemRequest struct {
	VariantID uuid.UUID `json:"variante_id"`
	Quantity  int       `json:"quantidade"`
}

// OrderResponse is returned after creating or fetching an order.
type OrderResponse struct {
	Order Order       `json:"pedido"`
	Items []OrderItem `json:"itens"`
}
