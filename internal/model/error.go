package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCouponInvalid     = "COUPON_INVALID"
	ErrCodeProviderError     = "PAYMENT_PROVIDER_ERROR"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeDispatchFailed    = "DISPATCH_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError is an expected business outcome, distinguishable from
// infrastructure failures so handlers can map it to a client-facing result.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrCouponInvalid     = NewDomainError(ErrCodeCouponInvalid, "Cupom inválido ou fora do período de validade")
	ErrInvalidQuantity   = NewDomainError(ErrCodeValidation, "Quantidade deve ser maior que zero")
	ErrOrderNotFound     = NewDomainError(ErrCodeNotFound, "Pedido não encontrado")
	ErrVariantNotFound   = NewDomainError(ErrCodeNotFound, "Variante não encontrada")
	ErrUnauthorized      = NewDomainError(ErrCodeUnauthorised, "Assinatura do webhook ausente ou inválida")
	ErrInvalidTransition = NewDomainError(ErrCodeValidation, "Transição de status não permitida")
)

// InsufficientStockError reports the first item of an order that could not
// be reserved. The whole order transaction is rolled back when it occurs.
type InsufficientStockError struct {
	VariantID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("estoque insuficiente para variante %s: pedido %d, disponível %d",
		e.VariantID, e.Requested, e.Available)
}

// ProviderError is a non-2xx response from the payment provider. It never
// causes order mutation.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.Status, e.Body)
}

// DispatchError reports an exhausted outbound dispatch. It is recorded for
// out-of-band remediation and never rolls back order state.
type DispatchError struct {
	Attempts  int
	LastError error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed after %d attempts: %v", e.Attempts, e.LastError)
}

func (e *DispatchError) Unwrap() error {
	return e.LastError
}
