// Package handler exposes the HTTP surface of the order core.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"loja-core/internal/model"

	"github.com/rs/zerolog"
)

// statusByCode maps domain error codes to HTTP status codes.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:       http.StatusBadRequest,
	model.ErrCodeValidation:        http.StatusBadRequest,
	model.ErrCodeCouponInvalid:     http.StatusBadRequest,
	model.ErrCodeInsufficientStock: http.StatusConflict,
	model.ErrCodeUnauthorised:      http.StatusUnauthorized,
	model.ErrCodeNotFound:          http.StatusNotFound,
	model.ErrCodeProviderError:     http.StatusBadGateway,
	model.ErrCodeDispatchFailed:    http.StatusBadGateway,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError writes a coded error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Warn().Str("code", code).Str("error", message).Int("status", status).Msg("request failed")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto the HTTP response. Expected
// business outcomes keep their message; anything unrecognised is an opaque
// 500 so internals never leak to clients.
func writeServiceError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeError(w, status, domainErr.Code, domainErr.Message, logger)
		return
	}

	var stockErr *model.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, http.StatusConflict, model.ErrCodeInsufficientStock, stockErr.Error(), logger)
		return
	}

	var providerErr *model.ProviderError
	if errors.As(err, &providerErr) {
		writeError(w, http.StatusBadGateway, model.ErrCodeProviderError,
			"Falha ao comunicar com o provedor de pagamento", logger)
		return
	}

	logger.Error().Err(err).Msg("unexpected handler error")
	writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError,
		"Erro interno do servidor", logger)
}
