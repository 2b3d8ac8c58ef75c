package handler

import (
	"encoding/json"
	"net/http"

	"loja-core/internal/model"
	"loja-core/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutHandler creates provider checkout sessions.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

type preferenceRequest struct {
	OrderID  string `json:"pedido_id"`
	BackBase string `json:"origem"`
}

type preferenceResponse struct {
	PreferenceID     string `json:"preference_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

// CreatePreference handles POST /api/checkout/preferencia requests.
func (h *CheckoutHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "Corpo da requisição inválido", h.logger)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "ID de pedido inválido", h.logger)
		return
	}

	pref, err := h.service.CreatePreference(r.Context(), orderID, req.BackBase)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, preferenceResponse{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	})
}
