package handler

import (
	"net/http"
	"strconv"

	"loja-core/internal/model"
	"loja-core/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StockHandler answers stock availability queries.
type StockHandler struct {
	variantRepo repository.VariantRepository
	logger      zerolog.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(variantRepo repository.VariantRepository, logger zerolog.Logger) *StockHandler {
	return &StockHandler{
		variantRepo: variantRepo,
		logger:      logger.With().Str("handler", "stock").Logger(),
	}
}

type stockResponse struct {
	VariantID  string `json:"variante_id"`
	Quantity   int    `json:"quantidade"`
	Sufficient bool   `json:"suficiente"`
}

// Check handles GET /api/estoque/{variantID}?quantidade=n requests. The
// answer is advisory: the authoritative check happens inside the order
// transaction, so a true here can still become a 409 at creation time.
func (h *StockHandler) Check(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "ID de variante inválido", h.logger)
		return
	}

	quantity := 1
	if raw := r.URL.Query().Get("quantidade"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity <= 0 {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "Quantidade inválida", h.logger)
			return
		}
	}

	sufficient, err := h.variantRepo.HasSufficientStock(r.Context(), variantID, quantity)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		VariantID:  variantID.String(),
		Quantity:   quantity,
		Sufficient: sufficient,
	})
}
