package router

import (
	"net/http"

	"loja-core/internal/handler"
	"loja-core/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates the HTTP router with all routes and middleware configured.
// The webhook routes sit outside the API-key group: the payment provider
// authenticates with the HMAC signature instead.
func New(
	orderHandler *handler.OrderHandler,
	checkoutHandler *handler.CheckoutHandler,
	stockHandler *handler.StockHandler,
	webhookHandler *handler.WebhookHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(apiKey, logger))

		r.Post("/pedidos", orderHandler.Create)
		r.Get("/pedidos/{id}", orderHandler.GetByID)
		r.Post("/pedidos/{id}/cancelar", orderHandler.Cancel)

		r.Post("/checkout/preferencia", checkoutHandler.CreatePreference)

		r.Get("/estoque/{variantID}", stockHandler.Check)
	})

	r.Get("/webhooks/pagamento", webhookHandler.Receive)
	r.Post("/webhooks/pagamento", webhookHandler.Receive)

	return r
}
