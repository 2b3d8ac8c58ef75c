package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"loja-core/internal/model"
	"loja-core/internal/webhook"

	"github.com/rs/zerolog"
)

// PaymentReconciler applies provider payment notifications to local state.
type PaymentReconciler interface {
	ProcessPayment(ctx context.Context, paymentID, source string) error
	ProcessMerchantOrder(ctx context.Context, merchantOrderID string) error
}

// WebhookHandler receives payment provider notifications. The provider
// retries on any non-2xx, so the handler returns 200 for everything it has
// durably recorded and 500 only when recording failed and a retry is wanted.
type WebhookHandler struct {
	reconciler PaymentReconciler
	secret     string
	logger     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty secret disables
// signature verification, which config.Validate only permits in dev.
func NewWebhookHandler(reconciler PaymentReconciler, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		logger:     logger.With().Str("handler", "webhook").Logger(),
	}
}

// notification is the union of the provider's notification body shapes.
type notification struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
	ID       any    `json:"id"`
	Data     struct {
		ID any `json:"id"`
	} `json:"data"`
}

// Receive handles GET and POST /webhooks/pagamento requests.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Endpoint liveness probe used when registering the webhook URL.
	if query.Get("ping") != "" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pong": 1})
		return
	}

	var body notification
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err == nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				h.logger.Warn().Err(err).Msg("unparseable webhook body, falling back to query params")
			}
		}
	}

	topic := firstNonEmpty(query.Get("type"), query.Get("topic"), body.Type, body.Topic)
	id := firstNonEmpty(
		query.Get("data.id"),
		query.Get("id"),
		asString(body.Data.ID),
		asString(body.ID),
		resourceID(firstNonEmpty(query.Get("resource"), body.Resource)),
	)

	if topic == "" || id == "" {
		h.logger.Warn().
			Str("query", r.URL.RawQuery).
			Msg("webhook without topic or id, acknowledging")
		// Nothing actionable; a 200 stops pointless provider retries.
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err := h.verifySignature(r, id); err != nil {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Assinatura inválida", h.logger)
		return
	}

	log := h.logger.With().Str("topic", topic).Str("resource_id", id).Logger()

	var err error
	switch topic {
	case "payment":
		err = h.reconciler.ProcessPayment(r.Context(), id, model.EventSourceWebhook)
	case "merchant_order":
		err = h.reconciler.ProcessMerchantOrder(r.Context(), id)
	default:
		log.Info().Msg("ignoring webhook topic")
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if err != nil {
		// A 500 tells the provider to redeliver, which is safe because
		// reconciliation is idempotent.
		log.Error().Err(err).Msg("webhook processing failed")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError,
			"Falha ao processar notificação", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// verifySignature checks the provider's HMAC manifest. An empty secret
// disables verification entirely (dev only, enforced by config.Validate);
// once a secret is configured, a missing or invalid signature is always
// rejected.
func (h *WebhookHandler) verifySignature(r *http.Request, id string) error {
	if h.secret == "" {
		return nil
	}

	header := r.Header.Get(webhook.HeaderSignature)
	requestID := r.Header.Get(webhook.HeaderRequestID)

	if err := webhook.Verify(h.secret, header, id, requestID); err != nil {
		h.logger.Warn().
			Str("resource_id", id).
			Bool("header_present", header != "").
			Msg("webhook signature rejected")
		return err
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// asString normalises the id field, which the provider sends either as a
// JSON string or a number.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// resourceID extracts the trailing id from a resource URL such as
// https://api.example.com/merchant_orders/123.
func resourceID(resource string) string {
	if resource == "" {
		return ""
	}
	trimmed := strings.TrimRight(resource, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}
