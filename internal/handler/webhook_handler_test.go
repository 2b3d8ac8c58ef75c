package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loja-core/internal/model"
	"loja-core/internal/webhook"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockReconciler is a mock implementation of PaymentReconciler.
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) ProcessPayment(ctx context.Context, paymentID, source string) error {
	args := m.Called(ctx, paymentID, source)
	return args.Error(0)
}

func (m *MockReconciler) ProcessMerchantOrder(ctx context.Context, merchantOrderID string) error {
	args := m.Called(ctx, merchantOrderID)
	return args.Error(0)
}

func newWebhookHandler(rec *MockReconciler, secret string) *WebhookHandler {
	return NewWebhookHandler(rec, secret, zerolog.Nop())
}

func TestWebhook_PingRespondsPong(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "")

	req := httptest.NewRequest(http.MethodGet, "/webhooks/pagamento?ping=1", nil)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pong":1`)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_PaymentTopicFromQueryParams(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("ProcessPayment", mock.Anything, "12345", model.EventSourceWebhook).Return(nil)
	h := newWebhookHandler(rec, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertExpectations(t)
}

func TestWebhook_PaymentTopicFromJSONBodyWithNumericID(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("ProcessPayment", mock.Anything, "12345", model.EventSourceWebhook).Return(nil)
	h := newWebhookHandler(rec, "")

	body := `{"type":"payment","action":"payment.updated","data":{"id":12345}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertExpectations(t)
}

func TestWebhook_MerchantOrderFromResourceURL(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("ProcessMerchantOrder", mock.Anything, "777").Return(nil)
	h := newWebhookHandler(rec, "")

	body := `{"topic":"merchant_order","resource":"https://api.provider.com/merchant_orders/777"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertExpectations(t)
}

func TestWebhook_ValidSignatureAccepted(t *testing.T) {
	const secret = "super-secret"
	rec := new(MockReconciler)
	rec.On("ProcessPayment", mock.Anything, "12345", model.EventSourceWebhook).Return(nil)
	h := newWebhookHandler(rec, secret)

	requestID := "req-abc"
	ts := time.Now().Unix()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	req.Header.Set(webhook.HeaderSignature, webhook.SignatureHeader(secret, "12345", requestID, ts))
	req.Header.Set(webhook.HeaderRequestID, requestID)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertExpectations(t)
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "super-secret")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	req.Header.Set(webhook.HeaderSignature, webhook.SignatureHeader("wrong-secret", "12345", "req-abc", time.Now().Unix()))
	req.Header.Set(webhook.HeaderRequestID, "req-abc")
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "super-secret")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_ForgedSignatureRejectedWithConfiguredSecret(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "real-secret")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	req.Header.Set(webhook.HeaderSignature, "ts=1700000000,v1=deadbeef")
	req.Header.Set(webhook.HeaderRequestID, "req-abc")
	w := httptest.NewRecorder()

	h.Receive(w, req)

	// Once a secret is configured there is no environment that lets a bad
	// signature through.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_ReconcileFailureReturns500(t *testing.T) {
	rec := new(MockReconciler)
	rec.On("ProcessPayment", mock.Anything, "12345", model.EventSourceWebhook).Return(errors.New("db down"))
	h := newWebhookHandler(rec, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=payment&data.id=12345", nil)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	// Non-2xx makes the provider redeliver; reconciliation is idempotent
	// so the retry is safe.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhook_MissingTopicOrIDAcknowledged(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
	rec.AssertNotCalled(t, "ProcessMerchantOrder", mock.Anything, mock.Anything)
}

func TestWebhook_UnknownTopicIgnored(t *testing.T) {
	rec := new(MockReconciler)
	h := newWebhookHandler(rec, "")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagamento?type=plan&id=55", nil)
	w := httptest.NewRecorder()

	h.Receive(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	rec.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything, mock.Anything)
}
