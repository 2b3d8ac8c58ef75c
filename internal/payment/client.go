// Package payment talks to the external checkout provider and builds
// checkout-session (preference) requests.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"loja-core/internal/model"

	"github.com/rs/zerolog"
)

// API is the subset of the provider the core depends on. The reconciler uses
// GetPayment/GetMerchantOrder to fetch authoritative state; checkout uses
// CreatePreference.
type API interface {
	CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error)
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
}

// MerchantOrder groups the payments of one checkout session.
type MerchantOrder struct {
	ID       int64 `json:"id"`
	Payments []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"payments"`
}

// Preference is the created checkout session.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a provider client. All calls carry a 12 second timeout
// per request context.
func NewClient(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
		logger: logger.With().Str("component", "payment-client").Logger(),
	}
}

// CreatePreference creates a checkout session at the provider.
func (c *Client) CreatePreference(ctx context.Context, req *PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("preference_id", pref.ID).
		Str("external_reference", req.ExternalReference).
		Msg("preference created")

	return &pref, nil
}

// GetPayment fetches the current authoritative state of a payment.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMerchantOrder fetches a merchant order and its payment list.
func (c *Client) GetMerchantOrder(ctx context.Context, id string) (*MerchantOrder, error) {
	var mo MerchantOrder
	if err := c.do(ctx, http.MethodGet, "/merchant_orders/"+id, nil, &mo); err != nil {
		return nil, err
	}
	return &mo, nil
}

// do performs one provider round-trip. Any non-2xx status is surfaced as a
// *model.ProviderError carrying the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal provider request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("provider call failed")
		return fmt.Errorf("provider call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("provider returned error status")
		return &model.ProviderError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}
