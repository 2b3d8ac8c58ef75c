package payment

import (
	"net/url"
	"strings"

	"loja-core/internal/model"

	"github.com/rs/zerolog"
)

// PreferenceRequest is the checkout-session creation payload.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             PreferencePayer  `json:"payer"`
	BackURLs          BackURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	NotificationURL   string           `json:"notification_url"`
	ExternalReference string           `json:"external_reference"`
	PaymentMethods    PaymentMethods   `json:"payment_methods"`
}

// PreferenceItem is one checkout line.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
	PictureURL string  `json:"picture_url,omitempty"`
}

// PreferencePayer identifies the buyer.
type PreferencePayer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// BackURLs are where the provider redirects the buyer afterwards.
type BackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

// PaymentMethods restricts which provider payment types are offered.
type PaymentMethods struct {
	ExcludedPaymentTypes []PaymentTypeRef `json:"excluded_payment_types,omitempty"`
	Installments         int              `json:"installments,omitempty"`
}

// PaymentTypeRef references a provider payment type by id.
type PaymentTypeRef struct {
	ID string `json:"id"`
}

// BuilderConfig configures preference construction.
type BuilderConfig struct {
	// PublicBaseURL is the https origin unsafe back-urls are rewritten to.
	PublicBaseURL string
	// NotificationPath is appended to PublicBaseURL for webhooks.
	NotificationPath string
	// Dev permits http/localhost back-urls.
	Dev bool
}

// Builder constructs provider preference requests from orders.
type Builder struct {
	cfg    BuilderConfig
	logger zerolog.Logger
}

// NewBuilder creates a preference builder.
func NewBuilder(cfg BuilderConfig, logger zerolog.Logger) *Builder {
	if cfg.NotificationPath == "" {
		cfg.NotificationPath = "/webhooks/pagamento"
	}
	return &Builder{
		cfg:    cfg,
		logger: logger.With().Str("component", "preference-builder").Logger(),
	}
}

// excludedTypesByMethod maps the chosen payment method to the provider
// payment types that must be switched off so the buyer cannot pay another
// way than the one the order was priced for.
var excludedTypesByMethod = map[string][]string{
	model.PaymentMethodPix:    {"credit_card", "debit_card", "ticket", "atm"},
	model.PaymentMethodCartao: {"pix", "bank_transfer", "ticket", "atm"},
}

// Build assembles the preference request for an order. backBase is the
// origin the storefront asked to be redirected to; it is sanitised before
// use (see sanitizeBackBase).
func (b *Builder) Build(order *model.Order, items []model.OrderItem, backBase string) *PreferenceRequest {
	base := b.sanitizeBackBase(backBase)

	prefItems := make([]PreferenceItem, 0, len(items)+1)
	for _, item := range items {
		prefItems = append(prefItems, PreferenceItem{
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			CurrencyID: "BRL",
			PictureURL: item.ImageURL,
		})
	}

	// Shipping and discount are folded into an adjustment line so the
	// provider total matches the order total exactly.
	if adjust := order.Shipping - order.Discount; adjust != 0 {
		prefItems = append(prefItems, PreferenceItem{
			Title:      "Frete e descontos",
			Quantity:   1,
			UnitPrice:  adjust,
			CurrencyID: "BRL",
		})
	}

	var excluded []PaymentTypeRef
	for _, id := range excludedTypesByMethod[order.PaymentMethod] {
		excluded = append(excluded, PaymentTypeRef{ID: id})
	}

	return &PreferenceRequest{
		Items: prefItems,
		Payer: PreferencePayer{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
		},
		BackURLs: BackURLs{
			Success: base + "/pedido/confirmado",
			Pending: base + "/pedido/pendente",
			Failure: base + "/pedido/erro",
		},
		AutoReturn:        "approved",
		NotificationURL:   b.cfg.PublicBaseURL + b.cfg.NotificationPath,
		ExternalReference: order.ID.String(),
		PaymentMethods: PaymentMethods{
			ExcludedPaymentTypes: excluded,
			Installments:         12,
		},
	}
}

// sanitizeBackBase validates the storefront origin for back-urls. Outside
// dev, anything that is not https or that points at localhost is replaced
// with the configured public base URL.
func (b *Builder) sanitizeBackBase(backBase string) string {
	if backBase == "" {
		return b.cfg.PublicBaseURL
	}

	u, err := url.Parse(backBase)
	if err != nil || u.Host == "" {
		b.logger.Warn().Str("back_base", backBase).Msg("unparseable back-url origin, using public base")
		return b.cfg.PublicBaseURL
	}

	host := u.Hostname()
	isLocal := host == "localhost" || host == "127.0.0.1" || strings.HasSuffix(host, ".local")

	if b.cfg.Dev {
		return strings.TrimSuffix(backBase, "/")
	}

	if isLocal {
		b.logger.Warn().Str("back_base", backBase).Msg("localhost back-url rejected, using public base")
		return b.cfg.PublicBaseURL
	}

	if u.Scheme != "https" {
		u.Scheme = "https"
		b.logger.Debug().Str("back_base", backBase).Msg("back-url rewritten to https")
	}

	return strings.TrimSuffix(u.String(), "/")
}
