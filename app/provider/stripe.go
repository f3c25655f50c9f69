package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

const defaultStripeBaseURL = "https://api.stripe.com"

type StripeConfig struct {
	BaseURL       string
	PaymentMethod string
	HTTPTimeout   time.Duration
}

type StripeGateway struct {
	cfg    StripeConfig
	client *resty.Client
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultStripeBaseURL
	}
	if strings.TrimSpace(cfg.PaymentMethod) == "" {
		cfg.PaymentMethod = "pm_card_visa"
	}

	return &StripeGateway{
		cfg:    cfg,
		client: newHTTPClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.HTTPTimeout),
	}
}

func (g *StripeGateway) Name() string {
	return GatewayStripe
}

type stripePaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type stripeErrorEnvelope struct {
	Error struct {
		Type          string               `json:"type"`
		Code          string               `json:"code"`
		Message       string               `json:"message"`
		PaymentIntent *stripePaymentIntent `json:"payment_intent"`
	} `json:"error"`
}

// zeroDecimalCurrencies are charged in whole units by Stripe.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// Process creates and confirms a PaymentIntent. Only 400 and 402 answers are declines and come
// back as ERROR payments. Auth failures, rate limits, in-flight conflicts, other 4xx, 5xx and
// transport failures are returned as errors so the key can be retried.
func (g *StripeGateway) Process(ctx context.Context, payment *entity.Payment, secret string) (*entity.Payment, error) {
	form := map[string]string{
		"amount":                    strconv.FormatInt(minorUnits(payment.Amount, payment.Currency), 10),
		"currency":                  strings.ToLower(payment.Currency),
		"payment_method":            g.cfg.PaymentMethod,
		"confirm":                   "true",
		"metadata[idempotency_key]": payment.IdempotencyKey,
		"metadata[tenant_id]":       payment.TenantID,
	}
	if payment.CustomerEmail != "" {
		form["receipt_email"] = payment.CustomerEmail
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(secret).
		SetHeader("Idempotency-Key", payment.TenantID+":"+payment.IdempotencyKey).
		SetFormData(form).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest && !stripeDeclined(resp.StatusCode()) {
		return nil, fmt.Errorf("stripe request failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	result := *payment
	if resp.StatusCode() >= http.StatusBadRequest {
		var envelope stripeErrorEnvelope
		if json.Unmarshal(resp.Body(), &envelope) == nil && envelope.Error.PaymentIntent != nil {
			result.ProviderTransactionID = strPtr(envelope.Error.PaymentIntent.ID)
		}
		result.Status = entity.PaymentStatusError
		return &result, nil
	}

	var intent stripePaymentIntent
	if err := json.Unmarshal(resp.Body(), &intent); err != nil {
		return nil, fmt.Errorf("stripe response decode failed: %w", err)
	}

	result.ProviderTransactionID = strPtr(intent.ID)
	result.Status = stripeStatus(intent.Status)
	return &result, nil
}

func stripeStatus(status string) entity.PaymentStatus {
	switch status {
	case "succeeded":
		return entity.PaymentStatusApproved
	case "processing", "requires_action", "requires_capture":
		return entity.PaymentStatusPending
	default:
		return entity.PaymentStatusError
	}
}

func stripeDeclined(statusCode int) bool {
	return statusCode == http.StatusBadRequest || statusCode == http.StatusPaymentRequired
}

func minorUnits(amount decimal.Decimal, currency string) int64 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
