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
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

const defaultMercadoPagoBaseURL = "https://api.mercadopago.com"

type MercadoPagoConfig struct {
	BaseURL     string
	Description string
	HTTPTimeout time.Duration
}

// MercadoPagoGateway issues pix charges. Approval is asynchronous: a successful call returns a
// PENDING payment carrying the QR code the customer pays with.
type MercadoPagoGateway struct {
	cfg    MercadoPagoConfig
	client *resty.Client
}

func NewMercadoPagoGateway(cfg MercadoPagoConfig) *MercadoPagoGateway {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultMercadoPagoBaseURL
	}
	if strings.TrimSpace(cfg.Description) == "" {
		cfg.Description = "payment"
	}

	return &MercadoPagoGateway{
		cfg:    cfg,
		client: newHTTPClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.HTTPTimeout),
	}
}

func (g *MercadoPagoGateway) Name() string {
	return GatewayMercadoPago
}

type mercadoPagoPayer struct {
	Email string `json:"email"`
}

type mercadoPagoRequest struct {
	TransactionAmount float64           `json:"transaction_amount"`
	Description       string            `json:"description"`
	PaymentMethodID   string            `json:"payment_method_id"`
	ExternalReference string            `json:"external_reference"`
	Payer             mercadoPagoPayer  `json:"payer"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type mercadoPagoTransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

type mercadoPagoPointOfInteraction struct {
	TransactionData *mercadoPagoTransactionData `json:"transaction_data"`
}

type mercadoPagoResponse struct {
	ID                 int64                          `json:"id"`
	Status             string                         `json:"status"`
	PointOfInteraction *mercadoPagoPointOfInteraction `json:"point_of_interaction"`
}

func (g *MercadoPagoGateway) Process(ctx context.Context, payment *entity.Payment, secret string) (*entity.Payment, error) {
	body := mercadoPagoRequest{
		TransactionAmount: payment.Amount.InexactFloat64(),
		Description:       g.cfg.Description,
		PaymentMethodID:   "pix",
		ExternalReference: payment.IdempotencyKey,
		Payer:             mercadoPagoPayer{Email: payment.CustomerEmail},
		Metadata:          map[string]string{"tenant_id": payment.TenantID},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(secret).
		SetHeader("X-Idempotency-Key", payment.TenantID+":"+payment.IdempotencyKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/v1/payments")
	if err != nil {
		return nil, fmt.Errorf("mercadopago request failed: %w", err)
	}

	// 400 and 422 reject the charge itself; anything else may succeed on retry.
	if resp.StatusCode() >= http.StatusBadRequest &&
		resp.StatusCode() != http.StatusBadRequest && resp.StatusCode() != http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("mercadopago request failed: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	result := *payment
	if resp.StatusCode() >= http.StatusBadRequest {
		result.Status = entity.PaymentStatusError
		return &result, nil
	}

	var payload mercadoPagoResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("mercadopago response decode failed: %w", err)
	}

	if payload.ID > 0 {
		result.ProviderTransactionID = strPtr(strconv.FormatInt(payload.ID, 10))
	}
	result.Status = mercadoPagoStatus(payload.Status)
	if poi := payload.PointOfInteraction; poi != nil && poi.TransactionData != nil {
		result.QRCode = strPtr(poi.TransactionData.QRCode)
		result.QRCodeBase64 = strPtr(poi.TransactionData.QRCodeBase64)
	}

	return &result, nil
}

func mercadoPagoStatus(status string) entity.PaymentStatus {
	switch status {
	case "approved", "authorized":
		return entity.PaymentStatusApproved
	case "pending", "in_process", "in_mediation":
		return entity.PaymentStatusPending
	default:
		return entity.PaymentStatusError
	}
}
