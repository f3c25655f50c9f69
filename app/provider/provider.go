package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	GatewayMock        = "MOCK"
	GatewayStripe      = "STRIPE"
	GatewayMercadoPago = "MERCADOPAGO"

	// SecretKeyParam is the credential parameter every gateway reads its API secret from.
	SecretKeyParam = "secretKey"

	defaultHTTPTimeout = 10 * time.Second
)

// Gateway is the single capability every payment provider exposes.
//
// Implementations must return a payment with ERROR status for business rejections (declines,
// validation errors reported by the provider) and reserve the error return for transport-level
// or otherwise unexpected failures. The orchestrator caches the former and retries the latter.
type Gateway interface {
	Name() string
	Process(ctx context.Context, payment *entity.Payment, secret string) (*entity.Payment, error)
}

func newHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	})
	client.SetBaseURL(baseURL)
	return client
}

func strPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
