package provider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

type MockConfig struct {
	Latency      time.Duration
	RejectAmount decimal.Decimal
}

// MockGateway approves everything except RejectAmount, which it declines with ERROR status.
type MockGateway struct {
	cfg MockConfig
}

func NewMockGateway(cfg MockConfig) *MockGateway {
	return &MockGateway{cfg: cfg}
}

func (g *MockGateway) Name() string {
	return GatewayMock
}

func (g *MockGateway) Process(_ context.Context, payment *entity.Payment, _ string) (*entity.Payment, error) {
	if g.cfg.Latency > 0 {
		time.Sleep(g.cfg.Latency)
	}

	result := *payment
	if !g.cfg.RejectAmount.IsZero() && result.Amount.Equal(g.cfg.RejectAmount) {
		result.Status = entity.PaymentStatusError
		return &result, nil
	}

	result.Status = entity.PaymentStatusApproved
	result.ProviderTransactionID = strPtr("mock_" + uuid.NewString())
	return &result, nil
}
