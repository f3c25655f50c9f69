package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

func TestPaymentToResponse(t *testing.T) {
	tx := "pi_1"
	qr := "000201"
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	resp := PaymentToResponse(&entity.Payment{
		ID:                    "p-1",
		Amount:                decimal.RequireFromString("10.50"),
		Currency:              "BRL",
		Status:                entity.PaymentStatusPending,
		ProviderTransactionID: &tx,
		QRCode:                &qr,
		CreatedAt:             createdAt,
	})

	if resp.PaymentID != "p-1" || resp.Status != "PENDING" || resp.Currency != "BRL" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ProviderTransactionID != "pi_1" || resp.QRCode != "000201" || resp.QRCodeBase64 != "" {
		t.Fatalf("unexpected optional fields: %+v", resp)
	}
	if !resp.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected created_at: %v", resp.CreatedAt)
	}
}

func TestPaymentToResponseNil(t *testing.T) {
	if PaymentToResponse(nil) != nil {
		t.Fatal("expected nil response")
	}
}
