package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

func newStripeTestPayment() *entity.Payment {
	return &entity.Payment{
		TenantID:       "tenant-1",
		IdempotencyKey: "key-1",
		Amount:         decimal.RequireFromString("12.34"),
		Currency:       "USD",
		CustomerEmail:  "buyer@example.com",
		Status:         entity.PaymentStatusPending,
	}
}

func TestStripeGatewayApproves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("unexpected authorization: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Idempotency-Key") != "tenant-1:key-1" {
			t.Errorf("unexpected idempotency key: %s", r.Header.Get("Idempotency-Key"))
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("amount") != "1234" || r.Form.Get("currency") != "usd" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
	out, err := g.Process(context.Background(), newStripeTestPayment(), "sk_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != entity.PaymentStatusApproved {
		t.Fatalf("expected APPROVED, got %s", out.Status)
	}
	if out.ProviderTransactionID == nil || *out.ProviderTransactionID != "pi_123" {
		t.Fatalf("unexpected transaction id: %v", out.ProviderTransactionID)
	}
}

func TestStripeGatewayDeclineIsStructured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","payment_intent":{"id":"pi_declined","status":"requires_payment_method"}}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
	out, err := g.Process(context.Background(), newStripeTestPayment(), "sk_test")
	if err != nil {
		t.Fatalf("expected structured decline, got error %v", err)
	}
	if out.Status != entity.PaymentStatusError {
		t.Fatalf("expected ERROR, got %s", out.Status)
	}
	if out.ProviderTransactionID == nil || *out.ProviderTransactionID != "pi_declined" {
		t.Fatalf("expected declined intent id, got %v", out.ProviderTransactionID)
	}
}

func TestStripeGatewayServerErrorIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
	if _, err := g.Process(context.Background(), newStripeTestPayment(), "sk_test"); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}

func TestStripeGatewayRetryableClientErrorsAreUnexpected(t *testing.T) {
	statuses := []int{
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusConflict,
		http.StatusTooManyRequests,
	}
	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"try again"}}`))
			}))
			defer srv.Close()

			g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
			out, err := g.Process(context.Background(), newStripeTestPayment(), "sk_test")
			if err == nil {
				t.Fatalf("expected error for status %d, got payment %+v", status, out)
			}
		})
	}
}

func TestStripeGatewayBadRequestIsDecline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"amount_too_small"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
	out, err := g.Process(context.Background(), newStripeTestPayment(), "sk_test")
	if err != nil {
		t.Fatalf("expected structured decline, got error %v", err)
	}
	if out.Status != entity.PaymentStatusError {
		t.Fatalf("expected ERROR, got %s", out.Status)
	}
}

func TestStripeGatewayChargesZeroDecimalCurrencyInWholeUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("amount") != "1500" || r.Form.Get("currency") != "jpy" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		_, _ = w.Write([]byte(`{"id":"pi_jpy","status":"succeeded"}`))
	}))
	defer srv.Close()

	payment := newStripeTestPayment()
	payment.Amount = decimal.RequireFromString("1500")
	payment.Currency = "JPY"

	g := NewStripeGateway(StripeConfig{BaseURL: srv.URL})
	if _, err := g.Process(context.Background(), payment, "sk_test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStripeStatusMapping(t *testing.T) {
	cases := map[string]entity.PaymentStatus{
		"succeeded":               entity.PaymentStatusApproved,
		"processing":              entity.PaymentStatusPending,
		"requires_action":         entity.PaymentStatusPending,
		"requires_payment_method": entity.PaymentStatusError,
		"canceled":                entity.PaymentStatusError,
	}
	for in, want := range cases {
		if got := stripeStatus(in); got != want {
			t.Fatalf("stripeStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"99.99", "USD", 9999},
		{"0.005", "usd", 1},
		{"1500", "JPY", 1500},
		{"1500", "krw", 1500},
		{"10.50", "BRL", 1050},
	}
	for _, tc := range cases {
		if got := minorUnits(decimal.RequireFromString(tc.amount), tc.currency); got != tc.want {
			t.Fatalf("minorUnits(%s, %s) = %d, want %d", tc.amount, tc.currency, got, tc.want)
		}
	}
}
