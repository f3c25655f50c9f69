package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/audit"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/crypto"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/idempotency"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/provider"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/tenant"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/config"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	grpcTenantID       = "0b8f3f51-5bb9-4c53-a5a3-6f7f2b0c8c11"
	grpcCredentialsKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
)

type grpcPaymentRepo struct {
	createFn               func(ctx context.Context, payment *entity.Payment) error
	findByIDFn             func(ctx context.Context, tenantID, id string) (*entity.Payment, error)
	findByIdempotencyKeyFn func(ctx context.Context, tenantID, key string) (*entity.Payment, error)
}

func (r *grpcPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if r.createFn != nil {
		return r.createFn(ctx, payment)
	}
	return nil
}

func (r *grpcPaymentRepo) FindByID(ctx context.Context, tenantID, id string) (*entity.Payment, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, tenantID, id)
	}
	return nil, nil
}

func (r *grpcPaymentRepo) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*entity.Payment, error) {
	if r.findByIdempotencyKeyFn != nil {
		return r.findByIdempotencyKeyFn(ctx, tenantID, key)
	}
	return nil, nil
}

type grpcGatewayConfigRepo struct {
	findFn func(ctx context.Context, tenantID, gatewayName string) (*entity.GatewayConfig, error)
}

func (r *grpcGatewayConfigRepo) FindByTenantAndName(ctx context.Context, tenantID, gatewayName string) (*entity.GatewayConfig, error) {
	if r.findFn != nil {
		return r.findFn(ctx, tenantID, gatewayName)
	}
	return nil, nil
}

type grpcAuditRepo struct{}

func (grpcAuditRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type grpcAuditRecorder struct{}

func (grpcAuditRecorder) Record(context.Context, audit.Entry) {}

type grpcGateway struct {
	processFn func(ctx context.Context, payment *entity.Payment, secret string) (*entity.Payment, error)
}

func (g *grpcGateway) Name() string {
	return provider.GatewayMock
}

func (g *grpcGateway) Process(ctx context.Context, payment *entity.Payment, secret string) (*entity.Payment, error) {
	if g.processFn != nil {
		return g.processFn(ctx, payment, secret)
	}
	result := *payment
	result.Status = entity.PaymentStatusApproved
	result.ProviderTransactionID = stringPtr("mock_tx")
	return &result, nil
}

func stringPtr(v string) *string {
	return &v
}

type grpcFixture struct {
	server   *Server
	payments *grpcPaymentRepo
	configs  *grpcGatewayConfigRepo
	gateway  *grpcGateway
}

func newGRPCFixture(t *testing.T) *grpcFixture {
	t.Helper()

	cipher, err := crypto.NewCredentialCipher(grpcCredentialsKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	sealed, err := cipher.Seal(crypto.Credential{"secretKey": "sk"})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	logger, _ := test.NewNullLogger()
	store := idempotency.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	f := &grpcFixture{
		payments: &grpcPaymentRepo{},
		configs: &grpcGatewayConfigRepo{
			findFn: func(_ context.Context, tenantID, gatewayName string) (*entity.GatewayConfig, error) {
				return &entity.GatewayConfig{TenantID: tenantID, GatewayName: gatewayName, EncryptedCredential: sealed, Active: true}, nil
			},
		},
		gateway: &grpcGateway{},
	}

	paymentService := service.NewPaymentService(
		f.payments,
		f.configs,
		grpcAuditRepo{},
		idempotency.NewCoordinator(store, idempotency.Config{}, logger),
		provider.NewRouter(provider.GatewayMock),
		provider.NewRegistry(f.gateway),
		cipher,
		grpcAuditRecorder{},
		config.PaymentsConfig{},
	)
	f.server = NewServer(paymentService)
	return f
}

func tenantContext() context.Context {
	return tenant.WithTenant(context.Background(), tenant.Context{ID: grpcTenantID, Name: "Acme"})
}

func mustStruct(t *testing.T, fields map[string]interface{}) *structpb.Struct {
	t.Helper()
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return msg
}

func validPaymentFields() map[string]interface{} {
	return map[string]interface{}{
		"idempotency_key": "key-1",
		"amount":          "10.00",
		"currency":        "usd",
		"customer_email":  "buyer@example.com",
	}
}

func TestServerHealth(t *testing.T) {
	f := newGRPCFixture(t)
	resp, err := f.server.Health(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.GetFields()["status"].GetStringValue(); got != "ok" {
		t.Fatalf("expected ok, got %q", got)
	}
}

func TestServerExecutePayment(t *testing.T) {
	f := newGRPCFixture(t)

	resp, err := f.server.ExecutePayment(tenantContext(), mustStruct(t, validPaymentFields()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := resp.GetFields()
	if fields["status"].GetStringValue() != "APPROVED" {
		t.Fatalf("expected APPROVED, got %v", fields["status"])
	}
	if fields["currency"].GetStringValue() != "USD" {
		t.Fatalf("expected USD, got %v", fields["currency"])
	}
	if fields["provider_transaction_id"].GetStringValue() != "mock_tx" {
		t.Fatalf("expected mock_tx, got %v", fields["provider_transaction_id"])
	}
	if fields["payment_id"].GetStringValue() == "" {
		t.Fatal("expected payment id")
	}
}

func TestServerExecutePaymentAcceptsNumericAmountAndMetadataKey(t *testing.T) {
	f := newGRPCFixture(t)

	var seenKey string
	f.payments.createFn = func(_ context.Context, payment *entity.Payment) error {
		seenKey = payment.IdempotencyKey
		if payment.Amount.String() != "12.5" {
			return fmt.Errorf("unexpected amount %s", payment.Amount.String())
		}
		return nil
	}

	fields := validPaymentFields()
	delete(fields, "idempotency_key")
	fields["amount"] = 12.5
	ctx := metadata.NewIncomingContext(tenantContext(), metadata.Pairs(idempotencyKeyHeader, "meta-key"))

	if _, err := f.server.ExecutePayment(ctx, mustStruct(t, fields)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenKey != "meta-key" {
		t.Fatalf("expected metadata idempotency key, got %q", seenKey)
	}
}

func TestServerExecutePaymentErrorCodes(t *testing.T) {
	cases := []struct {
		name     string
		ctx      context.Context
		fields   map[string]interface{}
		setup    func(f *grpcFixture)
		wantCode codes.Code
	}{
		{
			name: "validation",
			ctx:  tenantContext(),
			fields: map[string]interface{}{
				"idempotency_key": "k",
				"amount":          "10",
				"currency":        "US",
				"customer_email":  "buyer@example.com",
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "tenant missing",
			ctx:      context.Background(),
			fields:   validPaymentFields(),
			wantCode: codes.Unauthenticated,
		},
		{
			name:   "gateway not configured",
			ctx:    tenantContext(),
			fields: validPaymentFields(),
			setup: func(f *grpcFixture) {
				f.configs.findFn = nil
			},
			wantCode: codes.FailedPrecondition,
		},
		{
			name:   "provider failure",
			ctx:    tenantContext(),
			fields: validPaymentFields(),
			setup: func(f *grpcFixture) {
				f.gateway.processFn = func(context.Context, *entity.Payment, string) (*entity.Payment, error) {
					return nil, errors.New("timeout")
				}
			},
			wantCode: codes.Unavailable,
		},
		{
			name:   "repository failure",
			ctx:    tenantContext(),
			fields: validPaymentFields(),
			setup: func(f *grpcFixture) {
				f.payments.createFn = func(context.Context, *entity.Payment) error {
					return errors.New("db down")
				}
			},
			wantCode: codes.Internal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGRPCFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.server.ExecutePayment(tc.ctx, mustStruct(t, tc.fields))
			if status.Code(err) != tc.wantCode {
				t.Fatalf("expected %s, got %v", tc.wantCode, err)
			}
		})
	}
}

func TestServerGetPayment(t *testing.T) {
	const paymentID = "5f0c9a3e-2d7b-4f59-9a34-1c2d3e4f5a6b"

	f := newGRPCFixture(t)
	f.payments.findByIDFn = func(_ context.Context, tenantID, id string) (*entity.Payment, error) {
		if tenantID != grpcTenantID || id != paymentID {
			return nil, nil
		}
		return &entity.Payment{ID: id, TenantID: tenantID, Status: entity.PaymentStatusPending, Currency: "BRL"}, nil
	}

	resp, err := f.server.GetPayment(tenantContext(), mustStruct(t, map[string]interface{}{"id": paymentID}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.GetFields()["status"].GetStringValue() != "PENDING" {
		t.Fatalf("unexpected response: %v", resp)
	}

	_, err = f.server.GetPayment(tenantContext(), mustStruct(t, map[string]interface{}{"id": "8b6f8f3c-3f43-4f0e-9a53-0c3f0f4f8a11"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	_, err = f.server.GetPayment(tenantContext(), mustStruct(t, map[string]interface{}{"id": "not-a-uuid"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestGRPCStatusForErrorConflict(t *testing.T) {
	code, _ := grpcStatusForError(fmt.Errorf("wrapped: %w", service.ErrLockConflict))
	if code != codes.Aborted {
		t.Fatalf("expected Aborted, got %s", code)
	}
}
