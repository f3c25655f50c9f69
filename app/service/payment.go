package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/audit"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/crypto"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/factory"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/idempotency"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/provider"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/tenant"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"

type executePaymentRequest interface {
	GetIdempotencyKey() string
	GetAmount() decimal.Decimal
	GetCurrency() string
	GetCustomerEmail() string
	GetMetadata() map[string]string
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, tenantID, id string) (*entity.Payment, error)
	FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*entity.Payment, error)
}

type gatewayConfigRepository interface {
	FindByTenantAndName(ctx context.Context, tenantID, gatewayName string) (*entity.GatewayConfig, error)
}

type auditRecordRepository interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type credentialOpener interface {
	Open(sealed string) (crypto.Credential, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// PaymentService runs the payment protocol: tenant check, idempotency, routing, provider call,
// persistence and audit.
type PaymentService struct {
	paymentRepo       paymentRepository
	gatewayConfigRepo gatewayConfigRepository
	auditRepo         auditRecordRepository
	idempotency       *idempotency.Coordinator
	router            *provider.Router
	providerReg       *provider.Registry
	credentials       credentialOpener
	auditSink         auditRecorder
	paymentsCfg       config.PaymentsConfig
	logger            logrus.FieldLogger
	now               func() time.Time

	tracer          trace.Tracer
	executions      metric.Int64Counter
	providerLatency metric.Float64Histogram
}

func NewPaymentService(
	paymentRepo paymentRepository,
	gatewayConfigRepo gatewayConfigRepository,
	auditRepo auditRecordRepository,
	coordinator *idempotency.Coordinator,
	router *provider.Router,
	providerReg *provider.Registry,
	credentials credentialOpener,
	auditSink auditRecorder,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	logger := factory.NewModuleLogger("payment-service")
	meter := otel.Meter(instrumentationName)

	executions, err := meter.Int64Counter("payments.executions",
		metric.WithDescription("Payment executions by outcome"))
	if err != nil {
		logger.WithError(err).Warn("payments.executions counter unavailable")
	}
	providerLatency, err := meter.Float64Histogram("payments.provider.latency",
		metric.WithDescription("Gateway call latency"),
		metric.WithUnit("ms"))
	if err != nil {
		logger.WithError(err).Warn("payments.provider.latency histogram unavailable")
	}

	return &PaymentService{
		paymentRepo:       paymentRepo,
		gatewayConfigRepo: gatewayConfigRepo,
		auditRepo:         auditRepo,
		idempotency:       coordinator,
		router:            router,
		providerReg:       providerReg,
		credentials:       credentials,
		auditSink:         auditSink,
		paymentsCfg:       paymentsCfg,
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
		tracer:            otel.Tracer(instrumentationName),
		executions:        executions,
		providerLatency:   providerLatency,
	}
}

// ExecutePayment charges the request through the tenant's gateway at most once per idempotency key.
//
// A duplicate of a finished payment gets the cached response back, a duplicate of an in-flight
// payment gets ErrLockConflict. Provider declines come back as ERROR payments and are cached;
// unexpected provider failures release the key so the caller may retry.
func (s *PaymentService) ExecutePayment(ctx context.Context, req executePaymentRequest) (*types.PaymentResponse, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, ErrTenantMissing
	}

	if req.GetIdempotencyKey() == "" || !req.GetAmount().IsPositive() || len(req.GetCurrency()) != 3 {
		return nil, ErrInvalidRequest
	}

	ctx, span := s.tracer.Start(ctx, "payment.execute", trace.WithAttributes(
		attribute.String("tenant.id", t.ID),
	))
	defer span.End()

	decision, err := s.idempotency.Begin(ctx, t.ID, req.GetIdempotencyKey())
	if err != nil {
		s.finishSpan(span, "store_error", err)
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}

	switch decision.Outcome {
	case idempotency.Cached:
		var cached types.PaymentResponse
		if err := json.Unmarshal(decision.Response, &cached); err != nil {
			s.finishSpan(span, "cache_corrupt", err)
			return nil, fmt.Errorf("decode cached response: %w", err)
		}
		s.countExecution(ctx, "cached")
		span.SetAttributes(attribute.String("payment.status", cached.Status))
		s.finishSpan(span, "cached", nil)
		return &cached, nil
	case idempotency.Conflict:
		s.countExecution(ctx, "conflict")
		s.finishSpan(span, "conflict", ErrLockConflict)
		return nil, ErrLockConflict
	}

	// The lock is held from here on. Provider and database work must not be cut short by the
	// caller going away, otherwise the key stays locked until TTL for no reason.
	lockedCtx := context.WithoutCancel(ctx)

	resp, err := s.executeLocked(lockedCtx, t, req, decision.Token, span)
	if err != nil {
		if abortErr := s.idempotency.Abort(lockedCtx, t.ID, req.GetIdempotencyKey(), decision.Token); abortErr != nil {
			s.logger.WithError(abortErr).WithContext(lockedCtx).WithField("tenant_id", t.ID).Warn("idempotency_abort_failed")
		}
		s.countExecution(lockedCtx, "failed")
		s.finishSpan(span, "failed", err)
		return nil, err
	}

	s.countExecution(lockedCtx, resp.Status)
	span.SetAttributes(attribute.String("payment.status", resp.Status))
	s.finishSpan(span, resp.Status, nil)
	return resp, nil
}

// executeLocked runs with the idempotency lock held. Any error it returns makes the caller abort
// the lock; on success the key has been completed.
func (s *PaymentService) executeLocked(
	ctx context.Context,
	t tenant.Context,
	req executePaymentRequest,
	lockToken string,
	span trace.Span,
) (*types.PaymentResponse, error) {
	key := req.GetIdempotencyKey()

	// A payment can outlive its cached response; answer from the row instead of charging again.
	existing, err := s.paymentRepo.FindByIdempotencyKey(ctx, t.ID, key)
	if err != nil {
		return nil, fmt.Errorf("lookup payment by idempotency key: %w", err)
	}
	if existing != nil {
		resp := mapper.PaymentToResponse(existing)
		s.complete(ctx, t.ID, key, lockToken, resp)
		s.logger.WithFields(logrus.Fields{
			"tenant_id":  t.ID,
			"payment_id": existing.ID,
		}).WithContext(ctx).Info("payment_replayed")
		return resp, nil
	}

	gatewayName := s.router.Route(req.GetMetadata())
	span.SetAttributes(attribute.String("payment.gateway", gatewayName))
	return s.process(ctx, t, gatewayName, req, lockToken)
}

func (s *PaymentService) process(
	ctx context.Context,
	t tenant.Context,
	gatewayName string,
	req executePaymentRequest,
	lockToken string,
) (resp *types.PaymentResponse, err error) {
	started := time.Now()
	requestPayload := serializeRequest(req)
	var responsePayload []byte

	defer func() {
		entry := audit.Entry{
			TenantID:    t.ID,
			GatewayName: gatewayName,
			Request:     requestPayload,
			Latency:     time.Since(started),
		}
		if err != nil {
			entry.Status = entity.PaymentStatusError
			entry.Response = "ERROR: " + err.Error()
		} else {
			entry.Status = entity.PaymentStatus(resp.Status)
			entry.Response = string(responsePayload)
		}
		s.auditSink.Record(ctx, entry)
	}()

	gateway, secret, err := s.resolveGateway(ctx, t, gatewayName)
	if err != nil {
		return nil, err
	}

	payment := &entity.Payment{
		ID:             uuid.NewString(),
		TenantID:       t.ID,
		IdempotencyKey: req.GetIdempotencyKey(),
		Amount:         req.GetAmount(),
		Currency:       req.GetCurrency(),
		CustomerEmail:  req.GetCustomerEmail(),
		Status:         entity.PaymentStatusPending,
		Gateway:        gatewayName,
		Metadata:       req.GetMetadata(),
		CreatedAt:      s.now(),
	}

	callStarted := time.Now()
	result, err := gateway.Process(ctx, payment, secret)
	s.recordProviderLatency(ctx, gatewayName, time.Since(callStarted))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailure, gatewayName, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s returned no payment", ErrProviderFailure, gatewayName)
	}

	// Identity fields stay ours; only the outcome is taken from the gateway.
	if err := payment.Transition(result.Status); err != nil {
		return nil, fmt.Errorf("%w: %s returned status %q: %w", ErrProviderFailure, gatewayName, result.Status, err)
	}
	payment.ProviderTransactionID = result.ProviderTransactionID
	payment.QRCode = result.QRCode
	payment.QRCodeBase64 = result.QRCodeBase64

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	resp = mapper.PaymentToResponse(payment)
	responsePayload = s.complete(ctx, t.ID, payment.IdempotencyKey, lockToken, resp)

	s.logger.WithFields(logrus.Fields{
		"tenant_id":  t.ID,
		"payment_id": payment.ID,
		"gateway":    gatewayName,
		"status":     string(payment.Status),
	}).WithContext(ctx).Info("payment_executed")

	return resp, nil
}

// resolveGateway returns the registered gateway and the tenant's decrypted secret for it.
func (s *PaymentService) resolveGateway(ctx context.Context, t tenant.Context, gatewayName string) (provider.Gateway, string, error) {
	cfg, err := s.gatewayConfigRepo.FindByTenantAndName(ctx, t.ID, gatewayName)
	if err != nil {
		return nil, "", fmt.Errorf("lookup gateway config: %w", err)
	}
	if cfg == nil || !cfg.Active {
		return nil, "", &GatewayNotConfiguredError{Gateway: gatewayName, TenantID: t.ID, TenantName: t.Name}
	}

	gateway, err := s.providerReg.Get(gatewayName, t.ID)
	if err != nil {
		return nil, "", err
	}

	credential, err := s.credentials.Open(cfg.EncryptedCredential)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCredentialUnavailable, err)
	}
	secret, err := credential.Get(provider.SecretKeyParam)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCredentialUnavailable, err)
	}

	return gateway, secret, nil
}

// complete caches resp under the key and releases the lock. A cache failure is only logged:
// the persisted payment still answers future duplicates.
func (s *PaymentService) complete(ctx context.Context, tenantID, key, lockToken string, resp *types.PaymentResponse) []byte {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenantID).Error("payment_response_encode_failed")
		if abortErr := s.idempotency.Abort(ctx, tenantID, key, lockToken); abortErr != nil {
			s.logger.WithError(abortErr).WithField("tenant_id", tenantID).Warn("idempotency_abort_failed")
		}
		return nil
	}

	if err := s.idempotency.Complete(ctx, tenantID, key, lockToken, payload); err != nil {
		s.logger.WithError(err).WithContext(ctx).WithField("tenant_id", tenantID).Warn("idempotency_complete_failed")
	}
	return payload
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*types.PaymentResponse, error) {
	t, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, ErrTenantMissing
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidRequest
	}

	payment, err := s.paymentRepo.FindByID(ctx, t.ID, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return mapper.PaymentToResponse(payment), nil
}

type auditRequestPayload struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency"`
	CustomerEmail  string            `json:"customer_email"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func serializeRequest(req executePaymentRequest) string {
	payload, err := json.Marshal(auditRequestPayload{
		IdempotencyKey: req.GetIdempotencyKey(),
		Amount:         req.GetAmount(),
		Currency:       req.GetCurrency(),
		CustomerEmail:  req.GetCustomerEmail(),
		Metadata:       req.GetMetadata(),
	})
	if err != nil {
		return ""
	}
	return string(payload)
}

func (s *PaymentService) countExecution(ctx context.Context, outcome string) {
	if s.executions == nil {
		return
	}
	s.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (s *PaymentService) recordProviderLatency(ctx context.Context, gatewayName string, elapsed time.Duration) {
	if s.providerLatency == nil {
		return
	}
	s.providerLatency.Record(ctx, float64(elapsed.Microseconds())/1000,
		metric.WithAttributes(attribute.String("gateway", gatewayName)))
}

func (s *PaymentService) finishSpan(span trace.Span, outcome string, err error) {
	span.SetAttributes(attribute.String("payment.outcome", outcome))
	if err != nil && !errors.Is(err, ErrLockConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
