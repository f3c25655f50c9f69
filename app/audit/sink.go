package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

type recordRepository interface {
	Create(ctx context.Context, record *entity.AuditRecord) error
}

// Entry is one payment attempt as seen by the orchestrator.
type Entry struct {
	TenantID    string
	GatewayName string
	Request     string
	Response    string
	Status      entity.PaymentStatus
	Latency     time.Duration
}

// Sink appends audit records. Record never fails: write errors are logged and dropped.
type Sink struct {
	records recordRepository
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewSink(records recordRepository, logger logrus.FieldLogger) *Sink {
	return &Sink{
		records: records,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sink) Record(ctx context.Context, entry Entry) {
	if err := s.write(ctx, entry); err != nil {
		s.logger.WithError(err).WithContext(ctx).WithFields(logrus.Fields{
			"tenant_id": entry.TenantID,
			"gateway":   entry.GatewayName,
			"status":    string(entry.Status),
		}).Warn("audit_write_failed")
	}
}

func (s *Sink) write(ctx context.Context, entry Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit write panicked: %v", r)
		}
	}()

	if _, err := uuid.Parse(entry.TenantID); err != nil {
		return fmt.Errorf("invalid tenant id %q: %w", entry.TenantID, err)
	}

	latencyMs := float64(entry.Latency.Microseconds()) / 1000
	if latencyMs <= 0 {
		latencyMs = 0.001
	}

	return s.records.Create(ctx, &entity.AuditRecord{
		ID:              uuid.NewString(),
		TenantID:        entry.TenantID,
		GatewayName:     entry.GatewayName,
		RequestPayload:  entry.Request,
		ResponsePayload: entry.Response,
		Status:          entry.Status,
		LatencyMs:       latencyMs,
		CreatedAt:       s.now(),
	})
}
