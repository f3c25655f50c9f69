package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

type AuditRecordRepository struct {
	db DBTX
}

func NewAuditRecordRepository(db DBTX) *AuditRecordRepository {
	return &AuditRecordRepository{db: db}
}

func (r *AuditRecordRepository) Create(ctx context.Context, record *entity.AuditRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query := `
		INSERT INTO audit_records (
			id, tenant_id, gateway_name, request_payload, response_payload, status, latency_ms, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.TenantID,
		record.GatewayName,
		record.RequestPayload,
		record.ResponsePayload,
		string(record.Status),
		record.LatencyMs,
		record.CreatedAt,
	)
	return err
}

// DeleteOlderThan removes records created before cutoff and returns how many were removed.
func (r *AuditRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
