package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

type GatewayConfigRepository struct {
	db DBTX
}

func NewGatewayConfigRepository(db DBTX) *GatewayConfigRepository {
	return &GatewayConfigRepository{db: db}
}

// FindByTenantAndName returns nil when the tenant has no row for gatewayName. Inactive rows are
// returned as-is; callers decide what inactive means.
func (r *GatewayConfigRepository) FindByTenantAndName(ctx context.Context, tenantID, gatewayName string) (*entity.GatewayConfig, error) {
	query := `
		SELECT id, tenant_id, gateway_name, encrypted_credential, priority, active, created_at, updated_at
		FROM gateway_configs
		WHERE tenant_id = ? AND gateway_name = ?
		LIMIT 1
	`

	cfg := &entity.GatewayConfig{}
	err := r.db.QueryRowContext(ctx, query, tenantID, strings.ToUpper(gatewayName)).Scan(
		&cfg.ID,
		&cfg.TenantID,
		&cfg.GatewayName,
		&cfg.EncryptedCredential,
		&cfg.Priority,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Upsert inserts the config or replaces credential, priority and active flag of the existing
// (tenant, gateway) row. cfg.ID is set to the stored row id.
func (r *GatewayConfigRepository) Upsert(ctx context.Context, cfg *entity.GatewayConfig) error {
	cfg.GatewayName = strings.ToUpper(cfg.GatewayName)

	existing, err := r.FindByTenantAndName(ctx, cfg.TenantID, cfg.GatewayName)
	if err != nil {
		return err
	}

	if existing != nil {
		query := `
			UPDATE gateway_configs SET
				encrypted_credential = ?,
				priority = ?,
				active = ?,
				updated_at = ?
			WHERE id = ?
		`
		if _, err := r.db.ExecContext(ctx, query, cfg.EncryptedCredential, cfg.Priority, cfg.Active, cfg.UpdatedAt, existing.ID); err != nil {
			return err
		}
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		return nil
	}

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	query := `
		INSERT INTO gateway_configs (
			id, tenant_id, gateway_name, encrypted_credential, priority, active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.TenantID,
		cfg.GatewayName,
		cfg.EncryptedCredential,
		cfg.Priority,
		cfg.Active,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	return err
}
