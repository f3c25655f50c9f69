package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

var ErrTenantAlreadyExists = errors.New("tenant already exists")

type TenantRepository struct {
	db DBTX
}

func NewTenantRepository(db DBTX) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *entity.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tenants (id, name, api_key, active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.APIKey, tenant.Active, tenant.CreatedAt); err != nil {
		if isDuplicateEntryError(err) {
			return ErrTenantAlreadyExists
		}
		return err
	}
	return nil
}

func (r *TenantRepository) FindByID(ctx context.Context, id string) (*entity.Tenant, error) {
	query := `
		SELECT id, name, api_key, active, created_at
		FROM tenants
		WHERE id = ?
	`
	return r.findOne(ctx, query, id)
}

func (r *TenantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*entity.Tenant, error) {
	query := `
		SELECT id, name, api_key, active, created_at
		FROM tenants
		WHERE api_key = ?
		LIMIT 1
	`
	return r.findOne(ctx, query, apiKey)
}

func (r *TenantRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Tenant, error) {
	tenant := &entity.Tenant{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.APIKey,
		&tenant.Active,
		&tenant.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}
