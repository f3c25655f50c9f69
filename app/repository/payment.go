package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}

	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, tenant_id, idempotency_key, amount, currency, customer_email,
			status, gateway, provider_transaction_id, qr_code, qr_code_base64,
			metadata_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		payment.ID,
		payment.TenantID,
		payment.IdempotencyKey,
		payment.Amount.String(),
		payment.Currency,
		payment.CustomerEmail,
		string(payment.Status),
		payment.Gateway,
		nullableStringValue(payment.ProviderTransactionID),
		nullableStringValue(payment.QRCode),
		nullableStringValue(payment.QRCodeBase64),
		metadataJSON,
		payment.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	return nil
}

// FindByID only returns payments owned by tenantID.
func (r *PaymentRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Payment, error) {
	query := `
		SELECT id, tenant_id, idempotency_key, amount, currency, customer_email,
			status, gateway, provider_transaction_id, qr_code, qr_code_base64,
			metadata_json, created_at
		FROM payments
		WHERE tenant_id = ? AND id = ?
	`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, tenantID, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*entity.Payment, error) {
	query := `
		SELECT id, tenant_id, idempotency_key, amount, currency, customer_email,
			status, gateway, provider_transaction_id, qr_code, qr_code_base64,
			metadata_json, created_at
		FROM payments
		WHERE tenant_id = ? AND idempotency_key = ?
		LIMIT 1
	`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, tenantID, key), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var status string
	var providerTransactionID sql.NullString
	var qrCode sql.NullString
	var qrCodeBase64 sql.NullString
	var metadataJSON string

	err := scan.Scan(
		&payment.ID,
		&payment.TenantID,
		&payment.IdempotencyKey,
		&payment.Amount,
		&payment.Currency,
		&payment.CustomerEmail,
		&status,
		&payment.Gateway,
		&providerTransactionID,
		&qrCode,
		&qrCodeBase64,
		&metadataJSON,
		&payment.CreatedAt,
	)
	if err != nil {
		return err
	}

	payment.Status = entity.PaymentStatus(status)
	payment.ProviderTransactionID = stringPtrFromNull(providerTransactionID)
	payment.QRCode = stringPtrFromNull(qrCode)
	payment.QRCodeBase64 = stringPtrFromNull(qrCodeBase64)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	payment.Metadata = metadata

	return nil
}
