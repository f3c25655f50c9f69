package repository

import (
	"context"
	"fmt"
)

// schemaStatements is written in the subset of DDL that both MySQL and SQLite accept.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		api_key VARCHAR(128) NOT NULL,
		active BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		CONSTRAINT uq_tenants_api_key UNIQUE (api_key)
	)`,
	`CREATE TABLE IF NOT EXISTS gateway_configs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		tenant_id VARCHAR(36) NOT NULL,
		gateway_name VARCHAR(64) NOT NULL,
		encrypted_credential TEXT NOT NULL,
		priority INTEGER NOT NULL,
		active BOOLEAN NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CONSTRAINT uq_gateway_configs_tenant_gateway UNIQUE (tenant_id, gateway_name)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		tenant_id VARCHAR(36) NOT NULL,
		idempotency_key VARCHAR(255) NOT NULL,
		amount DECIMAL(19,4) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		customer_email VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		gateway VARCHAR(64) NOT NULL,
		provider_transaction_id VARCHAR(255) NULL,
		qr_code TEXT NULL,
		qr_code_base64 TEXT NULL,
		metadata_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		CONSTRAINT uq_payments_tenant_key UNIQUE (tenant_id, idempotency_key)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_records (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		tenant_id VARCHAR(36) NOT NULL,
		gateway_name VARCHAR(64) NOT NULL,
		request_payload TEXT NOT NULL,
		response_payload TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		latency_ms DOUBLE PRECISION NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// Migrate creates the tables when they are missing. It is used for local SQLite databases and tests;
// production MySQL schemas are managed outside the service.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
