package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(v string) *string {
	return &v
}

func TestPaymentRepositoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	payment := &entity.Payment{
		TenantID:              "tenant-1",
		IdempotencyKey:        "key-1",
		Amount:                decimal.RequireFromString("12.34"),
		Currency:              "USD",
		CustomerEmail:         "buyer@example.com",
		Status:                entity.PaymentStatusApproved,
		Gateway:               "MOCK",
		ProviderTransactionID: strPtr("mock_1"),
		Metadata:              map[string]string{"order": "42"},
		CreatedAt:             time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Create(ctx, payment); err != nil {
		t.Fatalf("create: %v", err)
	}
	if payment.ID == "" {
		t.Fatal("expected generated id")
	}

	byKey, err := repo.FindByIdempotencyKey(ctx, "tenant-1", "key-1")
	if err != nil {
		t.Fatalf("find by key: %v", err)
	}
	if byKey == nil || byKey.ID != payment.ID {
		t.Fatalf("expected payment %s, got %+v", payment.ID, byKey)
	}
	if !byKey.Amount.Equal(payment.Amount) || byKey.Status != entity.PaymentStatusApproved {
		t.Fatalf("unexpected stored payment: %+v", byKey)
	}
	if byKey.ProviderTransactionID == nil || *byKey.ProviderTransactionID != "mock_1" || byKey.QRCode != nil {
		t.Fatalf("unexpected nullable fields: %+v", byKey)
	}
	if byKey.Metadata["order"] != "42" {
		t.Fatalf("unexpected metadata: %v", byKey.Metadata)
	}

	byID, err := repo.FindByID(ctx, "tenant-1", payment.ID)
	if err != nil || byID == nil {
		t.Fatalf("find by id: %v %v", byID, err)
	}
}

func TestPaymentRepositoryIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	payment := &entity.Payment{
		TenantID:       "tenant-1",
		IdempotencyKey: "key-1",
		Amount:         decimal.NewFromInt(10),
		Currency:       "USD",
		Status:         entity.PaymentStatusApproved,
		Gateway:        "MOCK",
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.Create(ctx, payment); err != nil {
		t.Fatalf("create: %v", err)
	}

	other, err := repo.FindByID(ctx, "tenant-2", payment.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other != nil {
		t.Fatal("expected other tenant to see nothing")
	}

	other, err = repo.FindByIdempotencyKey(ctx, "tenant-2", "key-1")
	if err != nil || other != nil {
		t.Fatalf("expected no payment for other tenant, got %v %v", other, err)
	}
}

func TestPaymentRepositoryDuplicateKey(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))

	newPayment := func(tenantID string) *entity.Payment {
		return &entity.Payment{
			TenantID:       tenantID,
			IdempotencyKey: "key-1",
			Amount:         decimal.NewFromInt(1),
			Currency:       "USD",
			Status:         entity.PaymentStatusApproved,
			Gateway:        "MOCK",
			CreatedAt:      time.Now().UTC(),
		}
	}

	if err := repo.Create(ctx, newPayment("tenant-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, newPayment("tenant-1")); err != ErrPaymentAlreadyExists {
		t.Fatalf("expected ErrPaymentAlreadyExists, got %v", err)
	}
	if err := repo.Create(ctx, newPayment("tenant-2")); err != nil {
		t.Fatalf("same key for another tenant should be accepted: %v", err)
	}
}

func TestTenantRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantRepository(newTestDB(t))

	tenant := &entity.Tenant{Name: "Acme", APIKey: "ak_1", Active: true, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, tenant); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := repo.FindByAPIKey(ctx, "ak_1")
	if err != nil {
		t.Fatalf("find by api key: %v", err)
	}
	if found == nil || found.ID != tenant.ID || found.Name != "Acme" || !found.Active {
		t.Fatalf("unexpected tenant: %+v", found)
	}

	byID, err := repo.FindByID(ctx, tenant.ID)
	if err != nil || byID == nil {
		t.Fatalf("find by id: %v %v", byID, err)
	}

	missing, err := repo.FindByAPIKey(ctx, "unknown")
	if err != nil || missing != nil {
		t.Fatalf("expected nil tenant, got %v %v", missing, err)
	}

	dup := &entity.Tenant{Name: "Other", APIKey: "ak_1", Active: true, CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, dup); err != ErrTenantAlreadyExists {
		t.Fatalf("expected ErrTenantAlreadyExists, got %v", err)
	}
}

func TestGatewayConfigRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewGatewayConfigRepository(newTestDB(t))
	now := time.Now().UTC()

	cfg := &entity.GatewayConfig{
		TenantID:            "tenant-1",
		GatewayName:         "stripe",
		EncryptedCredential: "sealed-1",
		Priority:            1,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := repo.Upsert(ctx, cfg); err != nil {
		t.Fatalf("insert: %v", err)
	}

	update := &entity.GatewayConfig{
		TenantID:            "tenant-1",
		GatewayName:         "STRIPE",
		EncryptedCredential: "sealed-2",
		Priority:            5,
		Active:              false,
		UpdatedAt:           now.Add(time.Minute),
	}
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	if update.ID != cfg.ID {
		t.Fatalf("expected upsert to keep row id %s, got %s", cfg.ID, update.ID)
	}

	found, err := repo.FindByTenantAndName(ctx, "tenant-1", "Stripe")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.EncryptedCredential != "sealed-2" || found.Priority != 5 || found.Active {
		t.Fatalf("unexpected config: %+v", found)
	}

	missing, err := repo.FindByTenantAndName(ctx, "tenant-2", "STRIPE")
	if err != nil || missing != nil {
		t.Fatalf("expected nil config for other tenant, got %v %v", missing, err)
	}
}

func TestAuditRecordRepositoryDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewAuditRecordRepository(db)
	now := time.Now().UTC()

	for _, createdAt := range []time.Time{now.Add(-48 * time.Hour), now.Add(-47 * time.Hour), now} {
		record := &entity.AuditRecord{
			TenantID:        "tenant-1",
			GatewayName:     "MOCK",
			RequestPayload:  `{"amount":"10"}`,
			ResponsePayload: `{"status":"APPROVED"}`,
			Status:          entity.PaymentStatusApproved,
			LatencyMs:       12.5,
			CreatedAt:       createdAt,
		}
		if err := repo.Create(ctx, record); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed records, got %d", removed)
	}

	var remaining int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audit_records`).Scan(&remaining); err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining record, got %d", remaining)
	}
}
