package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/crypto"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/provider"
)

const apiKeyPrefix = "pk_"

type tenantRepository interface {
	Create(ctx context.Context, tenant *entity.Tenant) error
	FindByID(ctx context.Context, id string) (*entity.Tenant, error)
}

type gatewayConfigWriter interface {
	Upsert(ctx context.Context, cfg *entity.GatewayConfig) error
}

type credentialSealer interface {
	Seal(credential crypto.Credential) (string, error)
}

// AdminService provisions tenants and their gateway credentials.
type AdminService struct {
	tenantRepo        tenantRepository
	gatewayConfigRepo gatewayConfigWriter
	providerReg       *provider.Registry
	credentials       credentialSealer
	now               func() time.Time
}

func NewAdminService(
	tenantRepo tenantRepository,
	gatewayConfigRepo gatewayConfigWriter,
	providerReg *provider.Registry,
	credentials credentialSealer,
) *AdminService {
	return &AdminService{
		tenantRepo:        tenantRepo,
		gatewayConfigRepo: gatewayConfigRepo,
		providerReg:       providerReg,
		credentials:       credentials,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// CreateTenant stores an active tenant with a freshly generated API key.
func (s *AdminService) CreateTenant(ctx context.Context, name string) (*entity.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidRequest)
	}

	item := &entity.Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		APIKey:    newAPIKey(),
		Active:    true,
		CreatedAt: s.now(),
	}
	if err := s.tenantRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ConfigureGateway seals params and stores them as the tenant's active configuration for gatewayName.
func (s *AdminService) ConfigureGateway(
	ctx context.Context,
	tenantID string,
	gatewayName string,
	params map[string]string,
	priority int32,
) (*entity.GatewayConfig, error) {
	gatewayName = strings.ToUpper(strings.TrimSpace(gatewayName))

	item, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrTenantNotFound
	}

	if _, err := s.providerReg.Get(gatewayName, tenantID); err != nil {
		return nil, err
	}

	credential := crypto.Credential(params)
	if _, err := credential.Get(provider.SecretKeyParam); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	sealed, err := s.credentials.Seal(credential)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cfg := &entity.GatewayConfig{
		TenantID:            tenantID,
		GatewayName:         gatewayName,
		EncryptedCredential: sealed,
		Priority:            priority,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.gatewayConfigRepo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newAPIKey() string {
	return apiKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
