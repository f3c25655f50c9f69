package controller

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/factory"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/tenant"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
)

const (
	HeaderTenantAPIKey = "X-Tenant-API-Key"
	HeaderAPIKey       = "X-API-Key"
)

type tenantFinder interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*entity.Tenant, error)
}

// TenantMiddleware resolves the calling tenant from its API key and places it on the request context.
type TenantMiddleware struct {
	tenants tenantFinder
	headers []string
	logger  logrus.FieldLogger
}

// NewTenantMiddleware reads the key from the given headers in order. X-Tenant-API-Key is used when
// none are given.
func NewTenantMiddleware(tenants tenantFinder, headers ...string) *TenantMiddleware {
	if len(headers) == 0 {
		headers = []string{HeaderTenantAPIKey}
	}
	return &TenantMiddleware{
		tenants: tenants,
		headers: headers,
		logger:  factory.NewModuleLogger("tenant-middleware"),
	}
}

func (m *TenantMiddleware) RequireTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			apiKey := m.apiKey(ctx.Request().Header)
			if apiKey == "" {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "tenant api key is required"})
			}

			item, err := m.tenants.FindByAPIKey(ctx.Request().Context(), apiKey)
			if err != nil {
				factory.LoggerWithContext(m.logger, ctx).WithError(err).Error("Tenant lookup failed")
				return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error"})
			}
			if item == nil {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "invalid tenant api key"})
			}
			if !item.Active {
				return ctx.JSON(http.StatusForbidden, &types.ErrorResponse{Error: "tenant is inactive"})
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(tenant.WithTenant(req.Context(), tenant.FromEntity(item))))
			return next(ctx)
		}
	}
}

func (m *TenantMiddleware) apiKey(header http.Header) string {
	for _, name := range m.headers {
		if value := strings.TrimSpace(header.Get(name)); value != "" {
			return value
		}
	}
	return ""
}
