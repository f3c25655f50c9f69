package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/provider"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/tenant"
)

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrTenantMissing         = tenant.ErrMissing
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrLockConflict          = errors.New("payment with this idempotency key is already in progress")
	ErrGatewayNotConfigured  = errors.New("gateway not configured")
	ErrGatewayNotFound       = provider.ErrGatewayNotFound
	ErrProviderFailure       = errors.New("provider failure")
	ErrCredentialUnavailable = errors.New("gateway credential unavailable")
	ErrPaymentNotFound       = errors.New("payment not found")
)

// GatewayNotConfiguredError reports a routed gateway the tenant has no active configuration for.
type GatewayNotConfiguredError struct {
	Gateway    string
	TenantID   string
	TenantName string
}

func (e *GatewayNotConfiguredError) Error() string {
	return fmt.Sprintf("gateway %s is not configured for tenant %s (%s)", e.Gateway, e.TenantName, e.TenantID)
}

func (e *GatewayNotConfiguredError) Is(target error) bool {
	return target == ErrGatewayNotConfigured
}
