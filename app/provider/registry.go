package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrGatewayNotFound = errors.New("gateway not found")

// NotFoundError names the requested gateway and the tenant that asked for it.
type NotFoundError struct {
	Gateway  string
	TenantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("gateway %s not found for tenant %s", e.Gateway, e.TenantID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrGatewayNotFound
}

// Registry is built once at startup and is read-only afterwards.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	items := make(map[string]Gateway, len(gateways))
	for _, g := range gateways {
		items[strings.ToUpper(g.Name())] = g
	}
	return &Registry{gateways: items}
}

func (r *Registry) Get(name, tenantID string) (Gateway, error) {
	gateway, ok := r.gateways[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, &NotFoundError{Gateway: name, TenantID: tenantID}
	}
	return gateway, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
