package provider

import "strings"

// MetadataGatewayKey is the request metadata entry that selects a gateway explicitly.
const MetadataGatewayKey = "gateway"

// Router picks the canonical gateway name for a request. It holds no state besides the default.
type Router struct {
	defaultGateway string
}

func NewRouter(defaultGateway string) *Router {
	defaultGateway = strings.ToUpper(strings.TrimSpace(defaultGateway))
	if defaultGateway == "" {
		defaultGateway = GatewayStripe
	}
	return &Router{defaultGateway: defaultGateway}
}

func (r *Router) Route(metadata map[string]string) string {
	if hint := strings.TrimSpace(metadata[MetadataGatewayKey]); hint != "" {
		return strings.ToUpper(hint)
	}
	return r.defaultGateway
}
