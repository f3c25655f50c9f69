package entity

import "time"

// GatewayConfig is unique per (TenantID, GatewayName). EncryptedCredential holds the sealed
// parameter map and is only opened in memory for a single provider call.
type GatewayConfig struct {
	ID                  string
	TenantID            string
	GatewayName         string
	EncryptedCredential string
	Priority            int32
	Active              bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
