package entity

import "time"

type AuditRecord struct {
	ID              string
	TenantID        string
	GatewayName     string
	RequestPayload  string
	ResponsePayload string
	Status          PaymentStatus
	LatencyMs       float64

	CreatedAt time.Time
}
