package entity

import "time"

type Tenant struct {
	ID     string
	Name   string
	APIKey string
	Active bool

	CreatedAt time.Time
}
