package entity

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusError    PaymentStatus = "ERROR"
)

var ErrStatusTransition = errors.New("payment status transition not allowed")

// Terminal reports whether no further transitions are allowed.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusError
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusError:
		return true
	default:
		return false
	}
}

type Payment struct {
	ID             string
	TenantID       string
	IdempotencyKey string

	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string

	Status                PaymentStatus
	Gateway               string
	ProviderTransactionID *string

	QRCode       *string
	QRCodeBase64 *string

	Metadata map[string]string

	CreatedAt time.Time
}

// Transition moves the payment to next. Terminal statuses are final.
func (p *Payment) Transition(next PaymentStatus) error {
	if !next.Valid() {
		return ErrStatusTransition
	}
	if p.Status.Terminal() && p.Status != next {
		return ErrStatusTransition
	}
	p.Status = next
	return nil
}
