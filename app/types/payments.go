package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// HeaderIdempotencyKey may carry the idempotency key instead of the request body.
const HeaderIdempotencyKey = "Idempotency-Key"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ExecutePaymentRequest struct {
	IdempotencyKey string            `json:"idempotency_key" validate:"required,max=255"`
	Amount         decimal.Decimal   `json:"amount"`
	Currency       string            `json:"currency" validate:"required,len=3,alpha"`
	CustomerEmail  string            `json:"customer_email" validate:"required,email,max=255"`
	Metadata       map[string]string `json:"metadata,omitempty" validate:"omitempty,max=50,dive,keys,max=64,endkeys,max=512"`
}

func (r *ExecutePaymentRequest) GetIdempotencyKey() string {
	return r.IdempotencyKey
}

func (r *ExecutePaymentRequest) GetAmount() decimal.Decimal {
	return r.Amount
}

func (r *ExecutePaymentRequest) GetCurrency() string {
	return r.Currency
}

func (r *ExecutePaymentRequest) GetCustomerEmail() string {
	return r.CustomerEmail
}

func (r *ExecutePaymentRequest) GetMetadata() map[string]string {
	return r.Metadata
}

// Normalize trims the text fields and upper-cases the currency.
func (r *ExecutePaymentRequest) Normalize() {
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
}

func NewExecutePaymentRequestFromContext(ctx echo.Context) (*ExecutePaymentRequest, error) {
	var body ExecutePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	if strings.TrimSpace(body.IdempotencyKey) == "" {
		body.IdempotencyKey = ctx.Request().Header.Get(HeaderIdempotencyKey)
	}
	body.Normalize()

	return &body, nil
}

func (r *ExecutePaymentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be > 0")
	}
	if r.Amount.Exponent() < -2 && !r.Amount.Equal(r.Amount.Round(2)) {
		return errors.New("amount must have at most 2 decimal places")
	}
	return nil
}

type GetPaymentRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

func (r *GetPaymentRequest) GetID() string {
	return r.ID
}

func NewGetPaymentRequestFromContext(ctx echo.Context) (*GetPaymentRequest, error) {
	return &GetPaymentRequest{ID: strings.TrimSpace(ctx.Param("id"))}, nil
}

func (r *GetPaymentRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

type PaymentResponse struct {
	PaymentID             string          `json:"payment_id"`
	Status                string          `json:"status"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	ProviderTransactionID string          `json:"provider_transaction_id,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	QRCode                string          `json:"qr_code,omitempty"`
	QRCodeBase64          string          `json:"qr_code_base64,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "len":
		return fmt.Errorf("%s must be %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
