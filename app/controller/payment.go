package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/factory"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) ExecutePayment(ctx echo.Context) error {
	req, err := types.NewExecutePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	resp, err := c.paymentService.ExecutePayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Execute payment failed")
	}

	return ctx.JSON(http.StatusCreated, resp)
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewGetPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	resp, err := c.paymentService.GetPayment(ctx.Request().Context(), req.GetID())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get payment failed")
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *PaymentController) writeServiceError(ctx echo.Context, err error, logMessage string) error {
	statusCode, message := httpStatusForError(err)
	if statusCode >= http.StatusInternalServerError {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
	}
	return c.writeError(ctx, statusCode, message)
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func httpStatusForError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrTenantMissing):
		return http.StatusUnauthorized, "tenant is required"
	case errors.Is(err, service.ErrLockConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrGatewayNotConfigured), errors.Is(err, service.ErrGatewayNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrPaymentNotFound):
		return http.StatusNotFound, "payment not found"
	case errors.Is(err, service.ErrProviderFailure):
		return http.StatusBadGateway, "payment provider unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
