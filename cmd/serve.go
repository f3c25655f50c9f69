package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/controller"
	paymentgrpc "github.com/vibast-solutions/ms-go-payment-orchestrator/app/grpc"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the payment orchestrator.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	app := mustCreateApplication()
	defer app.cleanup()
	cfg := app.cfg

	paymentController := controller.NewPaymentController(app.paymentService)
	grpcPaymentServer := paymentgrpc.NewServer(app.paymentService)

	var (
		echoInternalAuth echo.MiddlewareFunc
		grpcInternalAuth grpc.UnaryServerInterceptor
	)
	if cfg.InternalEndpoints.AuthGRPCAddr != "" {
		authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
		}
		defer authGRPCClient.Close()

		internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
		echoInternalAuth = authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService).RequireInternalAccess(cfg.App.ServiceName)
		grpcInternalAuth = authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService).UnaryRequireInternalAccess(cfg.App.ServiceName)
	} else {
		logrus.Warn("AUTH_SERVICE_GRPC_ADDR is empty, internal auth is disabled")
	}

	// X-API-Key belongs to internal auth when it is enabled.
	allowAPIKey := echoInternalAuth == nil
	tenantHeaders := []string{controller.HeaderTenantAPIKey}
	if allowAPIKey {
		tenantHeaders = append(tenantHeaders, controller.HeaderAPIKey)
	}
	tenantMiddleware := controller.NewTenantMiddleware(app.tenantRepo, tenantHeaders...)

	e := setupHTTPServer(paymentController, tenantMiddleware, echoInternalAuth)
	grpcSrv, lis := setupGRPCServer(cfg, grpcPaymentServer, paymentgrpc.TenantInterceptor(app.tenantRepo, allowAPIKey), grpcInternalAuth)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	paymentController *controller.PaymentController,
	tenantMiddleware *controller.TenantMiddleware,
	internalAuth echo.MiddlewareFunc,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/v1/payments")
	if internalAuth != nil {
		payments.Use(internalAuth)
	}
	payments.Use(tenantMiddleware.RequireTenant())
	payments.POST("", paymentController.ExecutePayment)
	payments.GET("/:id", paymentController.GetPayment)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	paymentServer *paymentgrpc.Server,
	tenantInterceptor grpc.UnaryServerInterceptor,
	internalAuth grpc.UnaryServerInterceptor,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	interceptors := []grpc.UnaryServerInterceptor{
		paymentgrpc.RecoveryInterceptor(),
		paymentgrpc.RequestIDInterceptor(),
		paymentgrpc.LoggingInterceptor(),
	}
	if internalAuth != nil {
		interceptors = append(interceptors, internalAuth)
	}
	interceptors = append(interceptors, tenantInterceptor)

	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	paymentgrpc.RegisterPaymentsServiceServer(grpcSrv, paymentServer)

	return grpcSrv, lis
}
