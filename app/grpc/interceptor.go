package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/entity"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/tenant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	requestIDHeader    = "x-request-id"
	tenantAPIKeyHeader = "x-tenant-api-key"
	apiKeyHeader       = "x-api-key"

	idempotencyKeyHeader = "idempotency-key"

	healthMethod = "/" + serviceName + "/Health"
)

type requestIDContextKey struct{}

func requestIDFromMetadata(ctx context.Context) string {
	return firstMetadataValue(ctx, requestIDHeader)
}

func firstMetadataValue(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, value := range md.Get(key) {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := requestIDFromMetadata(ctx)
		if requestID == "" {
			return nil, status.Error(codes.InvalidArgument, "x-request-id metadata is required")
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))
		return handler(context.WithValue(ctx, requestIDContextKey{}, requestID), req)
	}
}

func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				loggerWithContext(ctx).WithField("method", info.FullMethod).WithField("panic", r).Error("grpc_panic")
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		latency := time.Since(start)

		entry := loggerWithContext(ctx).WithFields(logrus.Fields{
			"method":     info.FullMethod,
			"code":       status.Code(err).String(),
			"latency":    latency.String(),
			"latency_ns": latency.Nanoseconds(),
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Info("grpc_request")
		return resp, err
	}
}

type tenantFinder interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*entity.Tenant, error)
}

// TenantInterceptor resolves the calling tenant from x-tenant-api-key (and x-api-key when
// allowAPIKey is set). Health checks pass through untouched.
func TenantInterceptor(tenants tenantFinder, allowAPIKey bool) grpc.UnaryServerInterceptor {
	headers := []string{tenantAPIKeyHeader}
	if allowAPIKey {
		headers = append(headers, apiKeyHeader)
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info != nil && info.FullMethod == healthMethod {
			return handler(ctx, req)
		}

		var apiKey string
		for _, header := range headers {
			if apiKey = firstMetadataValue(ctx, header); apiKey != "" {
				break
			}
		}
		if apiKey == "" {
			return nil, status.Error(codes.Unauthenticated, "tenant api key is required")
		}

		item, err := tenants.FindByAPIKey(ctx, apiKey)
		if err != nil {
			loggerWithContext(ctx).WithError(err).Error("Tenant lookup failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
		if item == nil {
			return nil, status.Error(codes.Unauthenticated, "invalid tenant api key")
		}
		if !item.Active {
			return nil, status.Error(codes.PermissionDenied, "tenant is inactive")
		}

		return handler(tenant.WithTenant(ctx, tenant.FromEntity(item)), req)
	}
}

func loggerWithContext(ctx context.Context) logrus.FieldLogger {
	entry := logrus.WithContext(ctx).WithField("module", "payments-grpc")
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}
	return entry
}
