package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/service"
	"github.com/vibast-solutions/ms-go-payment-orchestrator/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeMessage(&types.HealthResponse{Status: "ok"})
}

func (s *Server) ExecutePayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)

	var req types.ExecutePaymentRequest
	if err := decodeMessage(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request body")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = firstMetadataValue(ctx, idempotencyKeyHeader)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Execute payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.paymentService.ExecutePayment(ctx, &req)
	if err != nil {
		code, message := grpcStatusForError(err)
		if code == codes.Internal {
			l.WithError(err).Error("Execute payment failed")
		}
		return nil, status.Error(code, message)
	}

	return encodeMessage(resp)
}

func (s *Server) GetPayment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req types.GetPaymentRequest
	if err := decodeMessage(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := s.paymentService.GetPayment(ctx, req.GetID())
	if err != nil {
		code, message := grpcStatusForError(err)
		if code == codes.Internal {
			loggerWithContext(ctx).WithError(err).Error("Get payment failed")
		}
		return nil, status.Error(code, message)
	}

	return encodeMessage(resp)
}

func grpcStatusForError(err error) (codes.Code, string) {
	switch {
	case errors.Is(err, service.ErrTenantMissing):
		return codes.Unauthenticated, "tenant is required"
	case errors.Is(err, service.ErrLockConflict):
		return codes.Aborted, err.Error()
	case errors.Is(err, service.ErrGatewayNotConfigured), errors.Is(err, service.ErrGatewayNotFound):
		return codes.FailedPrecondition, err.Error()
	case errors.Is(err, service.ErrInvalidRequest):
		return codes.InvalidArgument, err.Error()
	case errors.Is(err, service.ErrPaymentNotFound):
		return codes.NotFound, "payment not found"
	case errors.Is(err, service.ErrProviderFailure):
		return codes.Unavailable, "payment provider unavailable"
	default:
		return codes.Internal, "internal server error"
	}
}

func decodeMessage(in *structpb.Struct, out interface{}) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	payload, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func encodeMessage(in interface{}) (*structpb.Struct, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(payload, out); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
