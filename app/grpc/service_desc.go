package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "payments.PaymentsService"

// PaymentsServiceServer is the payments RPC surface. Messages are google.protobuf.Struct values
// carrying the same JSON shapes as the HTTP API.
type PaymentsServiceServer interface {
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ExecutePayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var PaymentsServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", PaymentsServiceServer.Health)},
		{MethodName: "ExecutePayment", Handler: unaryHandler("ExecutePayment", PaymentsServiceServer.ExecutePayment)},
		{MethodName: "GetPayment", Handler: unaryHandler("GetPayment", PaymentsServiceServer.GetPayment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payments.proto",
}

func RegisterPaymentsServiceServer(registrar grpc.ServiceRegistrar, srv PaymentsServiceServer) {
	registrar.RegisterService(&PaymentsServiceDesc, srv)
}

type unaryMethod func(srv PaymentsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PaymentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PaymentsServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PaymentsServiceClient calls a PaymentsService over an existing connection.
type PaymentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPaymentsServiceClient(cc grpc.ClientConnInterface) *PaymentsServiceClient {
	return &PaymentsServiceClient{cc: cc}
}

func (c *PaymentsServiceClient) Health(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Health", req, opts...)
}

func (c *PaymentsServiceClient) ExecutePayment(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ExecutePayment", req, opts...)
}

func (c *PaymentsServiceClient) GetPayment(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetPayment", req, opts...)
}

func (c *PaymentsServiceClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
