package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Method builds the descriptor of one unary method once the service name is known.
type Method func(serviceName string) grpc.MethodDesc

// FullMethod returns "/service/method".
func FullMethod(serviceName, method string) string {
	return "/" + serviceName + "/" + method
}

// Unary describes a unary method served by call on a server implementing S.
func Unary[S any, Req any, Resp any](name string, call func(S, context.Context, *Req) (*Resp, error)) Method {
	return func(serviceName string) grpc.MethodDesc {
		fullMethod := FullMethod(serviceName, name)
		return grpc.MethodDesc{
			MethodName: name,
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(Req)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return call(srv.(S), ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
				handler := func(ctx context.Context, req any) (any, error) {
					return call(srv.(S), ctx, req.(*Req))
				}
				return interceptor(ctx, in, info, handler)
			},
		}
	}
}

// ServiceDesc assembles a grpc.ServiceDesc. handlerType must be a pointer to the server interface,
// e.g. (*PoolServiceServer)(nil).
func ServiceDesc(serviceName string, handlerType any, methods ...Method) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: handlerType,
		Streams:     []grpc.StreamDesc{},
		Metadata:    serviceName,
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, m(serviceName))
	}
	return desc
}

// Invoke calls a unary method over conn using the JSON codec.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, fullMethod string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return conn.Invoke(ctx, fullMethod, in, out, opts...)
}
