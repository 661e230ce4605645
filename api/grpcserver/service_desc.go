package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"tradebook/api/wire"
)

const ServiceName = "tradebook.v1.Matching"

const (
	submitMethod    = "/" + ServiceName + "/Submit"
	depthMethod     = "/" + ServiceName + "/Depth"
	lastTradeMethod = "/" + ServiceName + "/LastTrade"
)

// MatchingServer is the server API of the matching service.
type MatchingServer interface {
	Submit(context.Context, *wire.SubmitRequest) (*wire.SubmitResponse, error)
	Depth(context.Context, *wire.DepthRequest) (*wire.DepthResponse, error)
	LastTrade(context.Context, *wire.LastTradeRequest) (*wire.LastTradeResponse, error)
}

// Register attaches srv to s. s must be built with NewServerOptions so
// requests are decoded with the wire codec.
func Register(s grpc.ServiceRegistrar, srv MatchingServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "Depth", Handler: depthHandler},
		{MethodName: "LastTrade", Handler: lastTradeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradebook/v1/matching",
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.SubmitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchingServer).Submit(ctx, req.(*wire.SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func depthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.DepthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).Depth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: depthMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchingServer).Depth(ctx, req.(*wire.DepthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func lastTradeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.LastTradeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).LastTrade(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lastTradeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchingServer).LastTrade(ctx, req.(*wire.LastTradeRequest))
	}
	return interceptor(ctx, in, info, handler)
}
