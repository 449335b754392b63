package duelserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "duel.v1.DuelService"

// Full method names.
const (
	SolveMethod         = "/" + ServiceName + "/Solve"
	ReplayMethod        = "/" + ServiceName + "/Replay"
	ListSolutionsMethod = "/" + ServiceName + "/ListSolutions"
)

// DuelServiceServer is the server API for duel.v1.DuelService. Requests and
// responses are google.protobuf.Struct values so no generated stubs are needed.
type DuelServiceServer interface {
	Solve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Replay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSolutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDuelServiceServer registers srv with s.
func RegisterDuelServiceServer(s grpc.ServiceRegistrar, srv DuelServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes duel.v1.DuelService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DuelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Solve", Handler: unaryHandler(SolveMethod, DuelServiceServer.Solve)},
		{MethodName: "Replay", Handler: unaryHandler(ReplayMethod, DuelServiceServer.Replay)},
		{MethodName: "ListSolutions", Handler: unaryHandler(ListSolutionsMethod, DuelServiceServer.ListSolutions)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "duel/v1/duel.proto",
}

type unaryMethod func(DuelServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DuelServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DuelServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls duel.v1.DuelService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Solve calls DuelService.Solve.
func (c *Client) Solve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SolveMethod, in, opts...)
}

// Replay calls DuelService.Replay.
func (c *Client) Replay(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ReplayMethod, in, opts...)
}

// ListSolutions calls DuelService.ListSolutions.
func (c *Client) ListSolutions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ListSolutionsMethod, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
