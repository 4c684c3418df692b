package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "draftoracle.v1.DraftService"

// DraftServiceServer is the server side of draftoracle.v1.DraftService.
// Messages are protobuf well-known types, so no generated code is needed.
type DraftServiceServer interface {
	GetDraft(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetTeam(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDraftOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecutePick(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitPick(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	GetPickTask(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// RegisterDraftServiceServer registers srv on s.
func RegisterDraftServiceServer(s grpc.ServiceRegistrar, srv DraftServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes draftoracle.v1.DraftService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDraft", Handler: unary("GetDraft", newString, DraftServiceServer.GetDraft)},
		{MethodName: "GetTeam", Handler: unary("GetTeam", newStruct, DraftServiceServer.GetTeam)},
		{MethodName: "GetDraftOrder", Handler: unary("GetDraftOrder", newStruct, DraftServiceServer.GetDraftOrder)},
		{MethodName: "ExecutePick", Handler: unary("ExecutePick", newStruct, DraftServiceServer.ExecutePick)},
		{MethodName: "SubmitPick", Handler: unary("SubmitPick", newStruct, DraftServiceServer.SubmitPick)},
		{MethodName: "GetPickTask", Handler: unary("GetPickTask", newString, DraftServiceServer.GetPickTask)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "draftoracle/v1/draft.proto",
}

func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }
func newStruct() *structpb.Struct        { return new(structpb.Struct) }

func unary[Req, Resp proto.Message](method string, newReq func() Req, call func(DraftServiceServer, context.Context, Req) (Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DraftServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(DraftServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DraftServiceClient calls draftoracle.v1.DraftService.
type DraftServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDraftServiceClient wraps cc.
func NewDraftServiceClient(cc grpc.ClientConnInterface) *DraftServiceClient {
	return &DraftServiceClient{cc: cc}
}

func (c *DraftServiceClient) GetDraft(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetDraft", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) GetTeam(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetTeam", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) GetDraftOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetDraftOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) ExecutePick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ExecutePick", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) SubmitPick(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/SubmitPick", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DraftServiceClient) GetPickTask(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetPickTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
