package client

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// RecordServiceName is the fully qualified gRPC service the client calls.
const RecordServiceName = "healthsync.v1.RecordService"

const (
	methodGet          = "/" + RecordServiceName + "/Get"
	methodApply        = "/" + RecordServiceName + "/Apply"
	methodPing         = "/" + RecordServiceName + "/Ping"
	methodLogin        = "/" + RecordServiceName + "/Login"
	methodRefreshToken = "/" + RecordServiceName + "/RefreshToken"
)

// recordService is the client side of RecordService. Requests and responses
// are well-known protobuf types:
//
//	Get(StringValue endpoint) Struct
//	Apply(Struct{method, endpoint, payload}) Struct
//	Ping(Empty) StringValue
//	Login(Struct{username, password}) Struct{access_token, refresh_token}
//	RefreshToken(StringValue) Struct{access_token, refresh_token}
type recordService interface {
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type recordServiceClient struct {
	cc grpc.ClientConnInterface
}

func newRecordServiceClient(cc grpc.ClientConnInterface) recordService {
	return &recordServiceClient{cc: cc}
}

func (c *recordServiceClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodApply, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, methodPing, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) RefreshToken(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRefreshToken, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
