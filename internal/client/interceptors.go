package client

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UserIDMetadataKey carries the acting user on NavigatorService calls.
const UserIDMetadataKey = "x-user-id"

// WithUserID attaches the acting user to outgoing call metadata. It takes
// precedence over the user a NavigatorGRPCClient was built with.
func WithUserID(ctx context.Context, userID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, UserIDMetadataKey, userID)
}

// forwardMetadata propagates incoming request metadata, including the acting
// user, to outgoing calls made while serving a request.
func forwardMetadata(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if out, ok := metadata.FromOutgoingContext(ctx); ok {
			md = metadata.Join(md, out)
		}
		ctx = metadata.NewOutgoingContext(ctx, md)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// actingUser stamps every call with userID unless the context already
// carries one.
func actingUser(userID string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if userID != "" {
			md, _ := metadata.FromOutgoingContext(ctx)
			if len(md.Get(UserIDMetadataKey)) == 0 {
				ctx = metadata.AppendToOutgoingContext(ctx, UserIDMetadataKey, userID)
			}
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
