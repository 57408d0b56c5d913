package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLogging logs one line per unary call with the caller's user id and the
// resulting status code.
func UnaryLogging(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := log.Info()
		code := status.Code(err)
		if code == codes.Internal || code == codes.Unknown {
			event = log.Error().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("user_id", userID(ctx)).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

// UnaryRecovery converts handler panics into codes.Internal.
func UnaryRecovery(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.Error().
					Interface("panic", p).
					Str("method", info.FullMethod).
					Msg("Recovered from panic")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
