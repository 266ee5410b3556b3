package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rentaldesk-bff/internal/logger"
)

const requestIDKey = "x-request-id"

// Logging returns a unary interceptor that tags the context with the
// caller's request id and logs every call with its status code.
func Logging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(requestIDKey); len(ids) > 0 {
				ctx = logger.WithRequestID(ctx, ids[0])
			}
		}

		resp, err := handler(ctx, req)

		logger.FromContext(ctx).Debug("gRPC call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}
