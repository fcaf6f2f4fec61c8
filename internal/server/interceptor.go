package server

import (
	"context"
	"time"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
)

// RequestIDHeader carries the request ID back to the caller.
const RequestIDHeader = "X-Request-Id"

// ValidationInterceptor rejects requests that fail protovalidate constraints.
func ValidationInterceptor(validator protovalidate.Validator) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if msg, ok := req.Any().(proto.Message); ok {
				if err := validator.Validate(msg); err != nil {
					return nil, connect.NewError(connect.CodeInvalidArgument, err)
				}
			}
			return next(ctx, req)
		}
	}
}

// LoggingInterceptor tags each call with a request ID and logs its outcome.
// Server-side failures log at error level, client errors at warn.
func LoggingInterceptor(logger zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			l := logger.With().
				Str("request_id", requestID).
				Str("procedure", req.Spec().Procedure).
				Logger()
			ctx = l.WithContext(ctx)

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			if err != nil {
				ev := l.Warn()
				switch connect.CodeOf(err) {
				case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
					ev = l.Error()
				}
				ev.Err(err).
					Str("code", connect.CodeOf(err).String()).
					Dur("duration", duration).
					Msg("request failed")
				return nil, err
			}

			resp.Header().Set(RequestIDHeader, requestID)
			l.Info().Dur("duration", duration).Msg("request completed")
			return resp, nil
		}
	}
}
