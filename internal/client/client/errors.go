package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// networkError classifies a failure that produced no response. A context the
// caller canceled is passed through unchanged.
func networkError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return &common.NetworkError{Op: op, Err: err}
}

var grpcToHTTP = map[codes.Code]int{
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.NotFound:           http.StatusNotFound,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Aborted:            http.StatusConflict,
	codes.FailedPrecondition: http.StatusPreconditionFailed,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.Unimplemented:      http.StatusNotImplemented,
}

func mapGRPCError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return networkError(ctx, op, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return &common.NetworkError{Op: op, Err: err}
	case codes.Canceled:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &common.NetworkError{Op: op, Err: err}
	}
	code, ok := grpcToHTTP[st.Code()]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &common.ServerError{Status: code, Message: st.Message()}
}
