package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapGRPCError(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, mapGRPCError(ctx, "op", nil))

	for _, code := range []codes.Code{codes.Unavailable, codes.DeadlineExceeded, codes.Canceled} {
		err := mapGRPCError(ctx, "op", status.Error(code, "x"))
		assert.True(t, common.IsNetwork(err), code.String())
	}

	tests := []struct {
		code   codes.Code
		status int
	}{
		{codes.Unauthenticated, http.StatusUnauthorized},
		{codes.PermissionDenied, http.StatusForbidden},
		{codes.NotFound, http.StatusNotFound},
		{codes.InvalidArgument, http.StatusBadRequest},
		{codes.Internal, http.StatusInternalServerError},
		{codes.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		err := mapGRPCError(ctx, "op", status.Error(tt.code, "nope"))
		var se *common.ServerError
		require.ErrorAs(t, err, &se, tt.code.String())
		assert.Equal(t, tt.status, se.Status)
		assert.Equal(t, "nope", se.Message)
	}

	assert.ErrorIs(t, mapGRPCError(ctx, "op", status.Error(codes.Unauthenticated, "x")), common.ErrUnauthorized)
	assert.ErrorIs(t, mapGRPCError(ctx, "op", status.Error(codes.PermissionDenied, "x")), common.ErrUnauthorized)
}

func TestMapGRPCError_CallerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mapGRPCError(ctx, "op", status.Error(codes.Canceled, "context canceled"))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, common.IsNetwork(err))
}

func TestNetworkError(t *testing.T) {
	err := networkError(context.Background(), "GET /x", errors.New("dial tcp: refused"))
	var ne *common.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "GET /x", ne.Op)
}
