package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageError_MatchesSentinelAndUnwraps(t *testing.T) {
	inner := errors.New("disk full")
	err := fmt.Errorf("enqueue: %w", &StorageError{Op: "set", Key: QueueStorageKey, Err: inner})

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "storage set[offline_queue]")

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "set", se.Op)
}

func TestNetworkError_IsNetwork(t *testing.T) {
	err := &NetworkError{Op: "GET /auth/profile", Err: errors.New("connection refused")}

	assert.True(t, IsNetwork(err))
	assert.False(t, IsNetwork(&ServerError{Status: http.StatusBadGateway}))
	assert.False(t, errors.Is(err, ErrServer))
}

func TestServerError_Is(t *testing.T) {
	tests := []struct {
		status       int
		unauthorized bool
		notFound     bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusNotFound, false, true},
		{http.StatusBadRequest, false, false},
		{http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := &ServerError{Status: tt.status}
			assert.ErrorIs(t, err, ErrServer)
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestCacheMissError_KeepsOriginal(t *testing.T) {
	orig := &NetworkError{Op: "GET", Err: errors.New("timeout")}
	err := &CacheMissError{Category: "profile", Err: orig}

	require.ErrorIs(t, err, ErrCacheMiss)
	require.ErrorIs(t, err, ErrNetwork)

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Same(t, orig, ne)
}

func TestQueueCorruptionError(t *testing.T) {
	err := &QueueCorruptionError{Key: QueueStorageKey, Err: errors.New("unexpected EOF")}
	require.ErrorIs(t, err, ErrQueueCorrupt)
	assert.NotErrorIs(t, err, ErrStorage)
}
