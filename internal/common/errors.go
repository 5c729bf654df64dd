// Package common defines shared constants and errors used across the client
// layers of healthsync. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenMissing = errors.New("refresh token missing")

	// Taxonomy sentinels, matched by the typed errors below.
	ErrStorage      = errors.New("storage error")
	ErrNetwork      = errors.New("network error")
	ErrServer       = errors.New("server error")
	ErrQueueCorrupt = errors.New("queue corrupted")
	ErrCacheMiss    = errors.New("cache miss")

	ErrUnknownCategory = errors.New("unknown category")
)

// StorageError reports a failed read or write against local persistent storage.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s[%s]: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// NetworkError is a transient connectivity failure: the request never got a
// response from the remote. Callers may retry it later.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ServerError means the remote answered but rejected the request.
// Status is the HTTP status (or the HTTP equivalent of a gRPC code).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server error: %d %s", e.Status, e.Message)
}

func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrServer:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// QueueCorruptionError is returned when the persisted queue cannot be decoded.
type QueueCorruptionError struct {
	Key string
	Err error
}

func (e *QueueCorruptionError) Error() string {
	return fmt.Sprintf("queue %q corrupted: %v", e.Key, e.Err)
}

func (e *QueueCorruptionError) Unwrap() error { return e.Err }

func (e *QueueCorruptionError) Is(target error) bool { return target == ErrQueueCorrupt }

// CacheMissError is returned when both the remote and the local cache failed.
// It unwraps to the original remote error.
type CacheMissError struct {
	Category string
	Err      error
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("no cached %s: %v", e.Category, e.Err)
}

func (e *CacheMissError) Unwrap() error { return e.Err }

func (e *CacheMissError) Is(target error) bool { return target == ErrCacheMiss }

// IsNetwork reports whether err is a transient connectivity failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
