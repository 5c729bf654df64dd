// Package common contains shared constants and sentinel errors used across
// healthsync components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Well-known keys of the local key/value store.
const (
	QueueStorageKey   = "offline_queue"
	CacheKeyPrefix    = "cache:"
	SealSaltKey       = "seal_salt"
	SessionUserKey    = "session_user"
	SessionRefreshKey = "session_refresh"
)
