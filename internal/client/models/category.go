// Package models defines the client-side data models of healthsync: resource
// categories, cached snapshots and queued mutations.
package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/healthsync/internal/common"
)

// Category names a server-owned resource the client caches.
type Category string

const (
	CategoryProfile       Category = "profile"
	CategoryEmergency     Category = "emergency"
	CategoryNotifications Category = "notifications"
	CategoryPermissions   Category = "permissions"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryProfile,
	CategoryEmergency,
	CategoryNotifications,
	CategoryPermissions,
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnknownCategory, s)
}

// Endpoint is the remote path serving the category.
func (c Category) Endpoint() string {
	return "/auth/" + string(c)
}

// CacheKey is the local storage key of the category's snapshot.
func (c Category) CacheKey() string {
	return common.CacheKeyPrefix + string(c)
}

// Method is the HTTP verb a queued mutation is replayed with.
type Method string

const (
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

func (m Method) Valid() bool {
	switch m {
	case MethodPut, MethodPost, MethodDelete:
		return true
	}
	return false
}
