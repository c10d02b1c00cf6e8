// Package storage provides per-profile key/value slots that play the role of
// browser local storage for server-side page sessions.
package storage

import (
	"context"
	"errors"
)

// DefaultQuota is the largest value, in bytes, a single slot accepts.
const DefaultQuota = 5 << 20

// ErrQuotaExceeded is returned by SetItem when a value is larger than the quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is the key/value view of one profile.
type Storage interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Backend hands out Storage scoped to a profile.
type Backend interface {
	Scope(profileID string) Storage
	// Ping reports whether the backend can serve reads and writes.
	Ping(ctx context.Context) error
	Close() error
}

func checkQuota(value string, quota int) error {
	if quota > 0 && len(value) > quota {
		return ErrQuotaExceeded
	}
	return nil
}
