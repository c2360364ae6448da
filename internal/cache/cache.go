// Package cache memoizes read-heavy listings (provider lists, per-day schedules).
package cache

import "context"

type Cache interface {
	Save(ctx context.Context, key string, value any) error
	// Recover decodes the cached value into dest and reports whether the key existed.
	Recover(ctx context.Context, key string, dest any) (bool, error)
	Invalidate(ctx context.Context, key string) error
	// InvalidatePrefix drops every key under "prefix:".
	InvalidatePrefix(ctx context.Context, prefix string) error
}
