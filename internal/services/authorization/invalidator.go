package authorization

import (
	"context"

	"github.com/hikage/banken/pkg/cache"
)

// CacheInvalidator evicts cached decisions when provisioning mutations make
// them stale. A nil cache turns every method into a no-op, so callers wired
// without caching need no special handling.
type CacheInvalidator struct {
	cache cache.Cache
}

// NewCacheInvalidator creates a CacheInvalidator over the decision cache.
func NewCacheInvalidator(c cache.Cache) *CacheInvalidator {
	return &CacheInvalidator{cache: c}
}

// InvalidateUser evicts every cached decision for one (tenant, user) pair.
func (i *CacheInvalidator) InvalidateUser(ctx context.Context, tenantID, userID string) error {
	if i.cache == nil {
		return nil
	}
	_, err := i.cache.DeletePrefix(ctx, DecisionKeyPrefix(tenantID, userID))
	return err
}

// InvalidateAll flushes the whole decision cache. Used when a system-wide
// group changes, since its members span an unknown set of tenants.
func (i *CacheInvalidator) InvalidateAll(ctx context.Context) error {
	if i.cache == nil {
		return nil
	}
	return i.cache.Clear(ctx)
}
