package identity

import (
	"context"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// CachedProvider caches successful resolutions of another provider.
// Failures are never cached, so a revoked token is rejected at most ttl after revocation.
type CachedProvider struct {
	provider core.IdentityProvider
	cache    PrincipalCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCachedProvider wraps provider with cache
func NewCachedProvider(provider core.IdentityProvider, cache PrincipalCache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
	}
}

// Resolve serves from the cache when possible
func (p *CachedProvider) Resolve(ctx context.Context, token string) (*core.Principal, error) {
	key := tokenKey(token)

	principal, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("Principal cache lookup failed", zap.Error(err))
	} else if ok {
		return principal, nil
	}

	principal, err = p.provider.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, principal, p.ttl); err != nil {
		p.logger.Warn("Failed to cache principal", zap.Error(err))
	}
	return principal, nil
}

// Close releases the cache
func (p *CachedProvider) Close() error {
	return p.cache.Close()
}
