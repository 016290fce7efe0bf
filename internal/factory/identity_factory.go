package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-mail-triage/internal/adapters/identity"
	"github.com/mikey/llm-mail-triage/internal/config"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// IdentityFactory creates the identity provider, optionally behind a principal cache
type IdentityFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewIdentityFactory creates a new identity factory
func NewIdentityFactory(cfg *config.Config, logger *zap.Logger) *IdentityFactory {
	return &IdentityFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateIdentityProvider creates the provider selected by identity.provider
func (f *IdentityFactory) CreateIdentityProvider() (core.IdentityProvider, error) {
	idCfg := f.cfg.GetIdentity()

	var provider core.IdentityProvider
	switch idCfg.Provider {
	case "supabase":
		if idCfg.SupabaseURL == "" {
			return nil, fmt.Errorf("identity.supabase.url is required for the supabase provider")
		}
		provider = identity.NewSupabaseProvider(idCfg.SupabaseURL, idCfg.SupabaseAPIKey, idCfg.Timeout, f.logger)
	case "static":
		if len(idCfg.StaticTokens) == 0 {
			f.logger.Warn("Static identity provider has no tokens, every request will be rejected")
		}
		provider = identity.NewStaticProvider(idCfg.StaticTokens)
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", idCfg.Provider)
	}

	cache, err := f.createCache(idCfg)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return provider, nil
	}

	f.logger.Info("Caching resolved principals",
		zap.String("cache", idCfg.CacheType),
		zap.Duration("ttl", idCfg.CacheTTL))
	return identity.NewCachedProvider(provider, cache, idCfg.CacheTTL, f.logger), nil
}

func (f *IdentityFactory) createCache(idCfg config.IdentityConfig) (identity.PrincipalCache, error) {
	switch idCfg.CacheType {
	case "", "none":
		return nil, nil
	case "memory":
		return identity.NewMemoryCache(f.logger, idCfg.CacheCleanup), nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), idCfg.Timeout)
		defer cancel()
		return identity.NewRedisCache(ctx, idCfg.RedisAddr, idCfg.RedisPassword, idCfg.RedisDB, f.logger)
	default:
		return nil, fmt.Errorf("unsupported identity cache type: %s", idCfg.CacheType)
	}
}
