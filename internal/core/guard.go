package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// IdentityGuard admits only authenticated principals that have a profile
type IdentityGuard struct {
	provider IdentityProvider
	profiles ProfileStore
	logger   *zap.Logger
}

// NewIdentityGuard creates a new identity guard
func NewIdentityGuard(provider IdentityProvider, profiles ProfileStore, logger *zap.Logger) *IdentityGuard {
	return &IdentityGuard{
		provider: provider,
		profiles: profiles,
		logger:   logger,
	}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Authorize resolves the credential and checks the principal's profile.
// It is never retried.
func (g *IdentityGuard) Authorize(ctx context.Context, authorization string) (*Principal, error) {
	token := BearerToken(authorization)
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrMissingCredential)
	}

	principal, err := g.provider.Resolve(ctx, token)
	if err != nil {
		g.logger.Warn("Rejected credential", zap.Error(err))
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if principal == nil || principal.ID == "" {
		return nil, fmt.Errorf("%w: credential resolved to no user", ErrUnauthorized)
	}

	if err := g.RequireProfile(ctx, principal.ID); err != nil {
		return nil, err
	}
	return principal, nil
}

// RequireProfile fails with ErrProfileNotFound unless a profile exists for userID
func (g *IdentityGuard) RequireProfile(ctx context.Context, userID string) error {
	if _, err := g.profiles.GetProfile(ctx, userID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			g.logger.Warn("No profile for principal", zap.String("user_id", userID))
			return err
		}
		return fmt.Errorf("failed to load profile: %w", err)
	}
	return nil
}
