// Package identity resolves bearer credentials to principals.
package identity

import (
	"context"
	"fmt"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// StaticProvider resolves tokens from a fixed token -> user ID table.
// It is meant for local development and the demo seed.
type StaticProvider struct {
	tokens map[string]string
}

// NewStaticProvider creates a provider over a copy of tokens
func NewStaticProvider(tokens map[string]string) *StaticProvider {
	copied := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		copied[token] = userID
	}
	return &StaticProvider{tokens: copied}
}

// Resolve looks the token up in the table
func (p *StaticProvider) Resolve(ctx context.Context, token string) (*core.Principal, error) {
	userID, ok := p.tokens[token]
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: unknown token", core.ErrUnauthorized)
	}
	return &core.Principal{ID: userID}, nil
}
