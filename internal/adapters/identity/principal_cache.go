package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
)

// PrincipalCache remembers resolved principals keyed by a token hash
type PrincipalCache interface {
	Get(ctx context.Context, key string) (*core.Principal, bool, error)
	Set(ctx context.Context, key string, principal *core.Principal, ttl time.Duration) error
	Close() error
}

// tokenKey hashes a token so raw credentials never become cache keys
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
