package core

import (
	"context"
	"time"
)

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends the prompt in a single round trip and returns the raw reply
	Complete(ctx context.Context, prompt *Prompt) (*Completion, error)
}

// RecordStore persists and reads risk records
type RecordStore interface {
	// Insert stores a new record and returns it with its assigned ID and creation time
	Insert(ctx context.Context, record *RiskRecord) (*RiskRecord, error)

	// ListByUser returns all records of a user, newest received first
	ListByUser(ctx context.Context, userID string) ([]*RiskRecord, error)

	// Get returns one record or ErrRecordNotFound
	Get(ctx context.Context, id string) (*RiskRecord, error)
}

// ProfileStore looks up the user profiles principals must map to
type ProfileStore interface {
	// GetProfile returns the profile or ErrProfileNotFound
	GetProfile(ctx context.Context, id string) (*Profile, error)

	// EnsureProfile creates the profile if it does not exist yet
	EnsureProfile(ctx context.Context, profile *Profile) error
}

// IdentityProvider resolves a bearer token to the principal owning it
type IdentityProvider interface {
	// Resolve returns ErrUnauthorized (possibly wrapped) for unknown or invalid tokens
	Resolve(ctx context.Context, token string) (*Principal, error)
}

// MetricsRecorder receives pipeline observations
type MetricsRecorder interface {
	ObserveClassification(provider string, elapsed time.Duration, err error)
	ObserveAssessment(level RiskLevel, outcome SanitizeOutcome)
}

// NopMetrics discards all observations
type NopMetrics struct{}

func (NopMetrics) ObserveClassification(string, time.Duration, error) {}

func (NopMetrics) ObserveAssessment(RiskLevel, SanitizeOutcome) {}
