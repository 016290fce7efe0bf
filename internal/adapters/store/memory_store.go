package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryStore keeps records and profiles in process memory
type MemoryStore struct {
	records  map[string]*core.RiskRecord
	profiles map[string]*core.Profile
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*core.RiskRecord),
		profiles: make(map[string]*core.Profile),
		logger:   logger,
	}
}

func cloneRecord(r *core.RiskRecord) *core.RiskRecord {
	c := *r
	c.ThreatIndicators = append([]string{}, r.ThreatIndicators...)
	return &c
}

// Insert stores a new record
func (s *MemoryStore) Insert(ctx context.Context, record *core.RiskRecord) (*core.RiskRecord, error) {
	stored := cloneRecord(record)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now()

	s.mu.Lock()
	s.records[stored.ID] = stored
	s.mu.Unlock()

	s.logger.Debug("Stored risk record in memory", zap.String("id", stored.ID))
	return cloneRecord(stored), nil
}

// ListByUser returns the user's records, newest received first
func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]*core.RiskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []*core.RiskRecord{}
	for _, r := range s.records {
		if r.UserID == userID {
			records = append(records, cloneRecord(r))
		}
	}
	sortNewestFirst(records)
	return records, nil
}

// Get returns a single record
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.RiskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, core.ErrRecordNotFound
	}
	return cloneRecord(r), nil
}

// GetProfile returns a profile
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, core.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

// EnsureProfile adds the profile unless one with the same ID exists
func (s *MemoryStore) EnsureProfile(ctx context.Context, profile *core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; ok {
		return nil
	}
	p := *profile
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	s.profiles[p.ID] = &p
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
