package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

const pgRecordColumns = `id, user_id, email_id, subject, sender, sender_email, preview, received_date,
	risk_score, risk_level, threat_indicators, analysis_summary, content_preview, has_attachments, created_at`

// PostgresStore keeps records in the profiles and email_scans tables of a Postgres database
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to Postgres and makes sure the tables exist
func NewPostgresStore(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure record schema: %w", err)
	}

	logger.Info("Record store initialised", zap.String("backend", "postgres"))
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			id           TEXT PRIMARY KEY,
			email        TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS email_scans (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			email_id          TEXT NOT NULL,
			subject           TEXT NOT NULL,
			sender            TEXT NOT NULL,
			sender_email      TEXT NOT NULL,
			preview           TEXT NOT NULL,
			received_date     TIMESTAMPTZ NOT NULL,
			risk_score        INTEGER NOT NULL,
			risk_level        TEXT NOT NULL,
			threat_indicators JSONB NOT NULL DEFAULT '[]'::jsonb,
			analysis_summary  TEXT NOT NULL,
			content_preview   TEXT NOT NULL,
			has_attachments   BOOLEAN NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_email_scans_user ON email_scans(user_id, received_date DESC);
	`)
	return err
}

// Insert stores a new record
func (s *PostgresStore) Insert(ctx context.Context, record *core.RiskRecord) (*core.RiskRecord, error) {
	indicators, err := encodeIndicators(record.ThreatIndicators)
	if err != nil {
		return nil, err
	}

	stored := cloneRecord(record)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now()
	stored.ReceivedDate = stored.ReceivedDate.UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO email_scans (`+pgRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		stored.ID, stored.UserID, stored.EmailID, stored.Subject, stored.Sender, stored.SenderEmail,
		stored.Preview, stored.ReceivedDate, stored.RiskScore, string(stored.RiskLevel), indicators,
		stored.AnalysisSummary, stored.ContentPreview, stored.HasAttachments, stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert risk record: %w", err)
	}
	return stored, nil
}

// ListByUser returns the user's records, newest received first
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*core.RiskRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgRecordColumns+`
		FROM email_scans
		WHERE user_id = $1
		ORDER BY received_date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk records: %w", err)
	}
	defer rows.Close()
	return collectPGRecords(rows)
}

// Get returns a single record
func (s *PostgresStore) Get(ctx context.Context, id string) (*core.RiskRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pgRecordColumns+`
		FROM email_scans
		WHERE id = $1
	`, id)

	r, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrRecordNotFound
	}
	return r, err
}

// GetProfile returns a profile
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	var p core.Profile
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, display_name, created_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// EnsureProfile inserts the profile unless one with the same ID exists
func (s *PostgresStore) EnsureProfile(ctx context.Context, profile *core.Profile) error {
	createdAt := profile.CreatedAt.UTC()
	if profile.CreatedAt.IsZero() {
		createdAt = now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, display_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, profile.ID, profile.Email, profile.DisplayName, createdAt)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPGRecord(row pgx.Row) (*core.RiskRecord, error) {
	var r core.RiskRecord
	var level string
	var indicators []byte

	err := row.Scan(
		&r.ID, &r.UserID, &r.EmailID, &r.Subject, &r.Sender, &r.SenderEmail, &r.Preview,
		&r.ReceivedDate, &r.RiskScore, &level, &indicators, &r.AnalysisSummary,
		&r.ContentPreview, &r.HasAttachments, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.RiskLevel = core.RiskLevel(level)
	r.ReceivedDate = r.ReceivedDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	if r.ThreatIndicators, err = decodeIndicators(indicators); err != nil {
		return nil, err
	}
	return &r, nil
}

func collectPGRecords(rows pgx.Rows) ([]*core.RiskRecord, error) {
	records := []*core.RiskRecord{}
	for rows.Next() {
		r, err := scanPGRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan risk record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
