package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name          string
	schema        []string
	insertProfile string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS email_scans (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			sender TEXT NOT NULL,
			sender_email TEXT NOT NULL,
			preview TEXT NOT NULL,
			received_date DATETIME NOT NULL,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			threat_indicators TEXT NOT NULL,
			analysis_summary TEXT NOT NULL,
			content_preview TEXT NOT NULL,
			has_attachments BOOLEAN NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_scans_user ON email_scans(user_id, received_date)`,
	},
	insertProfile: `INSERT OR IGNORE INTO profiles (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) NOT NULL DEFAULT '',
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS email_scans (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			email_id VARCHAR(255) NOT NULL,
			subject TEXT NOT NULL,
			sender VARCHAR(255) NOT NULL,
			sender_email VARCHAR(255) NOT NULL,
			preview TEXT NOT NULL,
			received_date DATETIME(6) NOT NULL,
			risk_score INT NOT NULL,
			risk_level VARCHAR(16) NOT NULL,
			threat_indicators JSON NOT NULL,
			analysis_summary TEXT NOT NULL,
			content_preview TEXT NOT NULL,
			has_attachments BOOLEAN NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_email_scans_user (user_id, received_date)
		)`,
	},
	insertProfile: `INSERT IGNORE INTO profiles (id, email, display_name, created_at) VALUES (?, ?, ?, ?)`,
}

const recordColumns = `id, user_id, email_id, subject, sender, sender_email, preview, received_date,
	risk_score, risk_level, threat_indicators, analysis_summary, content_preview, has_attachments, created_at`

// SQLStore is a database/sql implementation of Store shared by SQLite and MySQL
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database file
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLStore(db, sqliteDialect, logger)
}

// NewMySQLStore connects to MySQL. Time columns are always read as UTC time.Time values.
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	mysqlCfg.ParseTime = true
	mysqlCfg.Loc = time.UTC

	db, err := sql.Open("mysql", mysqlCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLStore(db, mysqlDialect, logger)
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}

	logger.Info("Record store initialised", zap.String("backend", d.name))
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Insert stores a new record
func (s *SQLStore) Insert(ctx context.Context, record *core.RiskRecord) (*core.RiskRecord, error) {
	indicators, err := encodeIndicators(record.ThreatIndicators)
	if err != nil {
		return nil, err
	}

	stored := cloneRecord(record)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now()
	stored.ReceivedDate = stored.ReceivedDate.UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO email_scans (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stored.ID, stored.UserID, stored.EmailID, stored.Subject, stored.Sender, stored.SenderEmail,
		stored.Preview, stored.ReceivedDate, stored.RiskScore, string(stored.RiskLevel), string(indicators),
		stored.AnalysisSummary, stored.ContentPreview, stored.HasAttachments, stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert risk record: %w", err)
	}

	return stored, nil
}

// ListByUser returns the user's records, newest received first
func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]*core.RiskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM email_scans
		WHERE user_id = ?
		ORDER BY received_date DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk records: %w", err)
	}
	defer rows.Close()

	records := []*core.RiskRecord{}
	for rows.Next() {
		r, err := scanSQLRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read risk records: %w", err)
	}
	return records, nil
}

// Get returns a single record
func (s *SQLStore) Get(ctx context.Context, id string) (*core.RiskRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM email_scans
		WHERE id = ?
	`, id)

	r, err := scanSQLRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRecordNotFound
	}
	return r, err
}

// GetProfile returns a profile
func (s *SQLStore) GetProfile(ctx context.Context, id string) (*core.Profile, error) {
	var p core.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, created_at
		FROM profiles
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Email, &p.DisplayName, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &p, nil
}

// EnsureProfile inserts the profile unless one with the same ID exists
func (s *SQLStore) EnsureProfile(ctx context.Context, profile *core.Profile) error {
	createdAt := profile.CreatedAt.UTC()
	if profile.CreatedAt.IsZero() {
		createdAt = now()
	}

	_, err := s.db.ExecContext(ctx, s.dialect.insertProfile,
		profile.ID, profile.Email, profile.DisplayName, createdAt)
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("backend", s.dialect.name), zap.Error(err))
		return err
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLRecord(row rowScanner) (*core.RiskRecord, error) {
	var r core.RiskRecord
	var level string
	var indicators []byte

	err := row.Scan(
		&r.ID, &r.UserID, &r.EmailID, &r.Subject, &r.Sender, &r.SenderEmail, &r.Preview,
		&r.ReceivedDate, &r.RiskScore, &level, &indicators, &r.AnalysisSummary,
		&r.ContentPreview, &r.HasAttachments, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan risk record: %w", err)
	}

	r.RiskLevel = core.RiskLevel(level)
	r.ReceivedDate = r.ReceivedDate.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	if r.ThreatIndicators, err = decodeIndicators(indicators); err != nil {
		return nil, err
	}
	return &r, nil
}
