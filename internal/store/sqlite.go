package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ashureev/biabot/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS client_profiles (
		client_code TEXT PRIMARY KEY,
		client_name TEXT NOT NULL,
		brand_voice_rules TEXT NOT NULL,
		words_to_avoid_json TEXT NOT NULL DEFAULT '[]',
		required_disclaimers TEXT NOT NULL DEFAULT '',
		preferred_tone TEXT NOT NULL DEFAULT '',
		common_audiences_json TEXT NOT NULL DEFAULT '[]',
		default_approver TEXT NOT NULL DEFAULT '',
		subscription_tier TEXT NOT NULL DEFAULT '',
		credit_menu_json TEXT NOT NULL DEFAULT '{}',
		turnaround_rules TEXT NOT NULL DEFAULT '',
		compliance_notes TEXT NOT NULL DEFAULT '',
		service_options_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_client_profiles_name ON client_profiles(client_name);

	CREATE TABLE IF NOT EXISTS service_options (
		scope TEXT PRIMARY KEY,
		options_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		client_code TEXT NOT NULL,
		client_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		project_title TEXT NOT NULL,
		summary TEXT NOT NULL,
		monday_item_id TEXT,
		payload_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs(created_at DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const profileColumns = `client_code, client_name, brand_voice_rules, words_to_avoid_json,
	required_disclaimers, preferred_tone, common_audiences_json, default_approver,
	subscription_tier, credit_menu_json, turnaround_rules, compliance_notes, service_options_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.ClientProfile, error) {
	var p domain.ClientProfile
	var wordsJSON, audiencesJSON, creditJSON, optionsJSON string
	if err := row.Scan(
		&p.ClientCode, &p.ClientName, &p.BrandVoiceRules, &wordsJSON,
		&p.RequiredDisclaimers, &p.PreferredTone, &audiencesJSON, &p.DefaultApprover,
		&p.SubscriptionTier, &creditJSON, &p.TurnaroundRules, &p.ComplianceNotes, &optionsJSON,
	); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{wordsJSON, &p.WordsToAvoid},
		{audiencesJSON, &p.CommonAudiences},
		{creditJSON, &p.CreditMenu},
		{optionsJSON, &p.ServiceOptions},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", p.ClientCode, err)
		}
	}
	return &p, nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetClientProfile retrieves a profile by client code.
func (s *SQLiteStore) GetClientProfile(ctx context.Context, clientCode string) (*domain.ClientProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM client_profiles WHERE client_code = ?`
	p, err := scanProfile(s.db.QueryRowContext(ctx, query, domain.NormalizeClientCode(clientCode)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan client profile: %w", err)
	}
	return p, nil
}

// ListClientProfiles returns all profiles ordered by client name.
func (s *SQLiteStore) ListClientProfiles(ctx context.Context) ([]domain.ClientProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM client_profiles ORDER BY client_name, client_code`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query client profiles: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close client profile rows", "error", closeErr)
		}
	}()

	profiles := []domain.ClientProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client profiles: %w", err)
	}
	return profiles, nil
}

// UpsertClientProfile creates or replaces a profile.
func (s *SQLiteStore) UpsertClientProfile(ctx context.Context, profile domain.ClientProfile) (*domain.ClientProfile, error) {
	profile.ClientCode = domain.NormalizeClientCode(profile.ClientCode)

	words, err := marshalJSON(nonNilStrings(profile.WordsToAvoid))
	if err != nil {
		return nil, fmt.Errorf("encode words_to_avoid: %w", err)
	}
	audiences, err := marshalJSON(nonNilStrings(profile.CommonAudiences))
	if err != nil {
		return nil, fmt.Errorf("encode common_audiences: %w", err)
	}
	credits := profile.CreditMenu
	if credits == nil {
		credits = map[string]int{}
	}
	creditJSON, err := marshalJSON(credits)
	if err != nil {
		return nil, fmt.Errorf("encode credit_menu: %w", err)
	}
	options, err := marshalJSON(nonNilStrings(profile.ServiceOptions))
	if err != nil {
		return nil, fmt.Errorf("encode service_options: %w", err)
	}

	query := `
	INSERT INTO client_profiles (` + profileColumns + `, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(client_code) DO UPDATE SET
		client_name = excluded.client_name,
		brand_voice_rules = excluded.brand_voice_rules,
		words_to_avoid_json = excluded.words_to_avoid_json,
		required_disclaimers = excluded.required_disclaimers,
		preferred_tone = excluded.preferred_tone,
		common_audiences_json = excluded.common_audiences_json,
		default_approver = excluded.default_approver,
		subscription_tier = excluded.subscription_tier,
		credit_menu_json = excluded.credit_menu_json,
		turnaround_rules = excluded.turnaround_rules,
		compliance_notes = excluded.compliance_notes,
		service_options_json = excluded.service_options_json,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	err = withBusyRetry(ctx, "upsert client profile", func() error {
		_, err := s.db.ExecContext(ctx, query,
			profile.ClientCode, profile.ClientName, profile.BrandVoiceRules, words,
			profile.RequiredDisclaimers, profile.PreferredTone, audiences, profile.DefaultApprover,
			profile.SubscriptionTier, creditJSON, profile.TurnaroundRules, profile.ComplianceNotes, options,
			now, now,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert client profile: %w", err)
	}
	return s.GetClientProfile(ctx, profile.ClientCode)
}

// DeleteClientProfile removes a profile.
func (s *SQLiteStore) DeleteClientProfile(ctx context.Context, clientCode string) error {
	var rows int64
	err := withBusyRetry(ctx, "delete client profile", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM client_profiles WHERE client_code = ?`, domain.NormalizeClientCode(clientCode))
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete client profile: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const globalScope = "global"

// ListServiceOptions returns the global service list.
func (s *SQLiteStore) ListServiceOptions(ctx context.Context) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT options_json FROM service_options WHERE scope = ?`, globalScope).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultServiceOptions(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query service options: %w", err)
	}
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("decode service options: %w", err)
	}
	if len(options) == 0 {
		return defaultServiceOptions(), nil
	}
	return options, nil
}

// SetServiceOptions replaces the global service list.
func (s *SQLiteStore) SetServiceOptions(ctx context.Context, options []string) ([]string, error) {
	raw, err := marshalJSON(nonNilStrings(options))
	if err != nil {
		return nil, fmt.Errorf("encode service options: %w", err)
	}
	query := `
	INSERT INTO service_options (scope, options_json, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(scope) DO UPDATE SET
		options_json = excluded.options_json,
		updated_at = excluded.updated_at`
	err = withBusyRetry(ctx, "set service options", func() error {
		_, err := s.db.ExecContext(ctx, query, globalScope, raw, time.Now().Unix())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set service options: %w", err)
	}
	return options, nil
}

// CreateRequestLog persists a finalized submission.
func (s *SQLiteStore) CreateRequestLog(ctx context.Context, log *domain.RequestLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	payload, err := marshalJSON(log.Payload)
	if err != nil {
		return fmt.Errorf("encode request payload: %w", err)
	}

	var itemID any
	if log.MondayItemID != "" {
		itemID = log.MondayItemID
	}

	query := `
	INSERT INTO request_logs (
		id, created_at, client_code, client_name, service_type,
		project_title, summary, monday_item_id, payload_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err = withBusyRetry(ctx, "create request log", func() error {
		_, err := s.db.ExecContext(ctx, query,
			log.ID, log.CreatedAt.UnixMilli(), log.ClientCode, log.ClientName, log.ServiceType,
			log.ProjectTitle, log.Summary, itemID, payload,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("create request log: %w", err)
	}
	return nil
}

// ListRequestLogs returns logs newest first.
func (s *SQLiteStore) ListRequestLogs(ctx context.Context, limit, offset int) ([]domain.RequestLog, error) {
	limit, offset, ok := pageBounds(limit, offset)
	if !ok {
		return []domain.RequestLog{}, nil
	}
	query := `
		SELECT id, created_at, client_code, client_name, service_type,
		       project_title, summary, monday_item_id, payload_json
		FROM request_logs ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query request logs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close request log rows", "error", closeErr)
		}
	}()

	logs := []domain.RequestLog{}
	for rows.Next() {
		var l domain.RequestLog
		var createdAt int64
		var itemID sql.NullString
		var payload string
		if err := rows.Scan(
			&l.ID, &createdAt, &l.ClientCode, &l.ClientName, &l.ServiceType,
			&l.ProjectTitle, &l.Summary, &itemID, &payload,
		); err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &l.Payload); err != nil {
			return nil, fmt.Errorf("decode request payload %s: %w", l.ID, err)
		}
		l.CreatedAt = time.UnixMilli(createdAt).UTC()
		l.MondayItemID = itemID.String
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request logs: %w", err)
	}
	return logs, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
