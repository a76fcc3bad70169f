package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashureev/biabot/internal/domain"
)

// PostgresConfig configures the Postgres connection pool.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// PostgresStore implements Repository on Postgres (including Supabase).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool, verifies connectivity and creates the schema.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS client_profiles (
				client_code TEXT PRIMARY KEY,
				client_name TEXT NOT NULL,
				brand_voice_rules TEXT NOT NULL,
				words_to_avoid TEXT[] NOT NULL DEFAULT '{}',
				required_disclaimers TEXT NOT NULL DEFAULT '',
				preferred_tone TEXT NOT NULL DEFAULT '',
				common_audiences TEXT[] NOT NULL DEFAULT '{}',
				default_approver TEXT NOT NULL DEFAULT '',
				subscription_tier TEXT NOT NULL DEFAULT '',
				credit_menu JSONB NOT NULL DEFAULT '{}',
				turnaround_rules TEXT NOT NULL DEFAULT '',
				compliance_notes TEXT NOT NULL DEFAULT '',
				service_options TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS service_options (
				scope TEXT PRIMARY KEY,
				options TEXT[] NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE TABLE IF NOT EXISTS request_logs (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				client_code TEXT NOT NULL,
				client_name TEXT NOT NULL,
				service_type TEXT NOT NULL,
				project_title TEXT NOT NULL,
				summary TEXT NOT NULL,
				monday_item_id TEXT,
				payload JSONB NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_request_logs_created ON request_logs (created_at DESC)`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

// withTx executes fn within a transaction, rolling back when it fails.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// Always attempt rollback on defer - it's a no-op if already committed
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgProfileColumns = `client_code, client_name, brand_voice_rules, words_to_avoid,
	required_disclaimers, preferred_tone, common_audiences, default_approver,
	subscription_tier, credit_menu, turnaround_rules, compliance_notes, service_options`

func scanPgProfile(row pgx.Row) (*domain.ClientProfile, error) {
	var p domain.ClientProfile
	var credit []byte
	if err := row.Scan(
		&p.ClientCode, &p.ClientName, &p.BrandVoiceRules, &p.WordsToAvoid,
		&p.RequiredDisclaimers, &p.PreferredTone, &p.CommonAudiences, &p.DefaultApprover,
		&p.SubscriptionTier, &credit, &p.TurnaroundRules, &p.ComplianceNotes, &p.ServiceOptions,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(credit, &p.CreditMenu); err != nil {
		return nil, fmt.Errorf("decode credit_menu for %s: %w", p.ClientCode, err)
	}
	return &p, nil
}

func (s *PostgresStore) GetClientProfile(ctx context.Context, clientCode string) (*domain.ClientProfile, error) {
	query := `SELECT ` + pgProfileColumns + ` FROM client_profiles WHERE client_code = $1`
	p, err := scanPgProfile(s.pool.QueryRow(ctx, query, domain.NormalizeClientCode(clientCode)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan client profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListClientProfiles(ctx context.Context) ([]domain.ClientProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgProfileColumns+` FROM client_profiles ORDER BY client_name, client_code`)
	if err != nil {
		return nil, fmt.Errorf("query client profiles: %w", err)
	}
	defer rows.Close()

	profiles := []domain.ClientProfile{}
	for rows.Next() {
		p, err := scanPgProfile(rows)
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

func (s *PostgresStore) UpsertClientProfile(ctx context.Context, profile domain.ClientProfile) (*domain.ClientProfile, error) {
	profile.ClientCode = domain.NormalizeClientCode(profile.ClientCode)
	credits := profile.CreditMenu
	if credits == nil {
		credits = map[string]int{}
	}
	creditJSON, err := json.Marshal(credits)
	if err != nil {
		return nil, fmt.Errorf("encode credit_menu: %w", err)
	}

	query := `
	INSERT INTO client_profiles (` + pgProfileColumns + `, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
	ON CONFLICT (client_code) DO UPDATE SET
		client_name = EXCLUDED.client_name,
		brand_voice_rules = EXCLUDED.brand_voice_rules,
		words_to_avoid = EXCLUDED.words_to_avoid,
		required_disclaimers = EXCLUDED.required_disclaimers,
		preferred_tone = EXCLUDED.preferred_tone,
		common_audiences = EXCLUDED.common_audiences,
		default_approver = EXCLUDED.default_approver,
		subscription_tier = EXCLUDED.subscription_tier,
		credit_menu = EXCLUDED.credit_menu,
		turnaround_rules = EXCLUDED.turnaround_rules,
		compliance_notes = EXCLUDED.compliance_notes,
		service_options = EXCLUDED.service_options,
		updated_at = now()
	RETURNING ` + pgProfileColumns

	p, err := scanPgProfile(s.pool.QueryRow(ctx, query,
		profile.ClientCode, profile.ClientName, profile.BrandVoiceRules, nonNilStrings(profile.WordsToAvoid),
		profile.RequiredDisclaimers, profile.PreferredTone, nonNilStrings(profile.CommonAudiences), profile.DefaultApprover,
		profile.SubscriptionTier, creditJSON, profile.TurnaroundRules, profile.ComplianceNotes, nonNilStrings(profile.ServiceOptions),
	))
	if err != nil {
		return nil, fmt.Errorf("upsert client profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) DeleteClientProfile(ctx context.Context, clientCode string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM client_profiles WHERE client_code = $1`, domain.NormalizeClientCode(clientCode))
	if err != nil {
		return fmt.Errorf("delete client profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListServiceOptions(ctx context.Context) ([]string, error) {
	var options []string
	err := s.pool.QueryRow(ctx, `SELECT options FROM service_options WHERE scope = $1`, globalScope).Scan(&options)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(options) == 0) {
		return defaultServiceOptions(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query service options: %w", err)
	}
	return options, nil
}

func (s *PostgresStore) SetServiceOptions(ctx context.Context, options []string) ([]string, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO service_options (scope, options, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (scope) DO UPDATE SET options = EXCLUDED.options, updated_at = now()`,
		globalScope, nonNilStrings(options))
	if err != nil {
		return nil, fmt.Errorf("set service options: %w", err)
	}
	return options, nil
}

func (s *PostgresStore) CreateRequestLog(ctx context.Context, log *domain.RequestLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(log.Payload)
	if err != nil {
		return fmt.Errorf("encode request payload: %w", err)
	}
	var itemID *string
	if log.MondayItemID != "" {
		itemID = &log.MondayItemID
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO request_logs (
			id, created_at, client_code, client_name, service_type,
			project_title, summary, monday_item_id, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID, log.CreatedAt, log.ClientCode, log.ClientName, log.ServiceType,
		log.ProjectTitle, log.Summary, itemID, payload,
	)
	if err != nil {
		return fmt.Errorf("create request log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRequestLogs(ctx context.Context, limit, offset int) ([]domain.RequestLog, error) {
	limit, offset, ok := pageBounds(limit, offset)
	if !ok {
		return []domain.RequestLog{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, client_code, client_name, service_type,
		       project_title, summary, monday_item_id, payload
		FROM request_logs ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query request logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.RequestLog{}
	for rows.Next() {
		var l domain.RequestLog
		var itemID *string
		var payload []byte
		if err := rows.Scan(
			&l.ID, &l.CreatedAt, &l.ClientCode, &l.ClientName, &l.ServiceType,
			&l.ProjectTitle, &l.Summary, &itemID, &payload,
		); err != nil {
			return nil, fmt.Errorf("scan request log row: %w", err)
		}
		if err := json.Unmarshal(payload, &l.Payload); err != nil {
			return nil, fmt.Errorf("decode request payload %s: %w", l.ID, err)
		}
		if itemID != nil {
			l.MondayItemID = *itemID
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request logs: %w", err)
	}
	return logs, nil
}
