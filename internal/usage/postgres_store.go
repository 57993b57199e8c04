package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/auria-labs/auria-agent/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	request_id        TEXT NOT NULL,
	api_key_id        TEXT NOT NULL DEFAULT '',
	model             TEXT NOT NULL,
	tier              TEXT NOT NULL,
	node              TEXT NOT NULL,
	completion_tokens INTEGER NOT NULL,
	latency_ms        BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS usage_logs_created_at_idx ON usage_logs (created_at);
`

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the usage_logs table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate usage_logs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_logs (request_id, api_key_id, model, tier, node, completion_tokens, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := s.db.QueryRow(ctx, query,
		rec.RequestID, rec.APIKeyID, rec.Model, string(rec.Tier), rec.Node,
		rec.CompletionTokens, rec.LatencyMs,
	).Scan(&rec.ID, &rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetUsage(ctx context.Context, apiKeyID string, from, to time.Time) ([]*Record, error) {
	query := `
		SELECT id, request_id, api_key_id, model, tier, node, completion_tokens, latency_ms, created_at
		FROM usage_logs
		WHERE ($1 = '' OR api_key_id = $1) AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(ctx, query, apiKeyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage logs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var tier string
		err := rows.Scan(
			&r.ID, &r.RequestID, &r.APIKeyID, &r.Model, &tier, &r.Node,
			&r.CompletionTokens, &r.LatencyMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage log: %w", err)
		}
		r.Tier = models.Tier(tier)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage logs: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) GetTierTotals(ctx context.Context, apiKeyID string, from, to time.Time) ([]*TierTotal, error) {
	query := `
		SELECT tier, COUNT(*), COALESCE(SUM(completion_tokens), 0)
		FROM usage_logs
		WHERE ($1 = '' OR api_key_id = $1) AND created_at BETWEEN $2 AND $3
		GROUP BY tier
		ORDER BY tier
	`
	rows, err := s.db.Query(ctx, query, apiKeyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query tier totals: %w", err)
	}
	defer rows.Close()

	var totals []*TierTotal
	for rows.Next() {
		var t TierTotal
		var tier string
		if err := rows.Scan(&tier, &t.Requests, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("failed to scan tier total: %w", err)
		}
		t.Tier = models.Tier(tier)
		totals = append(totals, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier totals: %w", err)
	}

	return totals, nil
}
