// Package usage keeps a ledger of completed chat requests.
package usage

import (
	"context"
	"time"

	"github.com/auria-labs/auria-agent/internal/models"
)

type Record struct {
	ID               string      `json:"id"`
	RequestID        string      `json:"request_id"`
	APIKeyID         string      `json:"api_key_id,omitempty"`
	Model            string      `json:"model"`
	Tier             models.Tier `json:"tier"`
	Node             string      `json:"node"`
	CompletionTokens int         `json:"completion_tokens"`
	LatencyMs        int64       `json:"latency_ms"`
	CreatedAt        time.Time   `json:"created_at"`
}

type TierTotal struct {
	Tier             models.Tier `json:"tier"`
	Requests         int64       `json:"requests"`
	CompletionTokens int64       `json:"completion_tokens"`
}

// Store persists usage records. An empty apiKeyID in the query methods
// selects records of every key.
type Store interface {
	Record(ctx context.Context, rec *Record) error
	GetUsage(ctx context.Context, apiKeyID string, from, to time.Time) ([]*Record, error)
	GetTierTotals(ctx context.Context, apiKeyID string, from, to time.Time) ([]*TierTotal, error)
}

// NopStore discards records. Used when no database is configured.
type NopStore struct{}

func (NopStore) Record(context.Context, *Record) error { return nil }

func (NopStore) GetUsage(context.Context, string, time.Time, time.Time) ([]*Record, error) {
	return nil, nil
}

func (NopStore) GetTierTotals(context.Context, string, time.Time, time.Time) ([]*TierTotal, error) {
	return nil, nil
}
