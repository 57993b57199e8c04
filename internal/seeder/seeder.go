// Package seeder issues API keys for operators and local development.
package seeder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/auria-labs/auria-agent/internal/auth"
)

const (
	DevAPIKey = "auria_sk_dev_0000000000000000"
	DevOwner  = "dev"
)

// IssueKey generates a fresh key for owner, stores its hash and returns the
// raw key. The raw key is not recoverable afterwards.
func IssueKey(ctx context.Context, store auth.Store, owner string) (string, *auth.APIKey, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", nil, fmt.Errorf("owner is required")
	}

	raw, err := auth.GenerateKey()
	if err != nil {
		return "", nil, err
	}

	apiKey := &auth.APIKey{
		Owner:   owner,
		KeyHash: auth.HashKey(raw),
		Active:  true,
	}
	if err := store.Create(ctx, apiKey); err != nil {
		return "", nil, err
	}
	return raw, apiKey, nil
}

// SeedDevKey stores the well-known DevAPIKey. A failure usually means the
// key already exists and is only logged.
func SeedDevKey(ctx context.Context, store auth.Store, logger *zap.Logger) {
	apiKey := &auth.APIKey{
		Owner:   DevOwner,
		KeyHash: auth.HashKey(DevAPIKey),
		Active:  true,
	}

	if err := store.Create(ctx, apiKey); err != nil {
		logger.Info("dev api key may already exist, skipping", zap.Error(err))
		return
	}
	logger.Info("dev api key created",
		zap.String("key", DevAPIKey),
		zap.String("owner", DevOwner),
		zap.String("api_key_id", apiKey.ID))
}
