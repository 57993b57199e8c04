// Package node holds the contract for remote generation workers, the HTTP
// implementation of it, and the pool the router indexes into.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/auria-labs/auria-agent/internal/models"
)

// ErrProtocol marks a worker that answered, but not with a usable response.
var ErrProtocol = errors.New("worker protocol error")

type GenerateRequest struct {
	Tier      models.Tier `json:"tier"`
	Prompt    string      `json:"prompt"`
	MaxTokens int         `json:"max_tokens"`
}

type GenerateResponse struct {
	Tokens          []string `json:"tokens"`
	TokensGenerated int      `json:"tokens_generated"`
}

// Client is one remote worker. Implementations must be safe for concurrent
// use and immutable once built.
type Client interface {
	BaseURL() string
	HealthCheck(ctx context.Context) error
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// StatusError is returned when a worker replies with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("node %s failed (status %d)", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("node %s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrProtocol
}
