package models

import (
	"github.com/google/uuid"
)

const (
	RoleAssistant    = "assistant"
	FinishReasonStop = "stop"
	responseIDPrefix = "auria_"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the inbound OpenAI-style request. Model is either
// a bare tier ("PRO") or a namespaced one ("AURIA:PRO").
type ChatCompletionRequest struct {
	Model       string        `json:"model" validate:"required"`
	Messages    []ChatMessage `json:"messages" validate:"required"`
	MaxTokens   *int          `json:"max_tokens,omitempty" validate:"omitempty,gte=0"`
	Temperature *float64      `json:"temperature,omitempty"`

	// APIKeyID attributes the request in the usage ledger. It is set by the
	// transport from the authenticated caller, never from the body.
	APIKeyID string `json:"-"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewID returns a globally unique response id of the form auria_<uuid>.
func NewID() string {
	return responseIDPrefix + uuid.New().String()
}
