package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/auria-labs/auria-agent/internal/agent"
	"github.com/auria-labs/auria-agent/internal/auth"
	"github.com/auria-labs/auria-agent/internal/models"
	"github.com/auria-labs/auria-agent/internal/policy"
	"github.com/auria-labs/auria-agent/internal/usage"
	"github.com/auria-labs/auria-agent/pkg/ratelimit"
)

const errorType = "auria_error"

// Completer runs a chat completion. *agent.Agent implements it.
type Completer interface {
	ChatCompletions(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error)
}

type Handler struct {
	agent    Completer
	usage    usage.Store
	limiter  *ratelimit.Limiter // nil disables rate limiting
	logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(a Completer, store usage.Store, limiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	if store == nil {
		store = usage.NopStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		agent:    a,
		usage:    store,
		limiter:  limiter,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "auria-agent"})
}

func (h *Handler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var req models.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	req.APIKeyID = auth.GetAPIKeyID(ctx)

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, clientID(r), estimatedTokens(req.MaxTokens))
		if err != nil {
			h.logger.Warn("rate limiter unavailable", zap.String("request_id", requestID), zap.Error(err))
		}
		if err != nil || !allowed {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	resp, err := h.agent.ChatCompletions(ctx, &req)
	if err != nil {
		status := statusFor(err)
		h.logger.Info("chat completion failed",
			zap.String("request_id", requestID),
			zap.String("model", req.Model),
			zap.Int("status", status),
			zap.Error(err))
		writeError(w, status, clientMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiKeyID := auth.GetAPIKeyID(ctx)

	// Default: last 30 days
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date format (use RFC3339)")
			return
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date format (use RFC3339)")
			return
		}
		to = t
	}

	records, err := h.usage.GetUsage(ctx, apiKeyID, from, to)
	if err != nil {
		h.logger.Error("usage query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}

	totals, err := h.usage.GetTierTotals(ctx, apiKeyID, from, to)
	if err != nil {
		h.logger.Error("usage totals query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}

	if records == nil {
		records = []*usage.Record{}
	}
	if totals == nil {
		totals = []*usage.TierTotal{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_requests": len(records),
		"tiers":          totals,
		"logs":           records,
		"from":           from,
		"to":             to,
	})
}

// statusFor maps agent errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case agent.IsPolicyDenied(err):
		return http.StatusBadRequest
	case agent.IsWorkerError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage exposes the error type and message only. Wrapped causes
// such as node addresses and worker bodies stay in the log.
func clientMessage(err error) string {
	var ae *agent.Error
	if errors.As(err, &ae) {
		return fmt.Sprintf("%s: %s", ae.Type, ae.Message)
	}
	return "internal error"
}

// estimatedTokens charges the limiter with the budget the policy would grant.
func estimatedTokens(maxTokens *int) int {
	n := policy.DefaultMaxTokens
	if maxTokens != nil {
		n = *maxTokens
	}
	return max(min(n, policy.MaxTokensCeiling), 1)
}

// clientID identifies the caller for rate limiting: the API key when auth
// is on, otherwise the remote host.
func clientID(r *http.Request) string {
	if id := auth.GetAPIKeyID(r.Context()); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", jsonName(fe.Field()))
	default:
		return fmt.Sprintf("%s failed %s=%s", jsonName(fe.Field()), fe.Tag(), fe.Param())
	}
}

func jsonName(field string) string {
	switch field {
	case "MaxTokens":
		return "max_tokens"
	case "Model":
		return "model"
	case "Messages":
		return "messages"
	case "Temperature":
		return "temperature"
	default:
		return field
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"type":    errorType,
		},
	})
}
