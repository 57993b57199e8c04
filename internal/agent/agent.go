// Package agent runs the per-request dispatch pipeline: tier resolution,
// admission policy, worker selection, the worker call and response
// assembly.
package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/auria-labs/auria-agent/config"
	"github.com/auria-labs/auria-agent/internal/models"
	"github.com/auria-labs/auria-agent/internal/node"
	"github.com/auria-labs/auria-agent/internal/policy"
	"github.com/auria-labs/auria-agent/internal/routing"
	"github.com/auria-labs/auria-agent/internal/usage"
)

// Policy decides admission and shaping. *policy.Engine is the default.
type Policy interface {
	Decide(requested *models.Tier, maxTokens *int) policy.Decision
}

// Agent is built once at start-up and shared by all request goroutines.
// Apart from the router's counter it is read-only.
type Agent struct {
	cfg    *config.Config
	policy Policy
	pool   *node.Pool
	router routing.Router

	usage  usage.Store
	logger *zap.Logger
	tracer trace.Tracer

	// pending tracks in-flight usage writes so Close can wait for them.
	// mu guards closed and every pending.Add.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// usageWriteTimeout bounds a single usage write so Close cannot hang on a
// stuck store.
const usageWriteTimeout = 5 * time.Second

type options struct {
	clients    []node.Client
	router     routing.Router
	policy     Policy
	httpClient *http.Client
	usage      usage.Store
	logger     *zap.Logger
	tracer     trace.Tracer
}

type Option func(*options)

// WithClients replaces the HTTP clients built from cfg.NodeURLs.
func WithClients(clients ...node.Client) Option {
	return func(o *options) { o.clients = clients }
}

// WithRouter replaces the router selected by cfg.RoutingStrategy.
func WithRouter(r routing.Router) Option {
	return func(o *options) { o.router = r }
}

// WithPolicy replaces the engine built from cfg.DefaultTier and
// cfg.MaxCostMicroUSDC.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithUsageStore(s usage.Store) Option {
	return func(o *options) { o.usage = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New builds the agent. It fails with a configuration error when no node is
// configured or the routing strategy cannot be built.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	o := options{
		usage:  usage.NopStore{},
		logger: zap.NewNop(),
		tracer: noop.NewTracerProvider().Tracer("auria-agent"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	clients := o.clients
	if clients == nil {
		var err error
		clients, err = node.NewClients(cfg.NodeURLs, o.httpClient)
		if err != nil {
			return nil, newError(ErrorTypeConfiguration, "invalid node url", err)
		}
	}

	pool, err := node.NewPool(clients)
	if err != nil {
		return nil, newError(ErrorTypeConfiguration, "no node urls configured", err)
	}

	router := o.router
	if router == nil {
		strategy, err := routing.ParseStrategy(cfg.RoutingStrategy)
		if err != nil {
			return nil, newError(ErrorTypeConfiguration, "invalid routing strategy", err)
		}
		if router, err = routing.New(strategy); err != nil {
			return nil, newError(ErrorTypeConfiguration, "invalid routing strategy", err)
		}
	}

	engine := o.policy
	if engine == nil {
		engine = policy.NewEngine(cfg.DefaultTier, cfg.MaxCostMicroUSDC)
	}

	return &Agent{
		cfg:    cfg,
		policy: engine,
		pool:   pool,
		router: router,
		usage:  o.usage,
		logger: o.logger,
		tracer: o.tracer,
	}, nil
}

func (a *Agent) Config() *config.Config {
	return a.cfg
}

func (a *Agent) Pool() *node.Pool {
	return a.pool
}

// ChatCompletions runs one request through the pipeline. The worker is
// called exactly once; a worker failure fails the request.
func (a *Agent) ChatCompletions(ctx context.Context, req *models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	ctx, span := a.tracer.Start(ctx, "agent.chat_completions")
	defer span.End()

	// Unknown tiers fall back to the default tier instead of failing.
	tier, ok := models.ResolveModelTier(req.Model)
	if !ok {
		tier = a.cfg.DefaultTier
		a.logger.Debug("unresolved model tier, using default",
			zap.String("model", req.Model),
			zap.String("tier", tier.String()),
			zap.String("reason", string(ErrorTypeUnknownTier)))
	}

	decision := a.policy.Decide(&tier, req.MaxTokens)
	if !decision.Allowed {
		reason := decision.DenyReason
		if reason == "" {
			reason = "request denied"
		}
		span.SetStatus(codes.Error, reason)
		return nil, newError(ErrorTypePolicyDenied, reason, nil)
	}

	prompt := BuildPrompt(req.Messages)
	target := a.pool.Get(a.router.Pick(decision.Tier))

	span.SetAttributes(
		attribute.String("model", req.Model),
		attribute.String("tier", decision.Tier.String()),
		attribute.Int("max_tokens", decision.MaxTokens),
		attribute.String("node", target.BaseURL()),
	)

	start := time.Now()
	out, err := target.Generate(ctx, &node.GenerateRequest{
		Tier:      decision.Tier,
		Prompt:    prompt,
		MaxTokens: decision.MaxTokens,
	})
	latency := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "worker call failed")
		a.logger.Warn("worker generate failed",
			zap.String("node", target.BaseURL()),
			zap.String("tier", decision.Tier.String()),
			zap.Error(err))
		return nil, workerError(err)
	}

	resp := &models.ChatCompletionResponse{
		ID:      models.NewID(),
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []models.Choice{
			{
				Index: 0,
				Message: models.ChatMessage{
					Role:    models.RoleAssistant,
					Content: strings.Join(out.Tokens, ""),
				},
				FinishReason: models.FinishReasonStop,
			},
		},
		Usage: models.Usage{
			PromptTokens:     0,
			CompletionTokens: out.TokensGenerated,
			TotalTokens:      out.TokensGenerated,
		},
	}

	a.recordUsage(&usage.Record{
		RequestID:        resp.ID,
		APIKeyID:         req.APIKeyID,
		Model:            req.Model,
		Tier:             decision.Tier,
		Node:             target.BaseURL(),
		CompletionTokens: out.TokensGenerated,
		LatencyMs:        latency.Milliseconds(),
	})

	return resp, nil
}

func workerError(err error) *Error {
	if errors.Is(err, node.ErrProtocol) {
		return newError(ErrorTypeWorkerProtocol, "worker returned an invalid response", err)
	}
	return newError(ErrorTypeWorkerUnreachable, "worker request failed", err)
}

// recordUsage writes the record in the background; failures are logged.
// After Close the write happens inline so nothing is added to pending.
func (a *Agent) recordUsage(rec *usage.Record) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.writeUsage(rec)
		return
	}
	a.pending.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.pending.Done()
		a.writeUsage(rec)
	}()
}

func (a *Agent) writeUsage(rec *usage.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), usageWriteTimeout)
	defer cancel()
	if err := a.usage.Record(ctx, rec); err != nil {
		a.logger.Warn("failed to record usage",
			zap.String("request_id", rec.RequestID),
			zap.Error(err))
	}
}

// NodeStatus is the result of probing one node.
type NodeStatus struct {
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// CheckNodes probes every node concurrently. Failing probes are logged and
// reported in the result; they never turn into an error.
func (a *Agent) CheckNodes(ctx context.Context) ([]NodeStatus, error) {
	clients := a.pool.All()
	statuses := make([]NodeStatus, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		g.Go(func() error {
			statuses[i] = NodeStatus{URL: c.BaseURL(), Healthy: true}
			if err := c.HealthCheck(gctx); err != nil {
				statuses[i].Healthy = false
				statuses[i].Error = err.Error()
				a.logger.Warn("node health check failed",
					zap.String("node", c.BaseURL()),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return statuses, nil
}

// Close waits for background usage writes to finish. Requests still in
// flight may complete afterwards; their usage is written synchronously.
// Close is safe to call more than once.
func (a *Agent) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.pending.Wait()
}
