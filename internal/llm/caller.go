package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

var tracer = otel.Tracer("kaiscribe.internal.llm")

var (
	completionSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_completion_duration_seconds",
		Help:    "Completion latency by model and outcome.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
	}, []string{"model", "outcome"})
	completionTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_completion_tokens_total",
		Help: "Token usage by model and direction.",
	}, []string{"model", "direction"})
)

func init() {
	prometheus.MustRegister(completionSeconds, completionTokens)
}

// RegisterMetrics registers the caller metrics on a custom registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(completionSeconds, completionTokens)
}

const (
	defaultTimeout     = 45 * time.Second
	defaultMaxTokens   = 2048
	defaultTemperature = 0.2
)

// Caller runs completions against a provider with a hard per-call
// deadline and maps failures onto the package error kinds. The caller
// is the only way the rest of the service talks to a model.
type Caller struct {
	client      Client
	model       string
	timeout     time.Duration
	maxTokens   int32
	temperature float32
	logger      *logging.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

func WithTimeout(d time.Duration) CallerOption {
	return func(c *Caller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxTokens(n int32) CallerOption {
	return func(c *Caller) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func WithTemperature(t float32) CallerOption {
	return func(c *Caller) { c.temperature = t }
}

func WithCallerLogger(l *logging.Logger) CallerOption {
	return func(c *Caller) { c.logger = l }
}

// NewCaller builds a Caller. A nil client or empty model is allowed and
// yields ErrUnconfigured at call time, so wiring can be optional per
// environment.
func NewCaller(client Client, model string, opts ...CallerOption) *Caller {
	c := &Caller{
		client:      client,
		model:       model,
		timeout:     defaultTimeout,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the caller has a provider to talk to.
func (c *Caller) Configured() bool {
	return c.client != nil && strings.TrimSpace(c.model) != ""
}

// Text runs one completion and returns the model's text output. The
// deadline is enforced here, not in the providers; when it fires the
// caller gets a TimeoutError and the request slot is released.
func (c *Caller) Text(ctx context.Context, system []string, messages []ChatMessage) (string, error) {
	if !c.Configured() {
		return "", ErrUnconfigured
	}

	ctx, span := tracer.Start(ctx, "llm.Text")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Complete(callCtx, Request{
		Model:       c.model,
		System:      system,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
			err = &TimeoutError{Timeout: c.timeout, Err: err}
		}
		completionSeconds.WithLabelValues(c.model, outcome).Observe(elapsed.Seconds())
		c.logger.Error("llm completion failed",
			"model", c.model,
			"outcome", outcome,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return "", err
	}

	completionSeconds.WithLabelValues(c.model, "ok").Observe(elapsed.Seconds())
	completionTokens.WithLabelValues(c.model, "input").Add(float64(resp.Usage.InputTokens))
	completionTokens.WithLabelValues(c.model, "output").Add(float64(resp.Usage.OutputTokens))
	span.SetAttributes(
		attribute.Int("llm.input_tokens", int(resp.Usage.InputTokens)),
		attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
	)

	if strings.TrimSpace(resp.Text) == "" {
		return "", &MalformedResponseError{
			Sample: malformedSample(resp.Text),
			Err:    errors.New("empty completion"),
		}
	}
	return resp.Text, nil
}

// JSON runs one completion and unmarshals the model's output into out.
// Code fences around the payload are tolerated; anything else that does
// not parse becomes a MalformedResponseError carrying a bounded sample.
func (c *Caller) JSON(ctx context.Context, system []string, messages []ChatMessage, out any) error {
	text, err := c.Text(ctx, system, messages)
	if err != nil {
		return err
	}

	payload := extractJSONPayload(text)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return &MalformedResponseError{
			Sample: malformedSample(text),
			Err:    fmt.Errorf("decode completion: %w", err),
		}
	}
	return nil
}

// extractJSONPayload strips markdown code fences and leading prose so a
// fenced or chatty JSON answer still parses.
func extractJSONPayload(text string) string {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return strings.TrimSpace(trimmed)
	}

	// Fall back to the outermost braces when the model wrapped the
	// object in prose.
	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}
	end := strings.LastIndexAny(trimmed, "}]")
	if end < start {
		return trimmed
	}
	return trimmed[start : end+1]
}
