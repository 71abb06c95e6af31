package phi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

var tracer = otel.Tracer("kaiscribe.internal.phi")

// BlockedCode is the stable machine-readable code carried by every
// BlockedError, for clients and audit rows.
const BlockedCode = "PHI_BLOCKED"

// BlockedError is returned when the detector still finds identifier-like
// content after scrubbing. It carries the tripped categories and a
// one-way content hash; it never carries any of the text itself.
type BlockedError struct {
	Categories  []Category
	ContentHash string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("phi: %s: identifiers detected (%s), please remove them and try again [ref %s]",
		BlockedCode, strings.Join(e.CategoryNames(), ", "), e.ContentHash)
}

// CategoryNames returns the tripped categories as strings, in detector
// order.
func (e *BlockedError) CategoryNames() []string {
	out := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		out = append(out, string(c))
	}
	return out
}

// BlockRecorder persists a block event for compliance review. It only
// ever receives categories and the content hash.
type BlockRecorder interface {
	RecordBlock(ctx context.Context, categories []string, contentHash string) error
}

// BlockAlerter notifies operators that a block happened. Same rule:
// categories and hash only.
type BlockAlerter interface {
	AlertBlock(ctx context.Context, categories []string, contentHash string)
}

// BlockCache remembers recent block hashes so repeat submissions can be
// correlated without retaining any text.
type BlockCache interface {
	RememberBlock(ctx context.Context, contentHash string, categories []string) error
}

var (
	authorizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phi_authorize_total",
		Help: "Gatekeeper decisions by outcome.",
	}, []string{"outcome"})
	blockedCategoryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phi_blocked_category_total",
		Help: "Tripped detector categories across blocked requests.",
	}, []string{"category"})
	scrubSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "phi_scrub_duration_seconds",
		Help:    "Wall time of the scrub+detect pass.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(authorizeTotal, blockedCategoryTotal, scrubSeconds)
}

// RegisterMetrics registers the guardrail metrics on a custom registry,
// for tests or multi-registry setups.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(authorizeTotal, blockedCategoryTotal, scrubSeconds)
}

// Gatekeeper is the single choke point between raw dictation and any
// outbound model call. Authorize either returns scrubbed text that the
// detector signed off on, or a BlockedError, never the raw text.
type Gatekeeper struct {
	logger   *logging.Logger
	recorder BlockRecorder
	alerter  BlockAlerter
	cache    BlockCache
}

// GatekeeperOption configures optional collaborators.
type GatekeeperOption func(*Gatekeeper)

func WithLogger(l *logging.Logger) GatekeeperOption {
	return func(g *Gatekeeper) { g.logger = l }
}

func WithBlockRecorder(r BlockRecorder) GatekeeperOption {
	return func(g *Gatekeeper) { g.recorder = r }
}

func WithBlockAlerter(a BlockAlerter) GatekeeperOption {
	return func(g *Gatekeeper) { g.alerter = a }
}

func WithBlockCache(c BlockCache) GatekeeperOption {
	return func(g *Gatekeeper) { g.cache = c }
}

func NewGatekeeper(opts ...GatekeeperOption) *Gatekeeper {
	g := &Gatekeeper{logger: logging.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize scrubs raw text and verifies the result with the detector.
// On success it returns the scrubbed text. If anything identifier-like
// survives, it returns a BlockedError and the text goes nowhere. Text
// that scrubs down to empty is authorized as-is; callers that need a
// non-empty payload enforce that themselves.
func (g *Gatekeeper) Authorize(ctx context.Context, raw string) (string, error) {
	ctx, span := tracer.Start(ctx, "phi.Authorize")
	defer span.End()

	start := time.Now()
	scrubbed := Scrub(raw)
	findings := Detect(scrubbed)
	scrubSeconds.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("phi.input_bytes", len(raw)),
		attribute.Int("phi.finding_count", len(findings)),
	)

	if len(findings) == 0 {
		authorizeTotal.WithLabelValues("allowed").Inc()
		return scrubbed, nil
	}

	hash := ContentHash(scrubbed)
	categories := make([]Category, 0, len(findings))
	for _, f := range findings {
		categories = append(categories, f.Category)
		blockedCategoryTotal.WithLabelValues(string(f.Category)).Inc()
	}
	authorizeTotal.WithLabelValues("blocked").Inc()

	names := FindingCategories(findings)
	span.SetAttributes(attribute.StringSlice("phi.blocked_categories", names))
	span.SetStatus(codes.Error, "phi blocked")

	g.logger.Warn("phi block",
		"categories", names,
		"content_hash", hash,
		"input_bytes", len(raw),
	)

	if g.recorder != nil {
		if err := g.recorder.RecordBlock(ctx, names, hash); err != nil {
			g.logger.Error("phi block audit write failed", "error", err, "content_hash", hash)
		}
	}
	if g.cache != nil {
		if err := g.cache.RememberBlock(ctx, hash, names); err != nil {
			g.logger.Error("phi block cache write failed", "error", err, "content_hash", hash)
		}
	}
	if g.alerter != nil {
		g.alerter.AlertBlock(ctx, names, hash)
	}

	return "", &BlockedError{Categories: categories, ContentHash: hash}
}
