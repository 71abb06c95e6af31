package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// ErrEmptyDocument means the conversion input had no content left after
// redaction.
var ErrEmptyDocument = errors.New("notes: document is empty after redaction")

// TemplateConverter rewrites an existing note into another documentation
// format. It runs on the relaxed LightRedact path rather than the
// gatekeeper: conversions operate on already-written notes where whole
// labeled lines can be dropped without losing clinical content, and the
// product accepts the lower assurance in exchange for fidelity.
type TemplateConverter struct {
	gen    Generator
	logger *logging.Logger
}

func NewTemplateConverter(gen Generator, logger *logging.Logger) *TemplateConverter {
	if gen == nil {
		panic("notes: generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TemplateConverter{gen: gen, logger: logger}
}

// Convert redacts the document and rewrites it into targetFormat.
func (c *TemplateConverter) Convert(ctx context.Context, document, targetFormat string) (string, error) {
	redacted := phi.LightRedact(document)
	if strings.TrimSpace(redacted) == "" {
		return "", ErrEmptyDocument
	}

	start := time.Now()
	out, err := c.gen.Text(ctx,
		[]string{conversionPrompt(targetFormat)},
		[]llm.ChatMessage{{Role: llm.ChatRoleUser, Content: redacted}},
	)
	if err != nil {
		return "", err
	}

	c.logger.Info("template conversion completed",
		"target_format", targetFormat,
		"content_hash", phi.ContentHash(redacted),
		"input_bytes", len(redacted),
		"output_bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}
