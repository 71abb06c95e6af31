package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// BlockAlertService emails operators when the guardrail blocks a
// request. Alerts are throttled so a burst of blocks produces one email
// per window; suppressed blocks are counted and reported in the next
// alert. Satisfies the gatekeeper's alerter hook.
type BlockAlertService struct {
	sender      EmailSender
	to          string
	minInterval time.Duration
	logger      *logging.Logger

	mu         sync.Mutex
	lastSent   time.Time
	suppressed int
}

func NewBlockAlertService(sender EmailSender, to string, minInterval time.Duration, logger *logging.Logger) *BlockAlertService {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if minInterval <= 0 {
		minInterval = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BlockAlertService{
		sender:      sender,
		to:          to,
		minInterval: minInterval,
		logger:      logger,
	}
}

// AlertBlock sends (or suppresses) an alert for one blocked request.
// The email body contains category names, the content hash, and the
// suppressed-block count. Nothing else.
func (s *BlockAlertService) AlertBlock(ctx context.Context, categories []string, contentHash string) {
	s.mu.Lock()
	if time.Since(s.lastSent) < s.minInterval {
		s.suppressed++
		s.mu.Unlock()
		return
	}
	suppressed := s.suppressed
	s.suppressed = 0
	s.lastSent = time.Now()
	s.mu.Unlock()

	body := fmt.Sprintf(
		"A dictation request was blocked before reaching the model.\n\n"+
			"Categories: %s\nReference: %s\n",
		strings.Join(categories, ", "), contentHash)
	if suppressed > 0 {
		body += fmt.Sprintf("\n%d additional blocks were suppressed since the last alert.\n", suppressed)
	}

	msg := EmailMessage{
		To:      s.to,
		Subject: "Scribe guardrail blocked a request",
		Body:    body,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("block alert send failed", "error", err, "content_hash", contentHash)
	}
}
