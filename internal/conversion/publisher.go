package conversion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

var (
	// ErrEmptyDocument rejects a conversion request with no document.
	ErrEmptyDocument = errors.New("conversion: document is required")
	// ErrEmptyTargetFormat rejects a conversion request with no target.
	ErrEmptyTargetFormat = errors.New("conversion: target format is required")
)

// DocumentStorage is the document store surface the pipeline needs.
type DocumentStorage interface {
	PutInput(ctx context.Context, jobID, document string) (string, error)
	PutOutput(ctx context.Context, jobID, document string) (string, error)
	Get(ctx context.Context, key string) (string, error)
}

// Publisher accepts a conversion request, stores the source document,
// records a pending job, and enqueues the work item.
type Publisher struct {
	queue  queueClient
	jobs   JobRecorder
	docs   DocumentStorage
	logger *logging.Logger
}

func NewPublisher(queue queueClient, jobs JobRecorder, docs DocumentStorage, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversion: queue cannot be nil")
	}
	if jobs == nil {
		panic("conversion: job recorder cannot be nil")
	}
	if docs == nil {
		panic("conversion: document storage cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, jobs: jobs, docs: docs, logger: logger}
}

// Enqueue registers a conversion job and returns its ID. The document
// goes to the document store; only its key travels on the queue.
func (p *Publisher) Enqueue(ctx context.Context, document, targetFormat string) (string, error) {
	if strings.TrimSpace(document) == "" {
		return "", ErrEmptyDocument
	}
	if strings.TrimSpace(targetFormat) == "" {
		return "", ErrEmptyTargetFormat
	}

	jobID := uuid.NewString()

	inputKey, err := p.docs.PutInput(ctx, jobID, document)
	if err != nil {
		return "", fmt.Errorf("conversion: failed to store input: %w", err)
	}

	job := &JobRecord{JobID: jobID, TargetFormat: targetFormat, InputKey: inputKey}
	if err := p.jobs.PutPending(ctx, job); err != nil {
		return "", err
	}

	_, body, err := encodePayload(queuePayload{
		JobID:        jobID,
		InputKey:     inputKey,
		TargetFormat: targetFormat,
	})
	if err != nil {
		return "", err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return "", fmt.Errorf("conversion: failed to enqueue job: %w", err)
	}

	p.logger.Info("conversion job enqueued",
		"job_id", jobID,
		"target_format", targetFormat,
		"input_bytes", len(document),
	)
	return jobID, nil
}
