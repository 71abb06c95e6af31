package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notes"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/observability/metrics"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

// Converter rewrites a document into a target format. Satisfied by
// *notes.TemplateConverter.
type Converter interface {
	Convert(ctx context.Context, document, targetFormat string) (string, error)
}

// AuditRecorder persists terminal job events.
type AuditRecorder interface {
	RecordConversionCompleted(ctx context.Context, jobID, targetFormat, contentHash string) error
	RecordConversionFailed(ctx context.Context, jobID, targetFormat, failureKind string) error
}

const (
	defaultWorkerCount = 2
	defaultWaitSeconds = 2
	defaultBatchSize   = 5
	maxWaitSeconds     = 20
	maxBatchSize       = 10
)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	audit            AuditRecorder
	metrics          *metrics.ConversionMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxBatchSize {
			size = maxBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

func WithAuditRecorder(audit AuditRecorder) WorkerOption {
	return func(cfg *workerConfig) { cfg.audit = audit }
}

func WithConversionMetrics(m *metrics.ConversionMetrics) WorkerOption {
	return func(cfg *workerConfig) { cfg.metrics = m }
}

// Worker consumes conversion jobs from the queue and runs the converter.
type Worker struct {
	converter Converter
	queue     queueClient
	jobs      JobUpdater
	docs      DocumentStorage
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

func NewWorker(converter Converter, queue queueClient, jobs JobUpdater, docs DocumentStorage, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if converter == nil {
		panic("conversion: converter cannot be nil")
	}
	if queue == nil {
		panic("conversion: queue cannot be nil")
	}
	if jobs == nil {
		panic("conversion: job updater cannot be nil")
	}
	if docs == nil {
		panic("conversion: document storage cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		converter: converter,
		queue:     queue,
		jobs:      jobs,
		docs:      docs,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches the consumer goroutines. They exit when ctx is done.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all consumer goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversion worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversion worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive conversion jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	w.cfg.metrics.JobStarted()
	defer w.cfg.metrics.JobFinished()
	start := time.Now()

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("dropping undecodable conversion job", "error", err, "message_id", msg.ID)
		w.deleteMessage(ctx, msg)
		return
	}

	document, err := w.docs.Get(ctx, payload.InputKey)
	if err != nil {
		w.fail(ctx, payload, "storage", err)
		w.deleteMessage(ctx, msg)
		w.cfg.metrics.ObserveJob("failed", payload.TargetFormat, time.Since(start).Seconds())
		return
	}

	converted, err := w.converter.Convert(ctx, document, payload.TargetFormat)
	if err != nil {
		w.fail(ctx, payload, failureKind(err), err)
		w.deleteMessage(ctx, msg)
		w.cfg.metrics.ObserveJob("failed", payload.TargetFormat, time.Since(start).Seconds())
		return
	}

	outputKey, err := w.docs.PutOutput(ctx, payload.JobID, converted)
	if err != nil {
		w.fail(ctx, payload, "storage", err)
		w.deleteMessage(ctx, msg)
		w.cfg.metrics.ObserveJob("failed", payload.TargetFormat, time.Since(start).Seconds())
		return
	}

	if err := w.jobs.MarkCompleted(ctx, payload.JobID, outputKey); err != nil {
		w.logger.Error("failed to mark job completed", "error", err, "job_id", payload.JobID)
	}
	if w.cfg.audit != nil {
		hash := phi.ContentHash(document)
		if err := w.cfg.audit.RecordConversionCompleted(ctx, payload.JobID, payload.TargetFormat, hash); err != nil {
			w.logger.Error("conversion audit write failed", "error", err, "job_id", payload.JobID)
		}
	}

	w.deleteMessage(ctx, msg)
	w.cfg.metrics.ObserveJob("completed", payload.TargetFormat, time.Since(start).Seconds())
	w.logger.Info("conversion job completed",
		"job_id", payload.JobID,
		"target_format", payload.TargetFormat,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (w *Worker) fail(ctx context.Context, payload queuePayload, kind string, cause error) {
	w.logger.Error("conversion job failed",
		"job_id", payload.JobID,
		"target_format", payload.TargetFormat,
		"failure_kind", kind,
		"error", cause,
	)
	if err := w.jobs.MarkFailed(ctx, payload.JobID, kind); err != nil {
		w.logger.Error("failed to mark job failed", "error", err, "job_id", payload.JobID)
	}
	if w.cfg.audit != nil {
		if err := w.cfg.audit.RecordConversionFailed(ctx, payload.JobID, payload.TargetFormat, kind); err != nil {
			w.logger.Error("conversion audit write failed", "error", err, "job_id", payload.JobID)
		}
	}
}

// failureKind maps a conversion error onto a coarse classifier safe to
// persist on the job record.
func failureKind(err error) string {
	var timeoutErr *llm.TimeoutError
	var malformedErr *llm.MalformedResponseError
	switch {
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &malformedErr):
		return "malformed"
	case errors.Is(err, llm.ErrUnconfigured):
		return "unconfigured"
	case errors.Is(err, notes.ErrEmptyDocument):
		return "empty"
	default:
		return "internal"
	}
}

func (w *Worker) deleteMessage(ctx context.Context, msg queueMessage) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete conversion message", "error", err, "message_id", msg.ID)
	}
}
