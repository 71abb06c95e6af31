package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/KLcoding01/K-AI-Scribe-sub000/cmd/mainconfig"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/compliance"
	appconfig "github.com/KLcoding01/K-AI-Scribe-sub000/internal/config"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/conversion"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notes"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/observability/metrics"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting conversion worker", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsConfig)
	queue := conversion.NewSQSQueue(sqsClient, cfg.ConversionQueueURL)
	dynamoClient := dynamodb.NewFromConfig(awsConfig)
	jobStore := conversion.NewJobStore(dynamoClient, cfg.ConversionJobsTable, logger)
	s3Client := s3.NewFromConfig(awsConfig)
	docStore := conversion.NewDocumentStore(s3Client, cfg.DocumentBucket, logger)

	client, model := mainconfig.BuildLLMClient(ctx, cfg, awsConfig, logger)
	caller := llm.NewCaller(client, model,
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithMaxTokens(int32(cfg.LLMMaxTokens)),
		llm.WithTemperature(float32(cfg.LLMTemperature)),
		llm.WithCallerLogger(logger),
	)
	converter := notes.NewTemplateConverter(caller, logger)

	opts := []conversion.WorkerOption{
		conversion.WithWorkerCount(cfg.WorkerCount),
		conversion.WithConversionMetrics(metrics.NewConversionMetrics(nil)),
	}
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, conversion.WithAuditRecorder(compliance.NewAuditService(db)))
	}

	worker := conversion.NewWorker(converter, queue, jobStore, docStore, logger, opts...)
	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversion worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversion worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversion worker shutdown timed out", "error", doneCtx.Err())
	}
}
