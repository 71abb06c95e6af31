package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/KLcoding01/K-AI-Scribe-sub000/cmd/mainconfig"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/api/router"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/compliance"
	appconfig "github.com/KLcoding01/K-AI-Scribe-sub000/internal/config"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/conversion"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/http/handlers"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/llm"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notes"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/notify"
	"github.com/KLcoding01/K-AI-Scribe-sub000/internal/phi"
	"github.com/KLcoding01/K-AI-Scribe-sub000/pkg/logging"
)

func main() {
	// Load .env when present; absent outside local dev.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting k-ai-scribe API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	// Postgres audit trail (optional in local dev).
	var db *sql.DB
	var audit *compliance.AuditService
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		audit = compliance.NewAuditService(db)
	}

	// Redis block cache (optional).
	var redisClient *redis.Client
	var blockCache *compliance.BlockCache
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		blockCache = compliance.NewBlockCache(redisClient, nil)
	}

	alerts := buildAlertService(cfg, awsCfg, logger)

	gateOpts := []phi.GatekeeperOption{phi.WithLogger(logger)}
	if audit != nil {
		gateOpts = append(gateOpts, phi.WithBlockRecorder(audit))
	}
	if blockCache != nil {
		gateOpts = append(gateOpts, phi.WithBlockCache(blockCache))
	}
	if alerts != nil {
		gateOpts = append(gateOpts, phi.WithBlockAlerter(alerts))
	}
	gate := phi.NewGatekeeper(gateOpts...)

	client, model := mainconfig.BuildLLMClient(ctx, cfg, awsCfg, logger)
	caller := llm.NewCaller(client, model,
		llm.WithTimeout(cfg.LLMTimeout),
		llm.WithMaxTokens(int32(cfg.LLMMaxTokens)),
		llm.WithTemperature(float32(cfg.LLMTemperature)),
		llm.WithCallerLogger(logger),
	)
	if !caller.Configured() {
		logger.Warn("no LLM provider configured; generation endpoints will return 503")
	}

	svcOpts := []notes.ServiceOption{notes.WithServiceLogger(logger)}
	if audit != nil {
		svcOpts = append(svcOpts, notes.WithNoteRecorder(audit))
	}
	noteService := notes.NewService(gate, caller, svcOpts...)

	// Conversion pipeline wiring.
	var conversionsHandler *handlers.ConversionsHandler
	if cfg.DocumentBucket != "" {
		s3Client := s3.NewFromConfig(awsCfg)
		docStore := conversion.NewDocumentStore(s3Client, cfg.DocumentBucket, logger)
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		jobStore := conversion.NewJobStore(dynamoClient, cfg.ConversionJobsTable, logger)

		var publisher *conversion.Publisher
		if cfg.UseMemoryQueue {
			publisher = conversion.NewPublisher(conversion.NewMemoryQueue(64), jobStore, docStore, logger)
		} else {
			sqsClient := sqs.NewFromConfig(awsCfg)
			publisher = conversion.NewPublisher(conversion.NewSQSQueue(sqsClient, cfg.ConversionQueueURL), jobStore, docStore, logger)
		}
		conversionsHandler = handlers.NewConversionsHandler(publisher, jobStore, docStore, logger)
	} else {
		logger.Warn("DOCUMENT_BUCKET not set; conversion endpoints disabled")
	}

	var auditHandler *handlers.AuditHandler
	if audit != nil {
		auditHandler = handlers.NewAuditHandler(audit, logger)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		NotesHandler:       handlers.NewNotesHandler(noteService, logger),
		ConversionsHandler: conversionsHandler,
		AuditHandler:       auditHandler,
		HealthHandler:      handlers.NewHealthHandler(db, redisClient),
		MetricsHandler:     promhttp.Handler(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildAlertService picks the email provider for PHI block alerts. Returns
// nil when no recipient is configured.
func buildAlertService(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *notify.BlockAlertService {
	if cfg.AlertToEmail == "" {
		return nil
	}

	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.AlertFromEmail,
			FromName:  cfg.AlertFromName,
		}, logger); s != nil {
			sender = s
		}
	case "ses":
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.AlertFromEmail,
			FromName:  cfg.AlertFromName,
		}, logger); s != nil {
			sender = s
		}
	}
	if sender == nil {
		sender = notify.NewStubEmailSender(logger)
	}

	return notify.NewBlockAlertService(sender, cfg.AlertToEmail, cfg.AlertMinInterval, logger)
}
