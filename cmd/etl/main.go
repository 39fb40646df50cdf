package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/outage-notice-etl/internal/adapter/gemini"
	"github.com/couchcryptid/outage-notice-etl/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/outage-notice-etl/internal/adapter/kafka"
	"github.com/couchcryptid/outage-notice-etl/internal/adapter/postgres"
	"github.com/couchcryptid/outage-notice-etl/internal/adapter/psgc"
	"github.com/couchcryptid/outage-notice-etl/internal/adapter/site"
	"github.com/couchcryptid/outage-notice-etl/internal/config"
	"github.com/couchcryptid/outage-notice-etl/internal/observability"
	"github.com/couchcryptid/outage-notice-etl/internal/ocr"
	"github.com/couchcryptid/outage-notice-etl/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema migration failed", "error", err)
		os.Exit(1)
	}
	store := postgres.NewStore(db, logger, metrics)

	psgcClient := psgc.NewClient(cfg.PSGCBaseURL, cfg.FetchTimeout, logger)
	loader := psgc.NewLoader(psgcClient, cfg.ProvinceCode, cfg.ReferenceCachePath, logger, metrics)

	discoverer, err := site.NewDiscoverer(cfg.SiteBaseURL, cfg.CategoryURL, cfg.FetchTimeout, logger, metrics)
	if err != nil {
		logger.Error("invalid site configuration", "error", err)
		os.Exit(1)
	}

	recognizer := ocr.NewRecognizer(cfg.TesseractPath, cfg.TesseractLang, logger, metrics)

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Error("gemini client init failed", "error", err)
		os.Exit(1)
	}
	extractor := gemini.NewExtractor(geminiClient, cfg.GeminiModels, cfg.ExtractRetries, cfg.RetryBackoffBase, nil, logger, metrics)

	p := pipeline.New(loader, discoverer, ocr.Preprocess, recognizer, extractor,
		logger, metrics, cfg.NoticeLimit, cfg.CutoffDate)

	// Kafka publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = kafkaPub
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	svc := pipeline.NewService(p, store, publisher, logger, cfg.PageSize)
	srv := httpapi.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
