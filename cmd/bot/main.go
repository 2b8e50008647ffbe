package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/xaenox/secondbrain/internal/assistant"
	"github.com/xaenox/secondbrain/internal/bot"
	"github.com/xaenox/secondbrain/internal/classifier"
	"github.com/xaenox/secondbrain/internal/fetcher"
	"github.com/xaenox/secondbrain/internal/ingest"
	"github.com/xaenox/secondbrain/internal/llm"
	"github.com/xaenox/secondbrain/internal/storage"
	"github.com/xaenox/secondbrain/internal/twitter"
	"github.com/xaenox/secondbrain/pkg/config"
	"go.uber.org/zap"
)

const configPath = "config.yaml"

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err), zap.String("path", configPath))
	}

	// Initialize logger
	logger := newLogger(cfg.Log.Development)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}
		store, err = storage.NewPostgresStorage(ctx, dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// AI backend; nil means heuristic-only
	var client llm.Client
	if cfg.AI.Enabled() {
		client, err = llm.New(ctx, llm.Config{
			Provider:    cfg.AI.Provider,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			BaseURL:     cfg.AI.BaseURL,
			MaxTokens:   cfg.AI.MaxTokens,
			Temperature: cfg.AI.Temperature,

			EmbeddingModel:      cfg.AI.EmbeddingModel,
			EmbeddingDimensions: cfg.AI.EmbeddingDimensions,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize AI backend", zap.Error(err))
		}
	} else {
		logger.Info("AI analysis disabled, using heuristic analyzer",
			zap.Bool("offline_mode", cfg.AI.OfflineMode))
	}

	// Content acquisition
	page := fetcher.NewPageFetcher(logger,
		fetcher.WithTimeout(cfg.Fetch.Timeout),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
	)
	tweets := twitter.NewExtractor(twitter.Config{
		MirrorAHost:     cfg.Twitter.MirrorAHost,
		MirrorBHost:     cfg.Twitter.MirrorBHost,
		ScrapeUserAgent: cfg.Twitter.ScrapeUserAgent,
		Timeout:         cfg.Fetch.Timeout,
		Policy:          twitter.Policy{MinTextLength: cfg.Twitter.MinTextLength},
	}, logger)

	var extractors []fetcher.DispatcherOption
	if cfg.Instagram.Enabled {
		extractors = append(extractors, fetcher.WithInstagram(fetcher.NewInstagramFetcher(page, fetcher.InstagramConfig{
			Bridges:       cfg.Instagram.Bridges,
			BridgeTimeout: cfg.Instagram.BridgeTimeout,
		}, logger)))
	}
	if cfg.YouTube.Enabled {
		extractors = append(extractors, fetcher.WithYouTube(fetcher.NewYouTubeFetcher(page, logger)))
	}
	dispatcher := fetcher.NewDispatcher(page, tweets, logger, extractors...)

	engine := classifier.NewEngine(client, classifier.Config{
		OfflineMode:     cfg.AI.OfflineMode,
		MaxContentChars: cfg.Classifier.MaxContentChars,
	}, logger)
	chat := assistant.NewAssistant(client, cfg.Assistant.MaxSnippetChars, logger)

	// Semantic search shares the AI backend
	var serviceOpts []ingest.ServiceOption
	if client != nil {
		serviceOpts = append(serviceOpts, ingest.WithEmbedder(client))
	}
	service := ingest.NewService(dispatcher, engine, chat, store, logger, serviceOpts...)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, service, store, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
	logger.Info("Shutting down")
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
