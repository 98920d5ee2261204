package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/havenchat/haven/internal/api"
	"github.com/havenchat/haven/internal/config"
	"github.com/havenchat/haven/internal/db"
	"github.com/havenchat/haven/internal/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet; zap's replacement for log.Fatal.
		zap.Must(zap.NewProduction()).Fatal("failed to load config", zap.Error(err))
	}

	logger := zap.Must(zap.NewProduction())
	if cfg.Debug {
		logger = zap.Must(zap.NewDevelopment())
	}
	defer logger.Sync()

	store, err := db.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("databaseUrl", cfg.DatabaseURL))
	}
	defer store.Close()

	llmService := llm.New(llm.Config{
		APIKey:       cfg.GroqAPIKey,
		BaseURL:      cfg.GroqBaseURL,
		Model:        cfg.GroqModel,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		SystemPrompt: cfg.SystemPrompt,
	}, logger)

	handler := api.NewHandler(store, llmService, logger)

	mux := handler.Routes()
	mux.Handle("/", http.FileServer(http.Dir("web")))

	root := api.Chain(mux, api.WithCORS, api.WithLogging(logger))

	logger.Info("starting server", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, root); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
