package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/llmchess-duel/internal/config"
	"github.com/park285/llmchess-duel/internal/eventfeed"
	"github.com/park285/llmchess-duel/internal/httpapi"
	"github.com/park285/llmchess-duel/internal/llm"
	"github.com/park285/llmchess-duel/internal/llmcache"
	"github.com/park285/llmchess-duel/internal/moderation"
	"github.com/park285/llmchess-duel/internal/obslog"
	"github.com/park285/llmchess-duel/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey,
		llm.WithTimeout(time.Duration(cfg.LLMTimeoutSec)*time.Second),
		llm.WithRetry(cfg.LLMRetryMax),
	)

	var cache *llmcache.Cache
	if cfg.RedisURL != "" {
		cache, err = llmcache.New(cfg.RedisURL, time.Duration(cfg.AnalysisCacheTTLSec)*time.Second)
		if err != nil {
			log.Fatalf("cache init error: %v", err)
		}
		defer func() { _ = cache.Close() }()
		logger.Info("analysis cache enabled")
	}

	providers, err := llm.NewProviders(client, cfg.LLMModel, cache)
	if err != nil {
		log.Fatalf("provider init error: %v", err)
	}

	classifier, err := moderation.LoadClassifier(cfg.ModerationKeywordsFile)
	if err != nil {
		log.Fatalf("moderation init error: %v", err)
	}

	feed := eventfeed.New()
	defer feed.Close()

	registry := session.NewRegistry(func(id string) (*session.Session, error) {
		return session.New(id, session.Options{
			Mover:         providers,
			Analyst:       providers,
			Chatter:       providers,
			Classifier:    classifier,
			Picker:        session.PickerFor(cfg.FallbackPolicy),
			Events:        feed,
			Logger:        logger.Named("session"),
			Difficulty:    cfg.DefaultDifficulty,
			AiMoveDelay:   time.Duration(cfg.AiMoveDelayMillis) * time.Millisecond,
			HistoryWindow: cfg.HistoryWindow,
			ChatLogLimit:  cfg.ChatLogLimit,
		})
	})

	eventsMux := http.NewServeMux()
	eventsMux.Handle("/events", feed)
	eventsSrv := &http.Server{
		Addr:         cfg.EventsAddr,
		Handler:      eventsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections stay open
	}
	go func() {
		logger.Info("event feed listening", zap.String("addr", cfg.EventsAddr))
		if err := eventsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("event feed server failed", zap.Error(err))
		}
	}()

	app := httpapi.NewServer(registry).App()
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.ListenAddr))
		if err := app.Listen(cfg.ListenAddr); err != nil {
			logger.Fatal("api server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	_ = eventsSrv.Shutdown(shutdownCtx)
}
