package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string
	EventsAddr string

	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeoutSec int
	LLMRetryMax   int

	RedisURL            string
	AnalysisCacheTTLSec int

	DefaultDifficulty int
	AiMoveDelayMillis int
	HistoryWindow     int
	ChatLogLimit      int
	FallbackPolicy    string

	ModerationKeywordsFile string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:          ":8080",
		EventsAddr:          ":8081",
		LLMModel:            "gpt-4o-mini",
		LLMTimeoutSec:       20,
		LLMRetryMax:         2,
		AnalysisCacheTTLSec: 21600,
		DefaultDifficulty:   1200,
		AiMoveDelayMillis:   400,
		HistoryWindow:       20,
		ChatLogLimit:        200,
		FallbackPolicy:      "random",
	}

	cfg.LLMBaseURL = strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	cfg.LLMAPIKey = strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("LLM_MODEL")); v != "" {
		cfg.LLMModel = v
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLMTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LLM_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LLMRetryMax = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_ADDR")); v != "" {
		cfg.EventsAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("ANALYSIS_CACHE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AnalysisCacheTTLSec = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DefaultDifficulty = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AI_MOVE_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.AiMoveDelayMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryWindow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_LOG_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChatLogLimit = n
		}
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("FALLBACK_POLICY"))); v != "" {
		cfg.FallbackPolicy = v
	}

	cfg.ModerationKeywordsFile = strings.TrimSpace(os.Getenv("MODERATION_KEYWORDS_FILE"))

	if cfg.LLMBaseURL == "" {
		return nil, errors.New("LLM_BASE_URL is required")
	}
	if cfg.LLMAPIKey == "" {
		return nil, errors.New("LLM_API_KEY is required")
	}
	if cfg.FallbackPolicy != "random" && cfg.FallbackPolicy != "first" {
		return nil, errors.New("FALLBACK_POLICY must be 'random' or 'first'")
	}

	return cfg, nil
}
