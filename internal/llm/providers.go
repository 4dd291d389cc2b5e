package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/llmchess-duel/internal/llmcache"
	"github.com/park285/llmchess-duel/internal/obslog"
	"github.com/park285/llmchess-duel/internal/session"
)

// Fixed fallback lines used when the model cannot be reached or returns
// nothing usable. Moves have no fallback text; an empty token tells the
// orchestrator to pick a legal move itself.
const (
	AnalysisFallback = "The position is unclear. Keep developing your pieces."
	ChatFallback     = "Good game so far. Your move."
)

// Providers backs all three model-facing session interfaces with one
// chat-completion client. Analysis responses are optionally cached per
// position and difficulty.
type Providers struct {
	client *Client
	model  string
	cache  *llmcache.Cache // nil disables caching
	logger *zap.Logger
}

var (
	_ session.MoveProvider     = (*Providers)(nil)
	_ session.AnalysisProvider = (*Providers)(nil)
	_ session.ChatProvider     = (*Providers)(nil)
)

func NewProviders(client *Client, model string, cache *llmcache.Cache) (*Providers, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &Providers{
		client: client,
		model:  model,
		cache:  cache,
		logger: obslog.L().Named("llm"),
	}, nil
}

// SuggestMove returns a single move token for black, or "" when the model
// fails or produces nothing token-shaped.
func (p *Providers) SuggestMove(ctx context.Context, q session.MoveQuery) string {
	content, err := p.client.Complete(ctx, CompletionRequest{
		Model:       p.model,
		Messages:    buildMovePrompt(q.FEN, q.History, q.Difficulty),
		Temperature: 0.3,
		MaxTokens:   16,
	})
	if err != nil {
		p.logger.Warn("move completion failed", zap.Error(err))
		return ""
	}
	token := extractMoveToken(content)
	if token == "" {
		p.logger.Warn("no move token in completion", zap.String("content", truncate(content, 128)))
	}
	return token
}

// Commentary returns a short positional comment, serving repeats from the
// cache when one is configured.
func (p *Providers) Commentary(ctx context.Context, q session.AnalysisQuery) string {
	if text, ok := p.cache.Get(ctx, q.FEN, q.Difficulty); ok {
		return text
	}
	content, err := p.client.Complete(ctx, CompletionRequest{
		Model:       p.model,
		Messages:    buildAnalysisPrompt(q.FEN, q.History, q.Difficulty),
		Temperature: 0.7,
		MaxTokens:   160,
	})
	if err != nil {
		p.logger.Warn("analysis completion failed", zap.Error(err))
		return AnalysisFallback
	}
	p.cache.Set(ctx, q.FEN, q.Difficulty, content)
	return content
}

// Reply answers player chat, switching to a trash-talking register when the
// incoming message was classified hostile.
func (p *Providers) Reply(ctx context.Context, q session.ChatQuery) string {
	content, err := p.client.Complete(ctx, CompletionRequest{
		Model:       p.model,
		Messages:    buildChatPrompt(q.Text, q.FEN, q.History, q.Difficulty, q.Hostile),
		Temperature: 0.9,
		MaxTokens:   200,
	})
	if err != nil {
		p.logger.Warn("chat completion failed", zap.Error(err), zap.Bool("hostile", q.Hostile))
		return ChatFallback
	}
	return content
}
