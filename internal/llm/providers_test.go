package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/llmchess-duel/internal/llmcache"
	"github.com/park285/llmchess-duel/internal/session"
)

func TestExtractMoveToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Nf6", "Nf6"},
		{"  e7e5  ", "e7e5"},
		{"1... Nf6", "Nf6"},
		{"1.e4", "e4"},
		{"The best move is Qh4#", "The"}, // first token wins; rules layer rejects it
		{"`Nf6`", "Nf6"},
		{"Nf6!?", "Nf6"},
		{"Qh4#", "Qh4#"},
		{"\"e5\"", "e5"},
		{"```\nNc6\n```", "Nc6"},
		{"", ""},
		{"12.", ""},
		{"   \n\n  ", ""},
	}
	for _, tc := range cases {
		if got := extractMoveToken(tc.in); got != tc.want {
			t.Errorf("extractMoveToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func completionServer(t *testing.T, handler func(req CompletionRequest) (string, int)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content, status := handler(req)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProviders(t *testing.T, srv *httptest.Server, cache *llmcache.Cache) *Providers {
	t.Helper()
	client := NewClient(srv.URL, "test-key", WithTimeout(2*time.Second), WithRetry(0))
	p, err := NewProviders(client, "test-model", cache)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	return p
}

func TestSuggestMoveExtractsToken(t *testing.T) {
	srv := completionServer(t, func(req CompletionRequest) (string, int) {
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		return "1... Nf6!", http.StatusOK
	})
	p := newTestProviders(t, srv, nil)

	token := p.SuggestMove(context.Background(), session.MoveQuery{FEN: "fen", Difficulty: 1200})
	if token != "Nf6" {
		t.Fatalf("SuggestMove = %q, want Nf6", token)
	}
}

func TestSuggestMoveEmptyOnServerError(t *testing.T) {
	srv := completionServer(t, func(CompletionRequest) (string, int) {
		return "", http.StatusInternalServerError
	})
	p := newTestProviders(t, srv, nil)

	if token := p.SuggestMove(context.Background(), session.MoveQuery{FEN: "fen"}); token != "" {
		t.Fatalf("SuggestMove = %q, want empty", token)
	}
}

func TestCommentaryFallbackOnFailure(t *testing.T) {
	srv := completionServer(t, func(CompletionRequest) (string, int) {
		return "", http.StatusBadGateway
	})
	p := newTestProviders(t, srv, nil)

	got := p.Commentary(context.Background(), session.AnalysisQuery{FEN: "fen", Difficulty: 1200})
	if got != AnalysisFallback {
		t.Fatalf("Commentary = %q, want fallback", got)
	}
}

func TestCommentaryUsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	cache, err := llmcache.New(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Minute)
	if err != nil {
		t.Fatalf("llmcache.New: %v", err)
	}
	defer cache.Close()

	var calls atomic.Int32
	srv := completionServer(t, func(CompletionRequest) (string, int) {
		calls.Add(1)
		return "a sharp middlegame", http.StatusOK
	})
	p := newTestProviders(t, srv, cache)

	q := session.AnalysisQuery{FEN: "some-fen", Difficulty: 1500}
	first := p.Commentary(context.Background(), q)
	second := p.Commentary(context.Background(), q)
	if first != "a sharp middlegame" || second != first {
		t.Fatalf("Commentary = %q / %q", first, second)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("backend called %d times, want 1", n)
	}
}

func TestReplyTonePerHostility(t *testing.T) {
	var lastSystem string
	srv := completionServer(t, func(req CompletionRequest) (string, int) {
		lastSystem = req.Messages[0].Content
		return "sure thing", http.StatusOK
	})
	p := newTestProviders(t, srv, nil)

	_ = p.Reply(context.Background(), session.ChatQuery{Text: "nice game", FEN: "fen"})
	friendly := lastSystem
	_ = p.Reply(context.Background(), session.ChatQuery{Text: "you stink", FEN: "fen", Hostile: true})
	if lastSystem == friendly {
		t.Fatalf("hostile chat should switch the system prompt")
	}
}

func TestReplyConditionedOnDifficulty(t *testing.T) {
	var lastSystem string
	srv := completionServer(t, func(req CompletionRequest) (string, int) {
		lastSystem = req.Messages[0].Content
		return "noted", http.StatusOK
	})
	p := newTestProviders(t, srv, nil)

	_ = p.Reply(context.Background(), session.ChatQuery{Text: "hi", FEN: "fen", Difficulty: 100})
	low := lastSystem
	_ = p.Reply(context.Background(), session.ChatQuery{Text: "hi", FEN: "fen", Difficulty: 4000})

	if lastSystem == low {
		t.Fatalf("chat prompt identical for difficulty 100 and 4000")
	}
	if !strings.Contains(low, "100") || !strings.Contains(lastSystem, "4000") {
		t.Fatalf("rating missing from chat prompts: %q / %q", low, lastSystem)
	}

	// The hostile register carries the rating too.
	_ = p.Reply(context.Background(), session.ChatQuery{Text: "hi", FEN: "fen", Difficulty: 2500, Hostile: true})
	if !strings.Contains(lastSystem, "2500") {
		t.Fatalf("rating missing from hostile chat prompt: %q", lastSystem)
	}
}

func TestReplyFallbackOnFailure(t *testing.T) {
	srv := completionServer(t, func(CompletionRequest) (string, int) {
		return "", http.StatusServiceUnavailable
	})
	p := newTestProviders(t, srv, nil)

	if got := p.Reply(context.Background(), session.ChatQuery{Text: "hello"}); got != ChatFallback {
		t.Fatalf("Reply = %q, want fallback", got)
	}
}

func TestClientRetriesOnRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := completionServer(t, func(CompletionRequest) (string, int) {
		if calls.Add(1) == 1 {
			return "", http.StatusTooManyRequests
		}
		return "e5", http.StatusOK
	})
	client := NewClient(srv.URL, "k", WithTimeout(2*time.Second), WithRetry(2))

	content, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "e5" || calls.Load() != 2 {
		t.Fatalf("content=%q calls=%d", content, calls.Load())
	}
}
