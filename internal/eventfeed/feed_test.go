package eventfeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/llmchess-duel/internal/session"
)

func dialFeed(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func waitForSubscribers(t *testing.T, feed *Feed, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if feed.SubscriberCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscriber count never reached %d (have %d)", n, feed.SubscriberCount())
}

func TestPublishReachesSubscriber(t *testing.T) {
	feed := New()
	defer feed.Close()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)
	waitForSubscribers(t, feed, 1)

	sent := session.Event{Type: session.EventMoveApplied, SessionID: "s1", Ply: 1, SAN: "e4"}
	feed.Publish(sent)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got session.Event
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != sent {
		t.Fatalf("got %+v, want %+v", got, sent)
	}
}

func TestPublishFansOut(t *testing.T) {
	feed := New()
	defer feed.Close()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	c1 := dialFeed(t, srv)
	c2 := dialFeed(t, srv)
	waitForSubscribers(t, feed, 2)

	feed.Publish(session.Event{Type: session.EventNewGame, SessionID: "s1"})

	for i, conn := range []*websocket.Conn{c1, c2} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var got session.Event
		err := wsjson.Read(ctx, conn, &got)
		cancel()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if got.Type != session.EventNewGame {
			t.Fatalf("client %d got %+v", i, got)
		}
	}
}

func TestPublishNeverBlocksWithoutSubscribers(t *testing.T) {
	feed := New()
	defer feed.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			feed.Publish(session.Event{Type: session.EventChat, SessionID: "s1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Publish blocked")
	}
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	feed := New()
	srv := httptest.NewServer(feed)
	defer srv.Close()

	conn := dialFeed(t, srv)
	waitForSubscribers(t, feed, 1)

	feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got session.Event
	if err := wsjson.Read(ctx, conn, &got); err == nil {
		t.Fatalf("expected read error after Close, got %+v", got)
	}
	if feed.SubscriberCount() != 0 {
		t.Fatalf("subscribers remain after Close")
	}

	// Publishing after Close is a no-op.
	feed.Publish(session.Event{Type: session.EventChat})
}
