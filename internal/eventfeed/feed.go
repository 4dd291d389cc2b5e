// Package eventfeed broadcasts session events to websocket spectators.
// The feed is one-directional: clients connect, receive JSON events and
// are dropped when they fall too far behind.
package eventfeed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/llmchess-duel/internal/obslog"
	"github.com/park285/llmchess-duel/internal/session"
)

const subscriberBuffer = 64

// Feed fans out session events to connected websocket clients. It
// implements session.EventSink; Publish never blocks on a slow client.
type Feed struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool

	logger *zap.Logger
}

type subscriber struct {
	events chan session.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

func New() *Feed {
	return &Feed{
		subs:   make(map[*subscriber]struct{}),
		logger: obslog.L().Named("eventfeed"),
	}
}

var _ session.EventSink = (*Feed)(nil)

// Publish enqueues the event for every subscriber, dropping it for any
// subscriber whose buffer is full.
func (f *Feed) Publish(ev session.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for sub := range f.subs {
		select {
		case sub.events <- ev:
		default:
			f.logger.Warn("subscriber lagging, dropping event",
				zap.String("type", ev.Type),
				zap.String("session_id", ev.SessionID))
		}
	}
}

// Close disconnects all subscribers and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.close()
	}
	f.subs = make(map[*subscriber]struct{})
}

// SubscriberCount reports the number of connected clients.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) subscribe() (*subscriber, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	sub := &subscriber{
		events: make(chan session.Event, subscriberBuffer),
		done:   make(chan struct{}),
	}
	f.subs[sub] = struct{}{}
	return sub, true
}

func (f *Feed) unsubscribe(sub *subscriber) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
	sub.close()
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the feed closes.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		f.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}

	sub, ok := f.subscribe()
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "feed closed")
		return
	}
	defer f.unsubscribe(sub)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "client gone")
			return
		case <-sub.done:
			_ = conn.Close(websocket.StatusGoingAway, "feed closed")
			return
		case ev := <-sub.events:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "write failure")
				return
			}
		}
	}
}
