package api

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/lockkeys/internal/events"
	"github.com/smazurov/lockkeys/internal/keyboard"
)

// streamClient is the listener owner of one event stream connection. It forwards a
// key status only when it differs from the last one this client was sent.
type streamClient struct {
	ch   chan any
	mu   sync.Mutex
	last map[string]keyboard.State
}

func newStreamClient() *streamClient {
	return &streamClient{
		ch:   make(chan any, 32),
		last: make(map[string]keyboard.State),
	}
}

// offer forwards status unless this client already saw that state. It reports
// whether the event was queued.
func (c *streamClient) offer(status keyboard.Status) bool {
	c.mu.Lock()
	prev, seen := c.last[status.Name]
	if seen && prev == status.State {
		c.mu.Unlock()
		return false
	}
	c.last[status.Name] = status.State
	c.mu.Unlock()

	select {
	case c.ch <- events.KeyStatusChangedEvent{
		Key:       status.Name,
		ID:        status.ID.String(),
		Enabled:   status.On(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}:
		return true
	default:
		// Slow client: forget the state so the next reload retries.
		c.mu.Lock()
		delete(c.last, status.Name)
		c.mu.Unlock()
		return false
	}
}

func (c *streamClient) onStatus(status keyboard.Status) {
	c.offer(status)
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Key Event Stream",
		Description: "Key states as they change, results of set requests and keymap resets. " +
			"Every controlled key is sent once on connect.",
		Tags:     []string{"events"},
		Security: withAuth(),
		Errors:   []int{401},
	}, map[string]any{
		"key-status":        events.KeyStatusChangedEvent{},
		"key-state-changed": events.KeyStateChangedEvent{},
		"keymap-reset":      events.KeymapResetEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		client := newStreamClient()

		reloader := s.keys.Reloader()
		var subs []*keyboard.Subscription
		for _, key := range s.keys.Keys() {
			sub, err := keyboard.AddListener(reloader, key, client, (*streamClient).onStatus)
			if err != nil {
				s.logger.Warn("Event stream without live key status", "key", key, "error", err)
				continue
			}
			subs = append(subs, sub)
		}
		defer func() {
			for _, sub := range subs {
				sub.Delete()
			}
		}()

		var unsubscribe []func()
		if s.eventBus != nil {
			unsubscribe = append(unsubscribe,
				events.SubscribeToChannel[events.KeyStateChangedEvent](s.eventBus, client.ch),
				events.SubscribeToChannel[events.KeymapResetEvent](s.eventBus, client.ch),
			)
		}
		defer func() {
			for _, unsub := range unsubscribe {
				unsub()
			}
		}()

		for _, status := range s.keys.Snapshot() {
			client.offer(status)
		}

		for {
			select {
			case <-ctx.Done():
				runtime.KeepAlive(client)
				return
			case ev := <-client.ch:
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}
