package status

import (
	"context"
	"sync"
	"time"

	"tickflow/models"
)

type exchangeState struct {
	connections int
	reconnects  int64
	messages    int64
	lastMessage time.Time
	pingLatency time.Duration
}

// Tracker aggregates per-exchange connection health. The feed layer reports
// into it; a reporting loop publishes periodic systemStatus events so clients
// can render which exchanges are live.
type Tracker struct {
	mu        sync.Mutex
	exchanges map[string]*exchangeState
}

// Publisher is the slice of the event bus the tracker needs.
type Publisher interface {
	Publish(kind models.Kind, data interface{})
}

func NewTracker() *Tracker {
	return &Tracker{exchanges: make(map[string]*exchangeState)}
}

func (t *Tracker) state(exchange string) *exchangeState {
	s, ok := t.exchanges[exchange]
	if !ok {
		s = &exchangeState{}
		t.exchanges[exchange] = s
	}
	return s
}

func (t *Tracker) ConnOpened(exchange string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(exchange).connections++
}

func (t *Tracker) ConnClosed(exchange string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(exchange)
	if s.connections > 0 {
		s.connections--
	}
}

func (t *Tracker) ReconnectScheduled(exchange string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(exchange).reconnects++
}

func (t *Tracker) MessageReceived(exchange string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(exchange)
	s.messages++
	s.lastMessage = time.Now()
}

// PongLatency records the round trip of an application-level ping.
func (t *Tracker) PongLatency(exchange string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(exchange).pingLatency = d
}

// Snapshot returns a copy safe to marshal and ship to clients.
func (t *Tracker) Snapshot() models.SystemStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := models.SystemStatus{
		Exchanges: make(map[string]models.ExchangeStatus, len(t.exchanges)),
		Timestamp: time.Now(),
	}
	for name, s := range t.exchanges {
		out.Exchanges[name] = models.ExchangeStatus{
			Connections:   s.connections,
			Reconnects:    s.reconnects,
			Messages:      s.messages,
			LastMessage:   s.lastMessage,
			PingLatencyMs: s.pingLatency.Milliseconds(),
		}
	}
	return out
}

// StartReporting publishes a systemStatus event on every interval tick.
func (t *Tracker) StartReporting(ctx context.Context, pub Publisher, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pub.Publish(models.KindSystemStatus, t.Snapshot())
			}
		}
	}()
}
