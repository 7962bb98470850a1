package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tickflow/config"
	"tickflow/internal/channel"
	"tickflow/internal/metrics"
	"tickflow/internal/status"
	"tickflow/logger"
)

// Conn is the slice of *websocket.Conn the manager needs; tests swap in a
// scripted implementation through DialFunc.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DialFunc opens the transport for a resolved endpoint.
type DialFunc func(ctx context.Context, url string) (Conn, error)

func gorillaDial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	return conn, err
}

// BookResetter discards reconstruction state when the owning connection
// closes.
type BookResetter interface {
	ResetBook(exchange, symbol string)
}

// handle is the lifecycle anchor for one (exchange, symbol) connection:
// cancelling it tears down the socket, the keepalive ticker and any pending
// reconnect wait together.
type handle struct {
	exchange string
	symbol   string
	cancel   context.CancelFunc
	done     chan struct{}
}

func handleKey(exchange, symbol string) string {
	return exchange + "|" + symbol
}

// Manager owns every exchange-facing connection. Each subscribed
// (exchange, symbol) pair gets its own socket with its own keepalive and
// reconnect schedule; a failure on one connection never touches its siblings.
type Manager struct {
	cfg      *config.Config
	channels *channel.Channels
	status   *status.Tracker
	books    BookResetter
	dialects map[string]Dialect
	dial     DialFunc

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.Mutex
	handles map[string]*handle
	running bool
	log     *logger.Log
}

func NewManager(cfg *config.Config, ch *channel.Channels, st *status.Tracker, books BookResetter) *Manager {
	dialects := make(map[string]Dialect)
	if cfg.Feed.Binance.Enabled {
		dialects["binance"] = newBinanceDialect(cfg.Feed.Binance.WsURL)
	}
	if cfg.Feed.Bybit.Enabled {
		dialects["bybit"] = newBybitDialect(cfg.Feed.Bybit.WsURL, cfg.Feed.Bybit.PingInterval)
	}
	if cfg.Feed.Okx.Enabled {
		dialects["okx"] = newOkxDialect(cfg.Feed.Okx.WsURL)
	}
	if cfg.Feed.Kucoin.Enabled {
		dialects["kucoin"] = newKucoinDialect(cfg.Feed.Kucoin.BulletURL)
	}
	return &Manager{
		cfg:      cfg,
		channels: ch,
		status:   st,
		books:    books,
		dialects: dialects,
		dial:     gorillaDial,
		wg:       &sync.WaitGroup{},
		handles:  make(map[string]*handle),
		log:      logger.GetLogger(),
	}
}

// SetDialFunc replaces the transport dialer. Tests use it to inject scripted
// connections; it must be called before Start.
func (m *Manager) SetDialFunc(dial DialFunc) {
	m.dial = dial
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("feed manager already running")
	}
	m.running = true
	m.ctx = ctx
	m.mu.Unlock()

	m.log.WithComponent("feed_manager").WithFields(logger.Fields{
		"exchanges": m.exchangeNames(),
	}).Info("feed manager started")
	return nil
}

// Stop tears down every connection and waits for the workers to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	for key, h := range m.handles {
		h.cancel()
		delete(m.handles, key)
	}
	m.mu.Unlock()

	m.log.WithComponent("feed_manager").Info("stopping feed manager")
	m.wg.Wait()
	m.log.WithComponent("feed_manager").Info("feed manager stopped")
}

// Subscribe converges the connections for the symbol to exactly the requested
// exchange set. It is idempotent per (exchange, symbol) pair: a pair that is
// already connected is force-closed first, so there is never more than one
// live socket per key.
func (m *Manager) Subscribe(symbol string, exchanges []string) {
	log := m.log.WithComponent("feed_manager").WithFields(logger.Fields{"symbol": symbol})

	want := make(map[string]bool, len(exchanges))
	for _, ex := range exchanges {
		if _, ok := m.dialects[ex]; !ok {
			log.WithFields(logger.Fields{"exchange": ex}).Warn("unknown or disabled exchange, skipping")
			continue
		}
		want[ex] = true
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		log.Warn("subscribe before start, ignoring")
		return
	}
	var stale []*handle
	for key, h := range m.handles {
		if h.symbol != symbol {
			continue
		}
		// Not wanted anymore, or wanted again: either way the existing
		// socket goes down before anything new comes up.
		h.cancel()
		delete(m.handles, key)
		stale = append(stale, h)
	}
	m.mu.Unlock()

	for _, h := range stale {
		<-h.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	for ex := range want {
		key := handleKey(ex, symbol)
		if _, ok := m.handles[key]; ok {
			continue
		}
		hctx, cancel := context.WithCancel(m.ctx)
		h := &handle{exchange: ex, symbol: symbol, cancel: cancel, done: make(chan struct{})}
		m.handles[key] = h

		m.wg.Add(1)
		go m.runHandle(hctx, h, m.dialects[ex])

		if ex == "binance" {
			m.wg.Add(1)
			go m.runFundingPoller(hctx, symbol)
		}
		log.WithFields(logger.Fields{"exchange": ex}).Info("connection handle opened")
	}
}

// Unsubscribe closes every connection for the symbol across all exchanges and
// cancels their timers. Order-book state is discarded on the way down.
func (m *Manager) Unsubscribe(symbol string) {
	m.mu.Lock()
	var closed []*handle
	for key, h := range m.handles {
		if h.symbol != symbol {
			continue
		}
		h.cancel()
		delete(m.handles, key)
		closed = append(closed, h)
	}
	m.mu.Unlock()

	for _, h := range closed {
		<-h.done
	}
	if len(closed) > 0 {
		m.log.WithComponent("feed_manager").WithFields(logger.Fields{
			"symbol":  symbol,
			"handles": len(closed),
		}).Info("subscription torn down")
	}
}

// ActiveHandles returns the sorted keys of the live connection handles.
func (m *Manager) ActiveHandles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.handles))
	for key := range m.handles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manager) exchangeNames() []string {
	names := make([]string, 0, len(m.dialects))
	for name := range m.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runHandle is the connection lifecycle loop: dial, subscribe, serve, and on
// any failure back off exponentially and dial again until cancelled.
func (m *Manager) runHandle(ctx context.Context, h *handle, d Dialect) {
	defer m.wg.Done()
	defer close(h.done)
	defer m.books.ResetBook(h.exchange, h.symbol)

	log := m.log.WithComponent("feed_manager").WithFields(logger.Fields{
		"exchange": h.exchange,
		"symbol":   h.symbol,
	})

	base := m.cfg.Feed.Reconnect.BaseDelay
	max := m.cfg.Feed.Reconnect.MaxDelay
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = 30 * time.Second
	}
	delay := base

	for {
		if ctx.Err() != nil {
			return
		}

		endpoint, err := d.Endpoint(ctx)
		if err != nil {
			log.WithError(err).Warn("endpoint resolution failed, retrying")
			logger.IncrementRetryCount()
			if !m.waitReconnect(ctx, h.exchange, delay) {
				return
			}
			delay = nextDelay(delay, max)
			continue
		}

		conn, err := m.dial(ctx, endpoint)
		if err != nil {
			log.WithError(err).Warn("failed to connect websocket, retrying")
			logger.IncrementRetryCount()
			if !m.waitReconnect(ctx, h.exchange, delay) {
				return
			}
			delay = nextDelay(delay, max)
			continue
		}

		m.status.ConnOpened(h.exchange)
		delay = base

		err = m.serve(ctx, conn, h, d)
		m.status.ConnClosed(h.exchange)
		// Any delta arriving before the next snapshot must not land on a
		// stale book.
		m.books.ResetBook(h.exchange, h.symbol)

		if ctx.Err() != nil {
			return
		}
		log.WithError(err).Warn("websocket closed, reconnecting")
		metrics.IncReconnect(h.exchange)
		if !m.waitReconnect(ctx, h.exchange, delay) {
			return
		}
		delay = nextDelay(delay, max)
	}
}

func (m *Manager) waitReconnect(ctx context.Context, exchange string, delay time.Duration) bool {
	m.status.ReconnectScheduled(exchange)
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// truncateFrame keeps log lines bounded when a garbage frame is large.
func truncateFrame(frame []byte) string {
	const limit = 256
	if len(frame) > limit {
		return string(frame[:limit]) + "..."
	}
	return string(frame)
}

func nextDelay(delay, max time.Duration) time.Duration {
	delay *= 2
	if delay > max {
		delay = max
	}
	return delay
}

// serve runs one connection: handshake, keepalive, then the read loop until
// the socket errors or the context is cancelled.
func (m *Manager) serve(ctx context.Context, conn Conn, h *handle, d Dialect) error {
	defer conn.Close()

	for _, frame := range d.SubscribeFrames(h.symbol) {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return fmt.Errorf("subscribe handshake: %w", err)
		}
	}

	done := make(chan struct{})
	defer close(done)

	var lastPing atomic.Int64
	ping, interval := d.Keepalive()
	if interval > 0 {
		ticker := time.NewTicker(interval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ctx.Done():
					conn.Close()
					return
				case <-ticker.C:
					lastPing.Store(time.Now().UnixNano())
					if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
						return
					}
				}
			}
		}()
	} else {
		// Unblock ReadMessage on cancellation.
		go func() {
			select {
			case <-done:
			case <-ctx.Done():
				conn.Close()
			}
		}()
	}

	log := m.log.WithComponent("feed_manager").WithFields(logger.Fields{
		"exchange": h.exchange,
		"symbol":   h.symbol,
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		received := time.Now()

		msg, class := d.Route(frame)
		switch class {
		case RoutePong:
			if sent := lastPing.Load(); sent > 0 {
				m.status.PongLatency(h.exchange, received.Sub(time.Unix(0, sent)))
			}
			continue
		case RouteControl:
			continue
		case RouteInvalid:
			metrics.IncParseError(h.exchange, "frame")
			log.WithFields(logger.Fields{"frame": truncateFrame(frame)}).Debug("unparseable frame skipped")
			continue
		}

		msg.Exchange = h.exchange
		msg.Symbol = h.symbol
		msg.Received = received
		m.status.MessageReceived(h.exchange)

		if !m.channels.Send(ctx, msg) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("raw channel full, dropping frame")
		}
	}
}
