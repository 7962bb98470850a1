package feed

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tickflow/config"
	"tickflow/internal/channel"
	"tickflow/internal/status"
	"tickflow/models"
)

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	writes [][]byte
}

func newFakeConn(frames ...[]byte) *fakeConn {
	c := &fakeConn{
		frames: make(chan []byte, len(frames)+1),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		c.frames <- f
	}
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	default:
	}
	select {
	case f := <-c.frames:
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	c.mu.Lock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	dials int64
	conns []*fakeConn
	// frames pre-loaded into every new connection
	frames [][]byte
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Conn, error) {
	atomic.AddInt64(&d.dials, 1)
	c := newFakeConn(d.frames...)
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) dialCount() int64 {
	return atomic.LoadInt64(&d.dials)
}

func (d *fakeDialer) firstConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[0]
}

type recordResetter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordResetter) ResetBook(exchange, symbol string) {
	r.mu.Lock()
	r.calls = append(r.calls, handleKey(exchange, symbol))
	r.mu.Unlock()
}

func (r *recordResetter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestManager(t *testing.T, dialer *fakeDialer) (*Manager, *channel.Channels, *recordResetter) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Feed.Reconnect.BaseDelay = 10 * time.Millisecond
	cfg.Feed.Reconnect.MaxDelay = 50 * time.Millisecond
	cfg.Feed.Bybit.Enabled = true
	cfg.Feed.Bybit.WsURL = "wss://test.invalid/bybit"
	cfg.Feed.Bybit.PingInterval = time.Minute
	cfg.Feed.Okx.Enabled = true
	cfg.Feed.Okx.WsURL = "wss://test.invalid/okx"

	ch := channel.NewChannels(64)
	books := &recordResetter{}
	m := NewManager(cfg, ch, status.NewTracker(), books)
	m.SetDialFunc(dialer.dial)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		m.Stop()
		cancel()
	})
	return m, ch, books
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSubscribeOpensHandlePerExchange(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit", "okx"})

	keys := m.ActiveHandles()
	if len(keys) != 2 || keys[0] != "bybit|BTCUSDT" || keys[1] != "okx|BTCUSDT" {
		t.Fatalf("ActiveHandles = %v, want [bybit|BTCUSDT okx|BTCUSDT]", keys)
	}
}

func TestSubscribeIsIdempotentPerPair(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})
	waitFor(t, func() bool { return dialer.dialCount() >= 1 },
		"first subscribe never opened a connection")

	m.Subscribe("BTCUSDT", []string{"bybit"})

	keys := m.ActiveHandles()
	if len(keys) != 1 || keys[0] != "bybit|BTCUSDT" {
		t.Fatalf("ActiveHandles = %v, want exactly one bybit handle", keys)
	}
	// The stale handle was redialed, not reused.
	waitFor(t, func() bool { return dialer.dialCount() >= 2 },
		"second subscribe never opened a fresh connection")
}

func TestSubscribeConvergesToRequestedSet(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit", "okx"})
	m.Subscribe("BTCUSDT", []string{"okx"})

	keys := m.ActiveHandles()
	if len(keys) != 1 || keys[0] != "okx|BTCUSDT" {
		t.Fatalf("ActiveHandles = %v, want [okx|BTCUSDT]", keys)
	}
}

func TestSubscribeUnsubscribeCyclesLeaveNoHandles(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, books := newTestManager(t, dialer)

	for i := 0; i < 5; i++ {
		m.Subscribe("ETHUSDT", []string{"bybit", "okx"})
		m.Unsubscribe("ETHUSDT")
	}

	if keys := m.ActiveHandles(); len(keys) != 0 {
		t.Fatalf("ActiveHandles = %v, want none after unsubscribe", keys)
	}
	if books.count() == 0 {
		t.Error("order-book state was never discarded on teardown")
	}
}

func TestUnsubscribeOnlyAffectsItsSymbol(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})
	m.Subscribe("ETHUSDT", []string{"bybit"})
	m.Unsubscribe("ETHUSDT")

	keys := m.ActiveHandles()
	if len(keys) != 1 || keys[0] != "bybit|BTCUSDT" {
		t.Fatalf("ActiveHandles = %v, want [bybit|BTCUSDT]", keys)
	}
}

func TestSubscribeHandshakeUsesExchangeChannels(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})

	waitFor(t, func() bool {
		c := dialer.firstConn()
		return c != nil && len(c.sentFrames()) > 0
	}, "subscribe frame was never written")

	frame := dialer.firstConn().sentFrames()[0]
	if !strings.Contains(frame, "orderbook.50.BTCUSDT") || !strings.Contains(frame, "tickers.BTCUSDT") {
		t.Errorf("handshake frame = %s, want bybit ticker and orderbook topics", frame)
	}
}

func TestDataFramesReachRawChannels(t *testing.T) {
	dialer := &fakeDialer{frames: [][]byte{
		[]byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1,"data":{"symbol":"BTCUSDT","lastPrice":"1","price24hPcnt":"0","volume24h":"0"}}`),
	}}
	m, ch, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})

	select {
	case msg := <-ch.Ticker:
		if msg.Exchange != "bybit" || msg.Symbol != "BTCUSDT" || msg.Kind != models.KindMarketData {
			t.Errorf("raw message = %+v, want bybit/BTCUSDT/marketData", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticker frame never reached the raw channel")
	}
}

func TestUnparseableFrameKeepsConnectionAlive(t *testing.T) {
	dialer := &fakeDialer{frames: [][]byte{
		[]byte(`garbage that is not json`),
		[]byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1,"data":{"symbol":"BTCUSDT","lastPrice":"1","price24hPcnt":"0","volume24h":"0"}}`),
	}}
	m, ch, _ := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})

	// The data frame behind the garbage one still arrives, on the same
	// connection.
	select {
	case msg := <-ch.Ticker:
		if msg.Kind != models.KindMarketData {
			t.Errorf("raw message kind = %q, want marketData", msg.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("data frame after garbage frame never reached the raw channel")
	}
	if n := dialer.dialCount(); n != 1 {
		t.Errorf("dial count = %d, want 1 (garbage frame must not force a reconnect)", n)
	}
}

func TestReadErrorTriggersReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	m, _, books := newTestManager(t, dialer)

	m.Subscribe("BTCUSDT", []string{"bybit"})
	waitFor(t, func() bool { return dialer.dialCount() >= 1 }, "never dialed")

	// Kill the live connection; the handle must redial on its own.
	dialer.firstConn().Close()
	waitFor(t, func() bool { return dialer.dialCount() >= 2 }, "no reconnect after read error")

	if books.count() == 0 {
		t.Error("order-book state survived a reconnect")
	}
	if keys := m.ActiveHandles(); len(keys) != 1 {
		t.Errorf("ActiveHandles = %v, want the handle still registered", keys)
	}
}
