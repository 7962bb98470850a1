package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tickflow/config"
	"tickflow/internal/bus"
	"tickflow/internal/metrics"
	"tickflow/logger"
	"tickflow/models"
)

// Subscriber is the upstream the hub drives with client control messages; the
// subscription registry implements it.
type Subscriber interface {
	Subscribe(symbol string, exchanges []string)
	Unsubscribe(symbol string)
}

// envelope is the server→client wire frame.
type envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans canonical events out to connected clients. Order book updates are
// coalesced per (symbol, exchange) inside the throttle window, keeping only
// the most recent one; everything else is forwarded immediately. Each client
// sees only the symbols and exchanges it subscribed to; systemStatus and
// webhook frames go to everyone.
type Hub struct {
	cfg  *config.Config
	bus  *bus.Bus
	subs Subscriber

	mu sync.RWMutex
	// per-client subscription view: symbol -> exchange set
	clients map[*Client]map[string]map[string]struct{}
	// disconnected clients keep their subscription set for replay
	sessions map[string]map[string][]string

	pendMu  sync.Mutex
	pending map[string]models.OrderBookData

	log *logger.Log
}

func New(cfg *config.Config, b *bus.Bus, subs Subscriber) *Hub {
	return &Hub{
		cfg:      cfg,
		bus:      b,
		subs:     subs,
		clients:  make(map[*Client]map[string]map[string]struct{}),
		sessions: make(map[string]map[string][]string),
		pending:  make(map[string]models.OrderBookData),
		log:      logger.GetLogger(),
	}
}

// Run consumes the bus until the context is cancelled. Order book events land
// in the pending map and are flushed once per throttle window.
func (h *Hub) Run(ctx context.Context) {
	window := h.cfg.Hub.ThrottleWindow
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	events := h.bus.Subscribe(
		models.KindMarketData,
		models.KindOrderBook,
		models.KindFundingRate,
		models.KindSystemStatus,
		models.KindWebhook,
	)

	log := h.log.WithComponent("hub")
	log.WithFields(logger.Fields{"throttle_window": window.String()}).Info("hub started")

	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("hub stopped")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.handleEvent(ev)
		case <-ticker.C:
			h.flushPending()
		}
	}
}

func (h *Hub) handleEvent(ev bus.Event) {
	if ev.Kind == models.KindOrderBook {
		ob, ok := ev.Data.(models.OrderBookData)
		if !ok {
			return
		}
		h.pendMu.Lock()
		h.pending[ob.Symbol+"|"+ob.Exchange] = ob
		h.pendMu.Unlock()
		return
	}
	h.broadcast(ev.Kind, ev.Data)
}

// flushPending sends the newest pending book per key and clears the map.
func (h *Hub) flushPending() {
	h.pendMu.Lock()
	if len(h.pending) == 0 {
		h.pendMu.Unlock()
		return
	}
	batch := h.pending
	h.pending = make(map[string]models.OrderBookData)
	h.pendMu.Unlock()

	for _, ob := range batch {
		h.broadcast(models.KindOrderBook, ob)
	}
	metrics.IncCoalescedFlush()
}

// BroadcastWebhook pushes an out-of-band payload to every connected client.
func (h *Hub) BroadcastWebhook(data interface{}) {
	h.broadcast(models.KindWebhook, data)
}

func (h *Hub) broadcast(kind models.Kind, data interface{}) {
	payload, err := json.Marshal(envelope{Type: string(kind), Data: data})
	if err != nil {
		h.log.WithComponent("hub").WithError(err).Warn("failed to marshal envelope")
		return
	}
	symbol, exchange, filtered := eventTarget(kind, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c, view := range h.clients {
		if filtered && !viewWants(view, symbol, exchange) {
			continue
		}
		c.enqueue(payload)
	}
}

// eventTarget extracts the routing key of a data event. Unkeyed kinds
// (systemStatus, webhook) report filtered=false and reach every client.
func eventTarget(kind models.Kind, data interface{}) (symbol, exchange string, filtered bool) {
	switch kind {
	case models.KindMarketData:
		if md, ok := data.(models.MarketData); ok {
			return md.Symbol, md.Exchange, true
		}
	case models.KindOrderBook:
		if ob, ok := data.(models.OrderBookData); ok {
			return ob.Symbol, ob.Exchange, true
		}
	case models.KindFundingRate:
		if fr, ok := data.(models.FundingRateData); ok {
			return fr.Symbol, fr.Exchange, true
		}
	}
	return "", "", false
}

func viewWants(view map[string]map[string]struct{}, symbol, exchange string) bool {
	set, ok := view[symbol]
	if !ok {
		return false
	}
	if len(set) == 0 {
		return true
	}
	_, ok = set[exchange]
	return ok
}

// register adds the client and replays any subscription set a previous
// connection with the same id left behind, so the client resumes data without
// reissuing subscribe calls.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	view := make(map[string]map[string]struct{})
	saved := h.sessions[c.id]
	for symbol, exchanges := range saved {
		set := make(map[string]struct{}, len(exchanges))
		for _, ex := range exchanges {
			set[ex] = struct{}{}
		}
		view[symbol] = set
	}
	h.clients[c] = view
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetClientConnections(n)
	for symbol, exchanges := range saved {
		h.subs.Subscribe(symbol, exchanges)
	}
	h.log.WithComponent("hub").WithFields(logger.Fields{
		"client":   c.id,
		"clients":  n,
		"replayed": len(saved),
	}).Info("client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	view, ok := h.clients[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	if c.persistent {
		h.sessions[c.id] = viewToLists(view)
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	metrics.SetClientConnections(n)
	h.log.WithComponent("hub").WithFields(logger.Fields{
		"client":  c.id,
		"clients": n,
	}).Info("client disconnected")
}

func (h *Hub) clientSubscribe(c *Client, symbol string, exchanges []string) {
	h.mu.Lock()
	view, ok := h.clients[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	set := make(map[string]struct{}, len(exchanges))
	for _, ex := range exchanges {
		set[ex] = struct{}{}
	}
	view[symbol] = set
	if c.persistent {
		h.sessions[c.id] = viewToLists(view)
	}
	h.mu.Unlock()

	h.subs.Subscribe(symbol, exchanges)
}

func (h *Hub) clientUnsubscribe(c *Client, symbol string) {
	h.mu.Lock()
	view, ok := h.clients[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(view, symbol)
	if c.persistent {
		h.sessions[c.id] = viewToLists(view)
	}
	h.mu.Unlock()

	h.subs.Unsubscribe(symbol)
}

func viewToLists(view map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(view))
	for symbol, set := range view {
		exchanges := make([]string, 0, len(set))
		for ex := range set {
			exchanges = append(exchanges, ex)
		}
		out[symbol] = exchanges
	}
	return out
}
