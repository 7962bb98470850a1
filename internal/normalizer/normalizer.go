package normalizer

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"tickflow/config"
	"tickflow/internal/bus"
	"tickflow/internal/channel"
	"tickflow/internal/metrics"
	"tickflow/internal/orderbook"
	"tickflow/logger"
	"tickflow/models"
)

// Normalizer consumes raw exchange frames and publishes canonical events on
// the bus. It owns the order book tracker; delta-capable exchanges route
// through it, snapshot-only exchanges bypass it entirely.
//
// The book channel is drained by a single worker so deltas for one connection
// are applied strictly in receipt order. Ticker and funding frames are
// stateless and get their own workers.
type Normalizer struct {
	cfg      *config.Config
	channels *channel.Channels
	bus      *bus.Bus
	books    *orderbook.Tracker
	depth    int

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

func New(cfg *config.Config, ch *channel.Channels, b *bus.Bus) *Normalizer {
	depth := cfg.Hub.Depth
	if depth <= 0 {
		depth = orderbook.DefaultDepth
	}
	return &Normalizer{
		cfg:      cfg,
		channels: ch,
		bus:      b,
		books:    orderbook.NewTracker(),
		depth:    depth,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
	}
}

// Start launches the worker goroutines.
func (n *Normalizer) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("normalizer already running")
	}
	n.running = true
	n.ctx = ctx
	n.mu.Unlock()

	log := n.log.WithComponent("normalizer")
	log.Info("starting normalizer")

	n.wg.Add(3)
	go n.tickerWorker()
	go n.bookWorker()
	go n.fundingWorker()

	log.Info("normalizer started successfully")
	return nil
}

// Stop waits for all workers to drain.
func (n *Normalizer) Stop() {
	n.mu.Lock()
	n.running = false
	n.mu.Unlock()

	n.log.WithComponent("normalizer").Info("stopping normalizer")
	n.wg.Wait()
	n.log.WithComponent("normalizer").Info("normalizer stopped")
}

// ResetBook drops the reconstruction state for one (exchange, symbol) key.
// The feed manager calls it whenever the owning connection closes.
func (n *Normalizer) ResetBook(exchange, symbol string) {
	n.books.Reset(exchange, symbol)
}

func (n *Normalizer) tickerWorker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case msg, ok := <-n.channels.Ticker:
			if !ok {
				return
			}
			n.handleTicker(msg)
		}
	}
}

func (n *Normalizer) bookWorker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case msg, ok := <-n.channels.Book:
			if !ok {
				return
			}
			n.handleBook(msg)
		}
	}
}

func (n *Normalizer) fundingWorker() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case msg, ok := <-n.channels.Funding:
			if !ok {
				return
			}
			n.handleFunding(msg)
		}
	}
}

func (n *Normalizer) handleTicker(raw models.RawMessage) {
	var (
		md  models.MarketData
		err error
	)
	switch raw.Exchange {
	case "binance":
		md, err = normalizeBinanceTicker(raw)
	case "bybit":
		md, err = normalizeBybitTicker(raw)
	case "okx":
		md, err = normalizeOkxTicker(raw)
	case "kucoin":
		md, err = normalizeKucoinTicker(raw)
	default:
		err = fmt.Errorf("unsupported exchange: %s", raw.Exchange)
	}
	if err != nil {
		n.dropFrame(raw, err)
		return
	}
	metrics.IncMessage(raw.Exchange, string(models.KindMarketData))
	n.bus.Publish(models.KindMarketData, md)
}

func (n *Normalizer) handleBook(raw models.RawMessage) {
	var (
		ob   models.OrderBookData
		emit bool
		err  error
	)
	switch raw.Exchange {
	case "binance":
		// Depth-limited snapshot stream; no reconstruction state is kept.
		ob, err = normalizeBinanceDepth(raw, n.depth)
		emit = err == nil
	case "kucoin":
		ob, err = normalizeKucoinDepth(raw, n.depth)
		emit = err == nil
	case "bybit":
		ob, emit, err = n.applyBybitBook(raw)
	case "okx":
		ob, emit, err = n.applyOkxBook(raw)
	default:
		err = fmt.Errorf("unsupported exchange: %s", raw.Exchange)
	}
	if err != nil {
		n.dropFrame(raw, err)
		return
	}
	if !emit {
		// Unseeded or empty book; suppressed by design of the state machine.
		return
	}
	metrics.IncMessage(raw.Exchange, string(models.KindOrderBook))
	n.bus.Publish(models.KindOrderBook, ob)
}

func (n *Normalizer) handleFunding(raw models.RawMessage) {
	var (
		fr  models.FundingRateData
		err error
	)
	switch raw.Exchange {
	case "binance":
		fr, err = normalizeBinanceFunding(raw)
	case "okx":
		fr, err = normalizeOkxFunding(raw)
	default:
		err = fmt.Errorf("unsupported exchange: %s", raw.Exchange)
	}
	if err != nil {
		n.dropFrame(raw, err)
		return
	}
	metrics.IncMessage(raw.Exchange, string(models.KindFundingRate))
	n.bus.Publish(models.KindFundingRate, fr)
}

// dropFrame logs and counts a frame that failed schema validation. A bad
// frame never terminates the connection it arrived on.
func (n *Normalizer) dropFrame(raw models.RawMessage, err error) {
	metrics.IncParseError(raw.Exchange, string(raw.Kind))
	n.log.WithComponent("normalizer").WithError(err).WithFields(logger.Fields{
		"exchange": raw.Exchange,
		"symbol":   raw.Symbol,
		"kind":     raw.Kind,
	}).Warn("dropping malformed frame")
}

// parseLevels converts [price, size, ...] string tuples into levels. Extra
// columns (OKX ships four) are ignored.
func parseLevels(raw [][]string) ([]models.OrderBookLevel, error) {
	out := make([]models.OrderBookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			return nil, fmt.Errorf("level entry has %d fields, want at least 2", len(entry))
		}
		price, err := strconv.ParseFloat(entry[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level price %q: %w", entry[0], err)
		}
		size, err := strconv.ParseFloat(entry[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid level size %q: %w", entry[1], err)
		}
		out = append(out, models.OrderBookLevel{Price: price, Size: size})
	}
	return out, nil
}

// sortSides enforces the canonical ordering invariant on the bypass path:
// bids descending, asks ascending, truncated to depth.
func sortSides(bids, asks []models.OrderBookLevel, depth int) ([]models.OrderBookLevel, []models.OrderBookLevel) {
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if len(bids) > depth {
		bids = bids[:depth]
	}
	if len(asks) > depth {
		asks = asks[:depth]
	}
	return bids, asks
}
