package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"tickflow/internal/symbols"
	"tickflow/logger"
	"tickflow/models"
)

// runFundingPoller substitutes for the funding push channel Binance's public
// stream lacks: a fixed-interval poll of the premium index endpoint, feeding
// the same raw channel the websocket frames use. Its lifetime is bound to the
// symbol's Binance handle, so it starts on subscribe and stops on
// unsubscribe.
func (m *Manager) runFundingPoller(ctx context.Context, symbol string) {
	defer m.wg.Done()

	cfg := m.cfg.Feed.Binance
	interval := cfg.FundingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	rps := cfg.FundingRPS
	if rps <= 0 {
		rps = 2
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	client := futures.NewClient("", "")
	wireSym := symbols.ToExchange("binance", symbol)

	log := m.log.WithComponent("funding_poller").WithFields(logger.Fields{
		"exchange": "binance",
		"symbol":   symbol,
	})
	log.WithFields(logger.Fields{"interval": interval.String()}).Info("funding poller started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.pollFunding(ctx, client, limiter, symbol, wireSym, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("funding poller stopped")
			return
		case <-ticker.C:
			m.pollFunding(ctx, client, limiter, symbol, wireSym, log)
		}
	}
}

func (m *Manager) pollFunding(ctx context.Context, client *futures.Client, limiter *rate.Limiter, symbol, wireSym string, log *logger.Entry) {
	if err := limiter.Wait(ctx); err != nil {
		return
	}
	rows, err := client.NewPremiumIndexService().Symbol(wireSym).Do(ctx)
	if err != nil {
		log.WithError(err).Warn("premium index poll failed")
		logger.IncrementRetryCount()
		return
	}
	if len(rows) == 0 {
		log.Warn("premium index poll returned no rows")
		return
	}
	idx := rows[0]

	payload, err := json.Marshal(models.BinanceFundingResp{
		Symbol:          idx.Symbol,
		MarkPrice:       idx.MarkPrice,
		LastFundingRate: idx.LastFundingRate,
		NextFundingTime: idx.NextFundingTime,
		Time:            idx.Time,
	})
	if err != nil {
		log.WithError(err).Warn("failed to marshal funding payload")
		return
	}

	msg := models.RawMessage{
		Exchange: "binance",
		Symbol:   symbol,
		Kind:     models.KindFundingRate,
		Data:     payload,
		Received: time.Now(),
	}
	if !m.channels.Send(ctx, msg) && ctx.Err() == nil {
		log.Warn("raw funding channel full, dropping poll result")
	}
}
