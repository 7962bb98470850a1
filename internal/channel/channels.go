package channel

import (
	"context"
	"sync"
	"time"

	"tickflow/logger"
	"tickflow/models"
)

type ChannelStats struct {
	TickerSent     int64
	TickerDropped  int64
	BookSent       int64
	BookDropped    int64
	FundingSent    int64
	FundingDropped int64
}

// Channels carries raw exchange frames from the feed layer to the normalizer,
// one buffered channel per data kind. Sends never block the feed read loops:
// a full buffer drops the frame and counts it.
type Channels struct {
	Ticker  chan models.RawMessage
	Book    chan models.RawMessage
	Funding chan models.RawMessage

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(bufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Ticker:  make(chan models.RawMessage, bufferSize),
		Book:    make(chan models.RawMessage, bufferSize),
		Funding: make(chan models.RawMessage, bufferSize),
		log:     log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Info("raw channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Ticker)
	close(c.Book)
	close(c.Funding)
	c.log.WithComponent("channels").Info("raw channels closed")
}

// Send routes the message to the channel for its kind. It returns false when
// the message was dropped or the context is done.
func (c *Channels) Send(ctx context.Context, msg models.RawMessage) bool {
	switch msg.Kind {
	case models.KindMarketData:
		return c.sendTicker(ctx, msg)
	case models.KindOrderBook:
		return c.sendBook(ctx, msg)
	case models.KindFundingRate:
		return c.sendFunding(ctx, msg)
	}
	return false
}

func (c *Channels) sendTicker(ctx context.Context, msg models.RawMessage) bool {
	select {
	case c.Ticker <- msg:
		c.statsMutex.Lock()
		c.stats.TickerSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.TickerDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) sendBook(ctx context.Context, msg models.RawMessage) bool {
	select {
	case c.Book <- msg:
		c.statsMutex.Lock()
		c.stats.BookSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.BookDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) sendFunding(ctx context.Context, msg models.RawMessage) bool {
	select {
	case c.Funding <- msg:
		c.statsMutex.Lock()
		c.stats.FundingSent++
		c.statsMutex.Unlock()
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.FundingDropped++
		c.statsMutex.Unlock()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartStatsReporting logs channel counters and current depths every interval.
func (c *Channels) StartStatsReporting(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := c.GetStats()
				c.log.WithComponent("channels").WithFields(logger.Fields{
					"ticker_sent":     stats.TickerSent,
					"ticker_dropped":  stats.TickerDropped,
					"book_sent":       stats.BookSent,
					"book_dropped":    stats.BookDropped,
					"funding_sent":    stats.FundingSent,
					"funding_dropped": stats.FundingDropped,
					"ticker_depth":    len(c.Ticker),
					"book_depth":      len(c.Book),
					"funding_depth":   len(c.Funding),
				}).Debug("channel stats")
			}
		}
	}()
}
