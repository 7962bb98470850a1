package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tickflow/models"
)

func normalizeBybitTicker(raw models.RawMessage) (models.MarketData, error) {
	var env models.BybitEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return models.MarketData{}, fmt.Errorf("bybit envelope unmarshal: %w", err)
	}
	var data models.BybitTickerData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return models.MarketData{}, fmt.Errorf("bybit ticker unmarshal: %w", err)
	}
	price, err := strconv.ParseFloat(data.LastPrice, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("bybit ticker price %q: %w", data.LastPrice, err)
	}
	baseVol, err := strconv.ParseFloat(data.Volume24h, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("bybit ticker volume %q: %w", data.Volume24h, err)
	}
	pcnt, err := strconv.ParseFloat(data.Price24hPcnt, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("bybit ticker change %q: %w", data.Price24hPcnt, err)
	}
	return models.MarketData{
		Exchange: raw.Exchange,
		Symbol:   raw.Symbol,
		Price:    price,
		// volume24h arrives in base-asset units; convert to quote units.
		Volume24h:             baseVol * price,
		PriceChange24hPercent: pcnt * 100,
		Timestamp:             time.UnixMilli(env.TS),
	}, nil
}

func (n *Normalizer) applyBybitBook(raw models.RawMessage) (models.OrderBookData, bool, error) {
	var env models.BybitEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("bybit envelope unmarshal: %w", err)
	}
	var data models.BybitOrderBookData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("bybit book unmarshal: %w", err)
	}
	bids, err := parseLevels(data.Bids)
	if err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("bybit book bids: %w", err)
	}
	asks, err := parseLevels(data.Asks)
	if err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("bybit book asks: %w", err)
	}

	book := n.books.Get(raw.Exchange, raw.Symbol)
	switch env.Type {
	case "snapshot":
		book.ApplySnapshot(bids, asks)
	case "delta":
		if !book.ApplyDelta(bids, asks) {
			// No snapshot seen since the last reset; discard silently.
			return models.OrderBookData{}, false, nil
		}
	default:
		return models.OrderBookData{}, false, fmt.Errorf("bybit book type %q", env.Type)
	}
	if book.Empty() {
		return models.OrderBookData{}, false, nil
	}

	outBids, outAsks := book.Materialize(n.depth)
	return models.OrderBookData{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Bids:      outBids,
		Asks:      outAsks,
		Timestamp: time.UnixMilli(env.TS),
	}, true, nil
}
