package normalizer

import (
	"encoding/json"
	"fmt"
	"time"

	"tickflow/models"
)

func normalizeKucoinTicker(raw models.RawMessage) (models.MarketData, error) {
	var msg models.KucoinMessage
	if err := json.Unmarshal(raw.Data, &msg); err != nil {
		return models.MarketData{}, fmt.Errorf("kucoin message unmarshal: %w", err)
	}
	var env models.KucoinSnapshotEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		return models.MarketData{}, fmt.Errorf("kucoin snapshot unmarshal: %w", err)
	}
	data := env.Data
	if data.LastTradedPrice == 0 && data.Datetime == 0 {
		return models.MarketData{}, fmt.Errorf("kucoin snapshot frame is empty")
	}
	return models.MarketData{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Price:     data.LastTradedPrice,
		Volume24h: data.VolValue,
		// changeRate is a ratio (0.05 == 5%).
		PriceChange24hPercent: data.ChangeRate * 100,
		Timestamp:             time.UnixMilli(data.Datetime),
	}, nil
}

func normalizeKucoinDepth(raw models.RawMessage, depth int) (models.OrderBookData, error) {
	var msg models.KucoinMessage
	if err := json.Unmarshal(raw.Data, &msg); err != nil {
		return models.OrderBookData{}, fmt.Errorf("kucoin message unmarshal: %w", err)
	}
	var data models.KucoinDepthData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return models.OrderBookData{}, fmt.Errorf("kucoin depth unmarshal: %w", err)
	}
	bids, err := parseLevels(data.Bids)
	if err != nil {
		return models.OrderBookData{}, fmt.Errorf("kucoin depth bids: %w", err)
	}
	asks, err := parseLevels(data.Asks)
	if err != nil {
		return models.OrderBookData{}, fmt.Errorf("kucoin depth asks: %w", err)
	}
	bids, asks = sortSides(bids, asks, depth)
	ts := raw.Received
	if data.Timestamp > 0 {
		ts = time.UnixMilli(data.Timestamp)
	}
	return models.OrderBookData{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}, nil
}
