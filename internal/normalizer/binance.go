package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tickflow/models"
)

func normalizeBinanceTicker(raw models.RawMessage) (models.MarketData, error) {
	var evt models.BinanceTickerEvent
	if err := json.Unmarshal(raw.Data, &evt); err != nil {
		return models.MarketData{}, fmt.Errorf("binance ticker unmarshal: %w", err)
	}
	price, err := strconv.ParseFloat(evt.LastPrice, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("binance ticker price %q: %w", evt.LastPrice, err)
	}
	volume, err := strconv.ParseFloat(evt.QuoteVolume, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("binance ticker volume %q: %w", evt.QuoteVolume, err)
	}
	pct, err := strconv.ParseFloat(evt.PriceChangePct, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("binance ticker change %q: %w", evt.PriceChangePct, err)
	}
	return models.MarketData{
		Exchange:              raw.Exchange,
		Symbol:                raw.Symbol,
		Price:                 price,
		Volume24h:             volume,
		PriceChange24hPercent: pct,
		Timestamp:             time.UnixMilli(evt.EventTime),
	}, nil
}

func normalizeBinanceDepth(raw models.RawMessage, depth int) (models.OrderBookData, error) {
	var evt models.BinanceDepthEvent
	if err := json.Unmarshal(raw.Data, &evt); err != nil {
		return models.OrderBookData{}, fmt.Errorf("binance depth unmarshal: %w", err)
	}
	bids, err := parseLevels(evt.Bids)
	if err != nil {
		return models.OrderBookData{}, fmt.Errorf("binance depth bids: %w", err)
	}
	asks, err := parseLevels(evt.Asks)
	if err != nil {
		return models.OrderBookData{}, fmt.Errorf("binance depth asks: %w", err)
	}
	bids, asks = sortSides(bids, asks, depth)
	return models.OrderBookData{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: raw.Received,
	}, nil
}

func normalizeBinanceFunding(raw models.RawMessage) (models.FundingRateData, error) {
	var resp models.BinanceFundingResp
	if err := json.Unmarshal(raw.Data, &resp); err != nil {
		return models.FundingRateData{}, fmt.Errorf("binance funding unmarshal: %w", err)
	}
	rate, err := strconv.ParseFloat(resp.LastFundingRate, 64)
	if err != nil {
		return models.FundingRateData{}, fmt.Errorf("binance funding rate %q: %w", resp.LastFundingRate, err)
	}
	mark, err := strconv.ParseFloat(resp.MarkPrice, 64)
	if err != nil {
		return models.FundingRateData{}, fmt.Errorf("binance mark price %q: %w", resp.MarkPrice, err)
	}
	return models.FundingRateData{
		Exchange:           raw.Exchange,
		Symbol:             raw.Symbol,
		FundingRate:        rate,
		FundingRatePercent: rate * 100,
		NextFundingTime:    time.UnixMilli(resp.NextFundingTime),
		MarkPrice:          mark,
		Timestamp:          time.UnixMilli(resp.Time),
	}, nil
}
