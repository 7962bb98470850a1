package normalizer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"tickflow/models"
)

func parseOkxMillis(ts string) (time.Time, error) {
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("okx timestamp %q: %w", ts, err)
	}
	return time.UnixMilli(ms), nil
}

func normalizeOkxTicker(raw models.RawMessage) (models.MarketData, error) {
	var env models.OkxEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return models.MarketData{}, fmt.Errorf("okx envelope unmarshal: %w", err)
	}
	var rows []models.OkxTickerData
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return models.MarketData{}, fmt.Errorf("okx ticker unmarshal: %w", err)
	}
	if len(rows) == 0 {
		return models.MarketData{}, fmt.Errorf("okx ticker frame has no rows")
	}
	data := rows[0]

	last, err := strconv.ParseFloat(data.Last, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("okx ticker last %q: %w", data.Last, err)
	}
	open, err := strconv.ParseFloat(data.Open24h, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("okx ticker open24h %q: %w", data.Open24h, err)
	}
	volume, err := strconv.ParseFloat(data.VolCcy24h, 64)
	if err != nil {
		return models.MarketData{}, fmt.Errorf("okx ticker volCcy24h %q: %w", data.VolCcy24h, err)
	}
	ts, err := parseOkxMillis(data.TS)
	if err != nil {
		return models.MarketData{}, err
	}

	// No direct 24h change field; derive it from the open reference.
	var pct float64
	if open != 0 {
		pct = (last - open) / open * 100
	}
	return models.MarketData{
		Exchange:              raw.Exchange,
		Symbol:                raw.Symbol,
		Price:                 last,
		Volume24h:             volume,
		PriceChange24hPercent: pct,
		Timestamp:             ts,
	}, nil
}

func (n *Normalizer) applyOkxBook(raw models.RawMessage) (models.OrderBookData, bool, error) {
	var env models.OkxEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("okx envelope unmarshal: %w", err)
	}
	var rows []models.OkxBookData
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("okx book unmarshal: %w", err)
	}
	if len(rows) == 0 {
		return models.OrderBookData{}, false, fmt.Errorf("okx book frame has no rows")
	}
	data := rows[0]

	bids, err := parseLevels(data.Bids)
	if err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("okx book bids: %w", err)
	}
	asks, err := parseLevels(data.Asks)
	if err != nil {
		return models.OrderBookData{}, false, fmt.Errorf("okx book asks: %w", err)
	}

	book := n.books.Get(raw.Exchange, raw.Symbol)
	switch env.Action {
	case "snapshot":
		book.ApplySnapshot(bids, asks)
	case "update":
		if !book.ApplyDelta(bids, asks) {
			return models.OrderBookData{}, false, nil
		}
	default:
		return models.OrderBookData{}, false, fmt.Errorf("okx book action %q", env.Action)
	}
	if book.Empty() {
		return models.OrderBookData{}, false, nil
	}

	ts, err := parseOkxMillis(data.TS)
	if err != nil {
		ts = raw.Received
	}
	outBids, outAsks := book.Materialize(n.depth)
	return models.OrderBookData{
		Exchange:  raw.Exchange,
		Symbol:    raw.Symbol,
		Bids:      outBids,
		Asks:      outAsks,
		Timestamp: ts,
	}, true, nil
}

func normalizeOkxFunding(raw models.RawMessage) (models.FundingRateData, error) {
	var env models.OkxEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		return models.FundingRateData{}, fmt.Errorf("okx envelope unmarshal: %w", err)
	}
	var rows []models.OkxFundingRateData
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return models.FundingRateData{}, fmt.Errorf("okx funding unmarshal: %w", err)
	}
	if len(rows) == 0 {
		return models.FundingRateData{}, fmt.Errorf("okx funding frame has no rows")
	}
	data := rows[0]

	rate, err := strconv.ParseFloat(data.FundingRate, 64)
	if err != nil {
		return models.FundingRateData{}, fmt.Errorf("okx funding rate %q: %w", data.FundingRate, err)
	}
	var mark float64
	if data.MarkPx != "" {
		mark, err = strconv.ParseFloat(data.MarkPx, 64)
		if err != nil {
			return models.FundingRateData{}, fmt.Errorf("okx mark price %q: %w", data.MarkPx, err)
		}
	}
	next, err := parseOkxMillis(data.NextFundingTime)
	if err != nil {
		return models.FundingRateData{}, err
	}
	ts := raw.Received
	if t, err := parseOkxMillis(data.FundingTime); err == nil {
		ts = t
	}
	return models.FundingRateData{
		Exchange:           raw.Exchange,
		Symbol:             raw.Symbol,
		FundingRate:        rate,
		FundingRatePercent: rate * 100,
		NextFundingTime:    next,
		MarkPrice:          mark,
		Timestamp:          ts,
	}, nil
}
