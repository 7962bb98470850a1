package models

import "time"

// Kind identifies a canonical event class flowing through the bus and the
// client wire protocol.
type Kind string

const (
	KindMarketData   Kind = "marketData"
	KindOrderBook    Kind = "orderBook"
	KindFundingRate  Kind = "fundingRate"
	KindSystemStatus Kind = "systemStatus"
	KindWebhook      Kind = "webhook"
)

// RawMessage carries one exchange frame from a feed connection to the
// normalizer. Symbol is already canonical (Binance-style, e.g. BTCUSDT);
// Data is the untouched wire payload.
type RawMessage struct {
	Exchange string
	Symbol   string
	Kind     Kind
	Data     []byte
	Received time.Time
}

// MarketData is the canonical ticker shape. Volume24h is always denominated
// in quote-currency units regardless of what the exchange reports natively.
// Produced per exchange; never merged across exchanges at this layer.
type MarketData struct {
	Exchange              string    `json:"exchange"`
	Symbol                string    `json:"symbol"`
	Price                 float64   `json:"price"`
	Volume24h             float64   `json:"volume24h"`
	PriceChange24hPercent float64   `json:"priceChange24hPercent"`
	Timestamp             time.Time `json:"timestamp"`
}

// OrderBookLevel is a single (price, size) pair. Size == 0 is a removal
// sentinel on the delta path, never a real resting order.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBookData is the materialized, client-facing book view. Bids are sorted
// descending by price, asks ascending, both truncated to the configured depth.
type OrderBookData struct {
	Exchange  string           `json:"exchange"`
	Symbol    string           `json:"symbol"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp time.Time        `json:"timestamp"`
}

// FundingRateData is the canonical funding shape. Both push and poll sources
// converge on it and are emitted identically downstream.
type FundingRateData struct {
	Exchange           string    `json:"exchange"`
	Symbol             string    `json:"symbol"`
	FundingRate        float64   `json:"fundingRate"`
	FundingRatePercent float64   `json:"fundingRatePercent"`
	NextFundingTime    time.Time `json:"nextFundingTime"`
	MarkPrice          float64   `json:"markPrice"`
	Timestamp          time.Time `json:"timestamp"`
}

// ExchangeStatus summarizes the health of one exchange's connections.
type ExchangeStatus struct {
	Connections   int       `json:"connections"`
	Reconnects    int64     `json:"reconnects"`
	Messages      int64     `json:"messages"`
	LastMessage   time.Time `json:"lastMessage"`
	PingLatencyMs int64     `json:"pingLatencyMs"`
}

// SystemStatus is published periodically on the bus and forwarded to clients.
type SystemStatus struct {
	Exchanges map[string]ExchangeStatus `json:"exchanges"`
	Timestamp time.Time                 `json:"timestamp"`
}
