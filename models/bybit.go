package models

import "encoding/json"

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// BYBIT /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// BybitEnvelope wraps every frame on the Bybit v5 public stream. Data frames
// carry Topic and Type; control frames carry Op/Success instead.
type BybitEnvelope struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	TS      int64           `json:"ts"`
	Data    json.RawMessage `json:"data"`
	Op      string          `json:"op"`
	Success *bool           `json:"success,omitempty"`
	RetMsg  string          `json:"ret_msg"`
}

// BybitTickerData is the tickers.<symbol> payload. Volume24h is denominated
// in base-asset units; the canonical quote volume requires multiplication by
// the last price.
type BybitTickerData struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"lastPrice"`
	Price24hPcnt  string `json:"price24hPcnt"`
	Volume24h     string `json:"volume24h"`
	Turnover24h   string `json:"turnover24h"`
	HighPrice24h  string `json:"highPrice24h"`
	LowPrice24h   string `json:"lowPrice24h"`
	PrevPrice24h  string `json:"prevPrice24h"`
	USDIndexPrice string `json:"usdIndexPrice"`
}

// BybitOrderBookData is the orderbook.50.<symbol> payload, delivered as a
// full snapshot on subscribe and deltas afterwards. Level entries are
// [price, size] string pairs; size "0" removes the level.
type BybitOrderBookData struct {
	Symbol   string     `json:"s"`
	Bids     [][]string `json:"b"`
	Asks     [][]string `json:"a"`
	UpdateID int64      `json:"u"`
	Seq      int64      `json:"seq"`
}
