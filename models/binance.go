package models

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// BINANCE ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// BinanceTickerEvent is the payload of the <symbol>@ticker stream. The 24h
// quote volume (q) and percent change (P) are reported directly.
type BinanceTickerEvent struct {
	EventType      string `json:"e"`
	EventTime      int64  `json:"E"`
	Symbol         string `json:"s"`
	LastPrice      string `json:"c"`
	PriceChangePct string `json:"P"`
	QuoteVolume    string `json:"q"`
}

// BinanceDepthEvent is the payload of the <symbol>@depth20@100ms partial book
// stream. It is a depth-limited snapshot with no delta protocol.
type BinanceDepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// BinanceFundingResp is the shape the funding poller feeds into the raw
// channel so that polled funding shares the websocket normalization path.
type BinanceFundingResp struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
	Time            int64  `json:"time"`
}
