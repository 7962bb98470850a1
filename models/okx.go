package models

import "encoding/json"

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// OKX ///////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// OkxEnvelope wraps OKX v5 public stream frames. Event is set on control
// frames (subscribe acks, errors); data frames carry Arg plus Data, and the
// books channel additionally sets Action to "snapshot" or "update".
type OkxEnvelope struct {
	Event  string          `json:"event,omitempty"`
	Code   string          `json:"code,omitempty"`
	Msg    string          `json:"msg,omitempty"`
	Arg    OkxArg          `json:"arg"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type OkxArg struct {
	Channel  string `json:"channel"`
	InstType string `json:"instType,omitempty"`
	InstID   string `json:"instId"`
}

// OkxTickerData lacks a direct 24h percent-change field; it is derived from
// the open24h reference price.
type OkxTickerData struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	Open24h   string `json:"open24h"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	VolCcy24h string `json:"volCcy24h"`
	TS        string `json:"ts"`
}

// OkxBookData levels are [price, size, liquidated, orders] string quadruples;
// size "0" removes the level on the update path.
type OkxBookData struct {
	Bids  [][]string `json:"bids"`
	Asks  [][]string `json:"asks"`
	TS    string     `json:"ts"`
	SeqID int64      `json:"seqId"`
}

// OkxFundingRateData is the funding-rate push channel payload.
type OkxFundingRateData struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	MarkPx          string `json:"markPx"`
	FundingTime     string `json:"fundingTime"`
	NextFundingTime string `json:"nextFundingTime"`
}
