package models

import "encoding/json"

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// KUCOIN ////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// KucoinMessage is the generic KuCoin websocket frame. Type distinguishes
// welcome/ack/pong control frames from "message" data frames.
type KucoinMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Subject string          `json:"subject,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// KucoinDepthData is the /spotMarket/level2Depth50 payload: a depth-limited
// snapshot stream with no delta protocol.
type KucoinDepthData struct {
	Bids      [][]string `json:"bids"`
	Asks      [][]string `json:"asks"`
	Timestamp int64      `json:"timestamp"`
}

// KucoinSnapshotEnvelope wraps the /market/snapshot payload.
type KucoinSnapshotEnvelope struct {
	Sequence string             `json:"sequence"`
	Data     KucoinSnapshotData `json:"data"`
}

// KucoinSnapshotData carries the per-symbol 24h statistics. VolValue is
// already quote-denominated; ChangeRate is a ratio, not a percentage.
type KucoinSnapshotData struct {
	Symbol          string  `json:"symbol"`
	LastTradedPrice float64 `json:"lastTradedPrice"`
	ChangeRate      float64 `json:"changeRate"`
	ChangePrice     float64 `json:"changePrice"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Vol             float64 `json:"vol"`
	VolValue        float64 `json:"volValue"`
	Datetime        int64   `json:"datetime"`
}

// KucoinBulletResp is the response of POST /api/v1/bullet-public, consumed
// during the websocket token handshake.
type KucoinBulletResp struct {
	Code string `json:"code"`
	Data struct {
		Token           string `json:"token"`
		InstanceServers []struct {
			Endpoint     string `json:"endpoint"`
			Protocol     string `json:"protocol"`
			PingInterval int64  `json:"pingInterval"`
			PingTimeout  int64  `json:"pingTimeout"`
		} `json:"instanceServers"`
	} `json:"data"`
}
