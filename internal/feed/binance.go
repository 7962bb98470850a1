package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tickflow/internal/symbols"
	"tickflow/models"
)

// binanceDialect speaks the Binance combined-method stream protocol. The
// server sends protocol-level pings, so no application keepalive is needed.
// The depth20@100ms stream is a partial-book snapshot, not a delta feed.
type binanceDialect struct {
	wsURL string
}

func newBinanceDialect(wsURL string) *binanceDialect {
	return &binanceDialect{wsURL: wsURL}
}

func (d *binanceDialect) Name() string { return "binance" }

func (d *binanceDialect) Endpoint(ctx context.Context) (string, error) {
	return d.wsURL, nil
}

func (d *binanceDialect) SubscribeFrames(symbol string) [][]byte {
	sym := strings.ToLower(symbols.ToExchange("binance", symbol))
	frame, _ := json.Marshal(map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{
			fmt.Sprintf("%s@ticker", sym),
			fmt.Sprintf("%s@depth20@100ms", sym),
		},
		"id": 1,
	})
	return [][]byte{frame}
}

func (d *binanceDialect) Keepalive() ([]byte, time.Duration) {
	return nil, 0
}

func (d *binanceDialect) Route(frame []byte) (models.RawMessage, RouteClass) {
	var head struct {
		EventType    string `json:"e"`
		LastUpdateID *int64 `json:"lastUpdateId"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return models.RawMessage{}, RouteInvalid
	}
	switch {
	case head.EventType == "24hrTicker":
		return models.RawMessage{Kind: models.KindMarketData, Data: frame}, RouteData
	case head.LastUpdateID != nil:
		return models.RawMessage{Kind: models.KindOrderBook, Data: frame}, RouteData
	}
	// Subscribe ack or unknown control frame.
	return models.RawMessage{}, RouteControl
}
