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

// bybitDialect speaks the Bybit v5 public stream. Bybit drops idle sockets
// server-side, so an application-level ping goes out every interval and the
// pong round trip feeds the liveness signal.
type bybitDialect struct {
	wsURL        string
	pingInterval time.Duration
}

func newBybitDialect(wsURL string, pingInterval time.Duration) *bybitDialect {
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &bybitDialect{wsURL: wsURL, pingInterval: pingInterval}
}

func (d *bybitDialect) Name() string { return "bybit" }

func (d *bybitDialect) Endpoint(ctx context.Context) (string, error) {
	return d.wsURL, nil
}

func (d *bybitDialect) SubscribeFrames(symbol string) [][]byte {
	sym := symbols.ToExchange("bybit", symbol)
	frame, _ := json.Marshal(map[string]interface{}{
		"op": "subscribe",
		"args": []string{
			fmt.Sprintf("tickers.%s", sym),
			fmt.Sprintf("orderbook.50.%s", sym),
		},
	})
	return [][]byte{frame}
}

func (d *bybitDialect) Keepalive() ([]byte, time.Duration) {
	return []byte(`{"op":"ping"}`), d.pingInterval
}

func (d *bybitDialect) Route(frame []byte) (models.RawMessage, RouteClass) {
	var env models.BybitEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return models.RawMessage{}, RouteInvalid
	}
	if env.Op == "pong" || env.RetMsg == "pong" {
		return models.RawMessage{}, RoutePong
	}
	switch {
	case strings.HasPrefix(env.Topic, "tickers."):
		return models.RawMessage{Kind: models.KindMarketData, Data: frame}, RouteData
	case strings.HasPrefix(env.Topic, "orderbook."):
		return models.RawMessage{Kind: models.KindOrderBook, Data: frame}, RouteData
	}
	return models.RawMessage{}, RouteControl
}
