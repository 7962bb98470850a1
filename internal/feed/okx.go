package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"tickflow/internal/symbols"
	"tickflow/models"
)

// okxDialect speaks the OKX v5 public stream. Funding rates arrive on a push
// channel here, unlike Binance where they must be polled. Keepalive is the
// literal "ping"/"pong" text exchange.
type okxDialect struct {
	wsURL string
}

func newOkxDialect(wsURL string) *okxDialect {
	return &okxDialect{wsURL: wsURL}
}

func (d *okxDialect) Name() string { return "okx" }

func (d *okxDialect) Endpoint(ctx context.Context) (string, error) {
	return d.wsURL, nil
}

func (d *okxDialect) SubscribeFrames(symbol string) [][]byte {
	inst := symbols.ToExchange("okx", symbol)
	frame, _ := json.Marshal(map[string]interface{}{
		"op": "subscribe",
		"args": []models.OkxArg{
			{Channel: "tickers", InstID: inst},
			{Channel: "books", InstID: inst},
			{Channel: "funding-rate", InstID: inst},
		},
	})
	return [][]byte{frame}
}

func (d *okxDialect) Keepalive() ([]byte, time.Duration) {
	return []byte("ping"), 20 * time.Second
}

func (d *okxDialect) Route(frame []byte) (models.RawMessage, RouteClass) {
	if bytes.Equal(frame, []byte("pong")) {
		return models.RawMessage{}, RoutePong
	}
	var env models.OkxEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return models.RawMessage{}, RouteInvalid
	}
	if env.Event != "" {
		// subscribe ack or error notice
		return models.RawMessage{}, RouteControl
	}
	switch env.Arg.Channel {
	case "tickers":
		return models.RawMessage{Kind: models.KindMarketData, Data: frame}, RouteData
	case "books":
		return models.RawMessage{Kind: models.KindOrderBook, Data: frame}, RouteData
	case "funding-rate":
		return models.RawMessage{Kind: models.KindFundingRate, Data: frame}, RouteData
	}
	return models.RawMessage{}, RouteControl
}
