package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tickflow/internal/symbols"
	"tickflow/models"
)

// kucoinDialect speaks the KuCoin public stream. The websocket endpoint is not
// static: every connection starts with a POST to the bullet-public endpoint
// that returns a short-lived token, the server address and the ping interval
// the server expects.
type kucoinDialect struct {
	bulletURL  string
	httpClient *http.Client

	// pingInterval is refreshed from each bullet handshake, in milliseconds.
	pingInterval atomic.Int64
}

func newKucoinDialect(bulletURL string) *kucoinDialect {
	return &kucoinDialect{
		bulletURL:  bulletURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *kucoinDialect) Name() string { return "kucoin" }

func (d *kucoinDialect) Endpoint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.bulletURL, nil)
	if err != nil {
		return "", fmt.Errorf("kucoin bullet request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kucoin bullet handshake: %w", err)
	}
	defer resp.Body.Close()

	var bullet models.KucoinBulletResp
	if err := json.NewDecoder(resp.Body).Decode(&bullet); err != nil {
		return "", fmt.Errorf("kucoin bullet decode: %w", err)
	}
	if bullet.Code != "200000" || len(bullet.Data.InstanceServers) == 0 {
		return "", fmt.Errorf("kucoin bullet handshake rejected: code %s", bullet.Code)
	}

	server := bullet.Data.InstanceServers[0]
	if server.PingInterval > 0 {
		d.pingInterval.Store(server.PingInterval)
	}
	return fmt.Sprintf("%s?token=%s&connectId=%s", server.Endpoint, bullet.Data.Token, uuid.NewString()), nil
}

func (d *kucoinDialect) SubscribeFrames(symbol string) [][]byte {
	sym := symbols.ToExchange("kucoin", symbol)
	frames := make([][]byte, 0, 2)
	for _, topic := range []string{
		fmt.Sprintf("/market/snapshot:%s", sym),
		fmt.Sprintf("/spotMarket/level2Depth50:%s", sym),
	} {
		frame, _ := json.Marshal(models.KucoinMessage{
			ID:    uuid.NewString(),
			Type:  "subscribe",
			Topic: topic,
		})
		frames = append(frames, frame)
	}
	return frames
}

func (d *kucoinDialect) Keepalive() ([]byte, time.Duration) {
	interval := 18 * time.Second
	if ms := d.pingInterval.Load(); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	frame, _ := json.Marshal(models.KucoinMessage{ID: uuid.NewString(), Type: "ping"})
	return frame, interval
}

func (d *kucoinDialect) Route(frame []byte) (models.RawMessage, RouteClass) {
	var msg models.KucoinMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return models.RawMessage{}, RouteInvalid
	}
	switch msg.Type {
	case "pong":
		return models.RawMessage{}, RoutePong
	case "message":
	default:
		// welcome, ack or error frames
		return models.RawMessage{}, RouteControl
	}
	switch {
	case strings.HasPrefix(msg.Topic, "/market/snapshot"):
		return models.RawMessage{Kind: models.KindMarketData, Data: frame}, RouteData
	case strings.HasPrefix(msg.Topic, "/spotMarket/level2Depth50"):
		return models.RawMessage{Kind: models.KindOrderBook, Data: frame}, RouteData
	}
	return models.RawMessage{}, RouteControl
}
