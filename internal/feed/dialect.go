package feed

import (
	"context"
	"time"

	"tickflow/models"
)

// RouteClass is the classification a dialect assigns to an inbound frame.
type RouteClass int

const (
	// RouteControl marks acks, welcome frames and other protocol chatter
	// that carries no market data.
	RouteControl RouteClass = iota
	// RouteData marks a frame carrying ticker, order-book or funding data.
	RouteData
	// RoutePong marks a reply to an application-level ping.
	RoutePong
	// RouteInvalid marks a frame the dialect could not parse at all.
	RouteInvalid
)

// Dialect captures the per-exchange wire conventions: endpoint resolution,
// subscribe handshake, keepalive policy and frame classification. The manager
// drives the socket lifecycle; the dialect never touches the connection.
type Dialect interface {
	Name() string

	// Endpoint returns the websocket URL to dial. Most exchanges return a
	// static URL; KuCoin performs its token handshake here.
	Endpoint(ctx context.Context) (string, error)

	// SubscribeFrames returns the frames to send after the transport opens.
	// The symbol is canonical; the dialect translates it to the exchange's
	// own naming.
	SubscribeFrames(symbol string) [][]byte

	// Keepalive returns the application-level ping frame and its interval.
	// A zero interval means the exchange relies on protocol-level pings and
	// no application ping is sent.
	Keepalive() (frame []byte, interval time.Duration)

	// Route classifies an inbound frame. RouteData frames return a
	// RawMessage with Kind and Data set (the manager fills in exchange,
	// symbol and receive time); for every other class the RawMessage is
	// zero.
	Route(frame []byte) (models.RawMessage, RouteClass)
}
