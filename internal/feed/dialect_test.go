package feed

import (
	"testing"

	"tickflow/models"
)

func TestRouteClassification(t *testing.T) {
	binance := newBinanceDialect("wss://test.invalid/binance")
	bybit := newBybitDialect("wss://test.invalid/bybit", 0)
	okx := newOkxDialect("wss://test.invalid/okx")
	kucoin := newKucoinDialect("https://test.invalid/bullet")

	cases := []struct {
		name    string
		dialect Dialect
		frame   string
		class   RouteClass
		kind    models.Kind
	}{
		{"binance ticker", binance, `{"e":"24hrTicker","s":"BTCUSDT","c":"50000"}`, RouteData, models.KindMarketData},
		{"binance depth", binance, `{"lastUpdateId":160,"bids":[["100","1"]],"asks":[["101","2"]]}`, RouteData, models.KindOrderBook},
		{"binance subscribe ack", binance, `{"result":null,"id":1}`, RouteControl, ""},
		{"binance garbage", binance, `not even json`, RouteInvalid, ""},

		{"bybit ticker", bybit, `{"topic":"tickers.BTCUSDT","type":"snapshot","data":{}}`, RouteData, models.KindMarketData},
		{"bybit orderbook", bybit, `{"topic":"orderbook.50.BTCUSDT","type":"delta","data":{}}`, RouteData, models.KindOrderBook},
		{"bybit pong", bybit, `{"op":"pong"}`, RoutePong, ""},
		{"bybit pong ret_msg", bybit, `{"ret_msg":"pong","op":"ping"}`, RoutePong, ""},
		{"bybit subscribe ack", bybit, `{"op":"subscribe","success":true}`, RouteControl, ""},
		{"bybit garbage", bybit, `{"topic":`, RouteInvalid, ""},

		{"okx ticker", okx, `{"arg":{"channel":"tickers","instId":"BTC-USDT"},"data":[]}`, RouteData, models.KindMarketData},
		{"okx books", okx, `{"arg":{"channel":"books","instId":"BTC-USDT"},"action":"update","data":[]}`, RouteData, models.KindOrderBook},
		{"okx funding", okx, `{"arg":{"channel":"funding-rate","instId":"BTC-USDT"},"data":[]}`, RouteData, models.KindFundingRate},
		{"okx pong", okx, `pong`, RoutePong, ""},
		{"okx subscribe ack", okx, `{"event":"subscribe","arg":{"channel":"tickers"}}`, RouteControl, ""},
		{"okx garbage", okx, `ping pong`, RouteInvalid, ""},

		{"kucoin snapshot", kucoin, `{"type":"message","topic":"/market/snapshot:BTC-USDT","data":{}}`, RouteData, models.KindMarketData},
		{"kucoin depth", kucoin, `{"type":"message","topic":"/spotMarket/level2Depth50:BTC-USDT","data":{}}`, RouteData, models.KindOrderBook},
		{"kucoin pong", kucoin, `{"id":"1","type":"pong"}`, RoutePong, ""},
		{"kucoin welcome", kucoin, `{"id":"1","type":"welcome"}`, RouteControl, ""},
		{"kucoin garbage", kucoin, `<html>bad gateway</html>`, RouteInvalid, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, class := tc.dialect.Route([]byte(tc.frame))
			if class != tc.class {
				t.Fatalf("Route class = %v, want %v", class, tc.class)
			}
			if class == RouteData {
				if msg.Kind != tc.kind {
					t.Errorf("Route kind = %q, want %q", msg.Kind, tc.kind)
				}
				if len(msg.Data) == 0 {
					t.Error("Route data frame has empty payload")
				}
			} else if msg.Kind != "" || msg.Data != nil {
				t.Errorf("non-data frame returned message %+v, want zero", msg)
			}
		})
	}
}
