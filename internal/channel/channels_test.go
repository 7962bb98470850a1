package channel

import (
	"context"
	"testing"

	"tickflow/models"
)

func TestSendRoutesByKind(t *testing.T) {
	c := NewChannels(1)
	ctx := context.Background()

	if !c.Send(ctx, models.RawMessage{Kind: models.KindMarketData, Exchange: "bybit"}) {
		t.Fatal("ticker send failed")
	}
	if !c.Send(ctx, models.RawMessage{Kind: models.KindOrderBook, Exchange: "bybit"}) {
		t.Fatal("book send failed")
	}
	if !c.Send(ctx, models.RawMessage{Kind: models.KindFundingRate, Exchange: "binance"}) {
		t.Fatal("funding send failed")
	}

	if len(c.Ticker) != 1 || len(c.Book) != 1 || len(c.Funding) != 1 {
		t.Fatalf("unexpected channel depths: %d %d %d", len(c.Ticker), len(c.Book), len(c.Funding))
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	c := NewChannels(1)
	ctx := context.Background()

	msg := models.RawMessage{Kind: models.KindOrderBook}
	if !c.Send(ctx, msg) {
		t.Fatal("first send should succeed")
	}
	if c.Send(ctx, msg) {
		t.Fatal("second send should drop")
	}

	stats := c.GetStats()
	if stats.BookSent != 1 || stats.BookDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendUnknownKind(t *testing.T) {
	c := NewChannels(1)
	if c.Send(context.Background(), models.RawMessage{Kind: models.KindWebhook}) {
		t.Fatal("unknown kind should not be accepted")
	}
}
