package registry

import (
	"reflect"
	"sync"
	"testing"
)

type fakeConverger struct {
	mu            sync.Mutex
	subscribed    map[string][]string
	unsubscribed  []string
	subscribeHits int
}

func newFakeConverger() *fakeConverger {
	return &fakeConverger{subscribed: make(map[string][]string)}
}

func (c *fakeConverger) Subscribe(symbol string, exchanges []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed[symbol] = exchanges
	c.subscribeHits++
}

func (c *fakeConverger) Unsubscribe(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribed, symbol)
	c.unsubscribed = append(c.unsubscribed, symbol)
}

func TestSubscribeOverwritesExchangeSet(t *testing.T) {
	conns := newFakeConverger()
	r := New(conns)

	r.Subscribe("BTCUSDT", []string{"binance", "bybit"})
	r.Subscribe("BTCUSDT", []string{"okx"})

	if got := r.Exchanges("BTCUSDT"); !reflect.DeepEqual(got, []string{"okx"}) {
		t.Errorf("Exchanges = %v, want [okx] (second subscribe overwrites)", got)
	}
	if got := conns.subscribed["BTCUSDT"]; !reflect.DeepEqual(got, []string{"okx"}) {
		t.Errorf("converged set = %v, want [okx]", got)
	}
}

func TestUnsubscribeTearsDownWholeSymbol(t *testing.T) {
	conns := newFakeConverger()
	r := New(conns)

	// Two logical consumers want the same symbol; the registry keeps a
	// single global entry, so one unsubscribe removes it for both.
	r.Subscribe("BTCUSDT", []string{"binance"})
	r.Subscribe("BTCUSDT", []string{"binance"})
	r.Unsubscribe("BTCUSDT")

	if got := r.Exchanges("BTCUSDT"); got != nil {
		t.Errorf("Exchanges = %v, want nil after unsubscribe", got)
	}
	if len(conns.unsubscribed) != 1 || conns.unsubscribed[0] != "BTCUSDT" {
		t.Errorf("unsubscribed = %v, want [BTCUSDT]", conns.unsubscribed)
	}
}

func TestUnsubscribeUnknownSymbolIsNoop(t *testing.T) {
	conns := newFakeConverger()
	r := New(conns)

	r.Unsubscribe("DOGEUSDT")

	if len(conns.unsubscribed) != 0 {
		t.Errorf("unsubscribed = %v, want no converger calls", conns.unsubscribed)
	}
}

func TestEmptySubscribeIgnored(t *testing.T) {
	conns := newFakeConverger()
	r := New(conns)

	r.Subscribe("", []string{"binance"})
	r.Subscribe("BTCUSDT", nil)

	if conns.subscribeHits != 0 {
		t.Errorf("subscribeHits = %d, want 0", conns.subscribeHits)
	}
	if got := r.Symbols(); len(got) != 0 {
		t.Errorf("Symbols = %v, want none", got)
	}
}

func TestSymbolsSorted(t *testing.T) {
	conns := newFakeConverger()
	r := New(conns)

	r.Subscribe("ETHUSDT", []string{"binance"})
	r.Subscribe("BTCUSDT", []string{"binance"})

	if got := r.Symbols(); !reflect.DeepEqual(got, []string{"BTCUSDT", "ETHUSDT"}) {
		t.Errorf("Symbols = %v, want sorted [BTCUSDT ETHUSDT]", got)
	}
}
