package metrics

import (
	"sync/atomic"
	"testing"
)

func counterValue(t *testing.T, name string) int64 {
	t.Helper()
	v, ok := counters.Load(name)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(v.(*int64))
}

func TestCountersAccumulate(t *testing.T) {
	before := counterValue(t, "messages_bybit_orderBook")
	IncMessage("bybit", "orderBook")
	IncMessage("bybit", "orderBook")
	if got := counterValue(t, "messages_bybit_orderBook"); got != before+2 {
		t.Fatalf("expected %d, got %d", before+2, got)
	}
}

func TestCollectReportsDeltasOnce(t *testing.T) {
	IncReconnect("okx")
	published := make(map[string]int64)

	first := collect(published)
	if len(first) == 0 {
		t.Fatal("expected at least one datum on first collect")
	}

	second := collect(published)
	for _, d := range second {
		if *d.MetricName == "reconnects_okx" {
			t.Fatal("unchanged counter must not be republished")
		}
	}
}

func TestGaugeAlwaysCollected(t *testing.T) {
	SetClientConnections(3)
	published := make(map[string]int64)
	data := collect(published)

	found := false
	for _, d := range data {
		if *d.MetricName == "client_connections" && *d.Value == 3 {
			found = true
		}
	}
	if !found {
		t.Fatal("gauge missing from collected data")
	}
}
