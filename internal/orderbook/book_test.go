package orderbook

import (
	"testing"

	"tickflow/models"
)

func levels(pairs ...[2]float64) []models.OrderBookLevel {
	out := make([]models.OrderBookLevel, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, models.OrderBookLevel{Price: p[0], Size: p[1]})
	}
	return out
}

func TestSnapshotSeedsBook(t *testing.T) {
	b := NewBook()
	if b.Seeded() {
		t.Fatal("new book must start unseeded")
	}

	b.ApplySnapshot(levels([2]float64{100, 1}, [2]float64{99, 2}), levels([2]float64{101, 3}))
	if !b.Seeded() {
		t.Fatal("snapshot must seed the book")
	}

	bids, asks := b.Materialize(50)
	if len(bids) != 2 || len(asks) != 1 {
		t.Fatalf("unexpected sides: %d bids, %d asks", len(bids), len(asks))
	}
}

func TestDeltaBeforeSnapshotDiscarded(t *testing.T) {
	b := NewBook()
	if b.ApplyDelta(levels([2]float64{100, 1}), nil) {
		t.Fatal("delta on unseeded book must be discarded")
	}
	if !b.Empty() {
		t.Fatal("discarded delta must not mutate the book")
	}
}

func TestDeltaZeroSizeRemovesLevel(t *testing.T) {
	b := NewBook()
	b.ApplySnapshot(levels([2]float64{100, 1}, [2]float64{99, 2}), nil)

	if !b.ApplyDelta(levels([2]float64{99, 0}), nil) {
		t.Fatal("delta on seeded book must apply")
	}

	bids, _ := b.Materialize(50)
	if len(bids) != 1 || bids[0].Price != 100 || bids[0].Size != 1 {
		t.Fatalf("expected bids [(100,1)], got %+v", bids)
	}
}

func TestDeltaZeroSizeAbsentLevelNoop(t *testing.T) {
	b := NewBook()
	b.ApplySnapshot(levels([2]float64{100, 1}), nil)

	b.ApplyDelta(levels([2]float64{98, 0}), nil)
	bids, _ := b.Materialize(50)
	if len(bids) != 1 {
		t.Fatalf("removing an absent level must be a no-op, got %+v", bids)
	}
}

func TestMaterializeOrderingAndTruncation(t *testing.T) {
	b := NewBook()
	var bidLevels, askLevels []models.OrderBookLevel
	for i := 0; i < 60; i++ {
		bidLevels = append(bidLevels, models.OrderBookLevel{Price: 100 - float64(i), Size: 1})
		askLevels = append(askLevels, models.OrderBookLevel{Price: 101 + float64(i), Size: 1})
	}
	b.ApplySnapshot(bidLevels, askLevels)

	bids, asks := b.Materialize(50)
	if len(bids) != 50 || len(asks) != 50 {
		t.Fatalf("truncation failed: %d bids, %d asks", len(bids), len(asks))
	}
	for i := 1; i < len(bids); i++ {
		if bids[i].Price >= bids[i-1].Price {
			t.Fatalf("bids not descending at %d: %+v", i, bids[i-1:i+1])
		}
	}
	for i := 1; i < len(asks); i++ {
		if asks[i].Price <= asks[i-1].Price {
			t.Fatalf("asks not ascending at %d: %+v", i, asks[i-1:i+1])
		}
	}
	if bids[0].Price != 100 || asks[0].Price != 101 {
		t.Fatalf("best levels wrong: bid %v ask %v", bids[0].Price, asks[0].Price)
	}
}

func TestSnapshotReplacesPriorState(t *testing.T) {
	b := NewBook()
	b.ApplySnapshot(levels([2]float64{100, 1}), levels([2]float64{101, 1}))
	b.ApplySnapshot(levels([2]float64{90, 5}), nil)

	bids, asks := b.Materialize(50)
	if len(bids) != 1 || bids[0].Price != 90 {
		t.Fatalf("snapshot must clear prior bids, got %+v", bids)
	}
	if len(asks) != 0 {
		t.Fatalf("snapshot must clear prior asks, got %+v", asks)
	}
}

func TestSnapshotSkipsZeroSizes(t *testing.T) {
	b := NewBook()
	b.ApplySnapshot(levels([2]float64{100, 0}, [2]float64{99, 1}), nil)
	bids, _ := b.Materialize(50)
	if len(bids) != 1 || bids[0].Price != 99 {
		t.Fatalf("zero-size snapshot levels must be skipped, got %+v", bids)
	}
}

func TestTrackerResetDropsState(t *testing.T) {
	tr := NewTracker()
	b := tr.Get("bybit", "BTCUSDT")
	b.ApplySnapshot(levels([2]float64{100, 1}), nil)

	tr.Reset("bybit", "BTCUSDT")

	fresh := tr.Get("bybit", "BTCUSDT")
	if fresh.Seeded() {
		t.Fatal("reset must return the book to unseeded")
	}
	// A delta delivered after reset and before a new snapshot must not
	// produce an emission.
	if fresh.ApplyDelta(levels([2]float64{100, 2}), nil) {
		t.Fatal("delta after reset must be discarded")
	}
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	tr := NewTracker()
	tr.Get("bybit", "BTCUSDT").ApplySnapshot(levels([2]float64{100, 1}), nil)
	tr.Get("okx", "BTCUSDT").ApplySnapshot(levels([2]float64{200, 1}), nil)

	tr.Reset("bybit", "BTCUSDT")

	if !tr.Get("okx", "BTCUSDT").Seeded() {
		t.Fatal("reset of one exchange must not disturb a sibling exchange")
	}
}
