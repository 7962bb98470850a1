package orderbook

import (
	"sort"

	"tickflow/models"
)

// DefaultDepth is the number of price levels retained per side when a book
// is materialized for clients.
const DefaultDepth = 50

// Book reconstructs one (exchange, symbol) order book from a snapshot+delta
// stream. It starts unseeded; deltas arriving before the first snapshot are
// discarded so a partial book is never observable.
type Book struct {
	bids   map[float64]float64
	asks   map[float64]float64
	seeded bool
}

func NewBook() *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

// ApplySnapshot replaces the book contents and seeds the state machine.
// Levels with size 0 are skipped; they carry no information in a snapshot.
func (b *Book) ApplySnapshot(bids, asks []models.OrderBookLevel) {
	b.bids = make(map[float64]float64, len(bids))
	b.asks = make(map[float64]float64, len(asks))
	for _, l := range bids {
		if l.Size > 0 {
			b.bids[l.Price] = l.Size
		}
	}
	for _, l := range asks {
		if l.Size > 0 {
			b.asks[l.Price] = l.Size
		}
	}
	b.seeded = true
}

// ApplyDelta merges incremental updates: size > 0 sets the level, size == 0
// removes it (a no-op when absent). It returns false while the book is
// unseeded, in which case the delta is discarded.
func (b *Book) ApplyDelta(bids, asks []models.OrderBookLevel) bool {
	if !b.seeded {
		return false
	}
	for _, l := range bids {
		if l.Size > 0 {
			b.bids[l.Price] = l.Size
		} else {
			delete(b.bids, l.Price)
		}
	}
	for _, l := range asks {
		if l.Size > 0 {
			b.asks[l.Price] = l.Size
		} else {
			delete(b.asks, l.Price)
		}
	}
	return true
}

func (b *Book) Seeded() bool {
	return b.seeded
}

// Empty reports whether both sides hold no levels. An empty book suppresses
// emission: clients never receive a book with nothing on either side.
func (b *Book) Empty() bool {
	return len(b.bids) == 0 && len(b.asks) == 0
}

// Materialize returns bids sorted descending and asks ascending by price,
// each truncated to depth entries.
func (b *Book) Materialize(depth int) (bids, asks []models.OrderBookLevel) {
	if depth <= 0 {
		depth = DefaultDepth
	}

	bids = make([]models.OrderBookLevel, 0, len(b.bids))
	for p, s := range b.bids {
		bids = append(bids, models.OrderBookLevel{Price: p, Size: s})
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	if len(bids) > depth {
		bids = bids[:depth]
	}

	asks = make([]models.OrderBookLevel, 0, len(b.asks))
	for p, s := range b.asks {
		asks = append(asks, models.OrderBookLevel{Price: p, Size: s})
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if len(asks) > depth {
		asks = asks[:depth]
	}

	return bids, asks
}
