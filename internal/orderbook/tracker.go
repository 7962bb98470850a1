package orderbook

import (
	"sync"

	"tickflow/logger"
)

// Tracker owns the Book instances, keyed by (exchange, symbol). No other
// component mutates book state; the feed layer requests resets through it
// when a connection closes or a symbol is unsubscribed.
type Tracker struct {
	mu    sync.Mutex
	books map[string]*Book
	log   *logger.Log
}

func NewTracker() *Tracker {
	return &Tracker{
		books: make(map[string]*Book),
		log:   logger.GetLogger(),
	}
}

func key(exchange, symbol string) string {
	return exchange + "|" + symbol
}

// Get returns the book for the key, creating an unseeded one on first use.
func (t *Tracker) Get(exchange, symbol string) *Book {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(exchange, symbol)
	b, ok := t.books[k]
	if !ok {
		b = NewBook()
		t.books[k] = b
	}
	return b
}

// Reset drops the book for the key entirely. Deltas that arrive after a
// reconnect and before a fresh snapshot will find an unseeded book and be
// discarded.
func (t *Tracker) Reset(exchange, symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(exchange, symbol)
	if _, ok := t.books[k]; ok {
		delete(t.books, k)
		t.log.WithComponent("orderbook").WithFields(logger.Fields{
			"exchange": exchange,
			"symbol":   symbol,
		}).Debug("book state dropped")
	}
}

// Len reports how many live books the tracker holds.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.books)
}
