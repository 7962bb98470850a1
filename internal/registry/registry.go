package registry

import (
	"sort"
	"sync"

	"tickflow/logger"
)

// Converger applies a desired connection set; the feed manager implements it.
type Converger interface {
	Subscribe(symbol string, exchanges []string)
	Unsubscribe(symbol string)
}

// Registry tracks which symbols and exchanges are currently wanted and drives
// the connection manager to match.
//
// It is deliberately not reference-counted: there is a single global
// subscription per symbol, so a subscribe overwrites the symbol's exchange
// set and one unsubscribe tears the symbol down for every consumer.
type Registry struct {
	mu      sync.Mutex
	entries map[string]map[string]struct{}
	conns   Converger
	log     *logger.Log
}

func New(conns Converger) *Registry {
	return &Registry{
		entries: make(map[string]map[string]struct{}),
		conns:   conns,
		log:     logger.GetLogger(),
	}
}

// Subscribe overwrites the symbol's requested exchange set and converges the
// connections to it. An empty exchange list is ignored.
func (r *Registry) Subscribe(symbol string, exchanges []string) {
	if symbol == "" || len(exchanges) == 0 {
		return
	}

	set := make(map[string]struct{}, len(exchanges))
	for _, ex := range exchanges {
		set[ex] = struct{}{}
	}

	r.mu.Lock()
	r.entries[symbol] = set
	r.mu.Unlock()

	r.log.WithComponent("registry").WithFields(logger.Fields{
		"symbol":    symbol,
		"exchanges": exchanges,
	}).Info("subscription registered")
	r.conns.Subscribe(symbol, exchanges)
}

// Unsubscribe removes the symbol and tears its connections down immediately.
func (r *Registry) Unsubscribe(symbol string) {
	r.mu.Lock()
	_, existed := r.entries[symbol]
	delete(r.entries, symbol)
	r.mu.Unlock()

	if !existed {
		return
	}
	r.log.WithComponent("registry").WithFields(logger.Fields{
		"symbol": symbol,
	}).Info("subscription removed")
	r.conns.Unsubscribe(symbol)
}

// Exchanges returns the sorted exchange set requested for the symbol.
func (r *Registry) Exchanges(symbol string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.entries[symbol]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for ex := range set {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

// Symbols returns the sorted list of subscribed symbols.
func (r *Registry) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for sym := range r.entries {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
