package bus

import (
	"sync"

	"tickflow/internal/metrics"
	"tickflow/logger"
	"tickflow/models"
)

// Event is one normalized item published on the bus. Data holds the canonical
// struct for the kind (models.MarketData, models.OrderBookData, ...).
type Event struct {
	Kind models.Kind
	Data interface{}
}

// Bus is a typed publish/subscribe point with one subscriber list per event
// kind. Publishing never blocks: a subscriber whose channel is full loses the
// event and the drop is counted against that kind.
//
// Publish sends while holding the read lock and Close tears down under the
// write lock, so a publish racing a shutdown observes the closed flag instead
// of a closed channel.
type Bus struct {
	mu     sync.RWMutex
	subs   map[models.Kind][]chan Event
	closed bool
	buffer int

	dropMu  sync.Mutex
	dropped map[models.Kind]int64

	log *logger.Log
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:    make(map[models.Kind][]chan Event),
		dropped: make(map[models.Kind]int64),
		buffer:  buffer,
		log:     logger.GetLogger(),
	}
}

// Subscribe registers a new listener for the given kinds and returns its
// channel. The channel is owned by the bus and closed on Close; subscribing
// to a closed bus returns an already-closed channel.
func (b *Bus) Subscribe(kinds ...models.Kind) <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	for _, k := range kinds {
		b.subs[k] = append(b.subs[k], ch)
	}
	return ch
}

// Publish delivers the event to every subscriber of its kind. Publishing to
// a closed bus is a no-op.
func (b *Bus) Publish(kind models.Kind, data interface{}) {
	ev := Event{Kind: kind, Data: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs[kind] {
		select {
		case ch <- ev:
		default:
			b.dropMu.Lock()
			b.dropped[kind]++
			b.dropMu.Unlock()
			metrics.IncBusDropped(string(kind))
		}
	}
}

// Dropped returns how many events of the kind were lost to full subscribers.
func (b *Bus) Dropped(kind models.Kind) int64 {
	b.dropMu.Lock()
	defer b.dropMu.Unlock()
	return b.dropped[kind]
}

// Close closes every subscriber channel exactly once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	seen := make(map[chan Event]struct{})
	for _, chans := range b.subs {
		for _, ch := range chans {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			close(ch)
		}
	}
	b.subs = make(map[models.Kind][]chan Event)
}
