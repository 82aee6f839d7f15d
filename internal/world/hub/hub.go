// Package hub fans world change events out to every connection task. The
// world is the sole publisher; each connection subscribes for the lifetime
// of its socket. Publication never blocks: a subscriber that falls behind
// loses its oldest events and is told how many, so it can resynchronize
// from fresh chunk snapshots instead of stalling everyone else.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/model"
	"github.com/WiredSound/gemgame/internal/world/store"
)

type Kind uint8

const (
	KindEntityMoved Kind = iota + 1
	KindEntityAdded
	KindEntityRemoved
	KindTileChanged
)

// Event describes one applied world mutation. It carries everything a
// consumer needs to decide relevance and build its outbound message without
// re-locking the world.
type Event struct {
	Kind Kind

	// Chunks lists every chunk position the mutation touches: one for tile
	// changes and in-chunk moves, two for moves that cross a chunk border.
	Chunks []coords.ChunkCoords

	EntityID model.EntityID
	Entity   model.Entity // populated for entity events; a detached copy

	Pos  coords.TileCoords
	Tile store.Tile
}

// Touches reports whether any affected chunk is in the given interest set.
func (ev *Event) Touches(interest map[coords.ChunkCoords]struct{}) bool {
	for _, cc := range ev.Chunks {
		if _, ok := interest[cc]; ok {
			return true
		}
	}
	return false
}

type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
}

type Subscriber struct {
	hub     *Hub
	ch      chan Event
	dropped atomic.Uint64
}

func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   map[*Subscriber]struct{}{},
		buffer: buffer,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		hub: h,
		ch:  make(chan Event, h.buffer),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers ev to every current subscriber in publication order.
// Slow subscribers lose their oldest pending event rather than delaying
// this call.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		for {
			select {
			case s.ch <- ev:
			default:
				select {
				case <-s.ch:
					s.dropped.Add(1)
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// C is the subscriber's receive side. Closed by Close.
func (s *Subscriber) C() <-chan Event { return s.ch }

// TakeLagged returns and clears the number of events lost since the last
// call. A non-zero value means the consumer's view has gaps and it must
// resync from snapshots.
func (s *Subscriber) TakeLagged() uint64 {
	return s.dropped.Swap(0)
}

func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	if _, ok := s.hub.subs[s]; ok {
		delete(s.hub.subs, s)
		close(s.ch)
	}
	s.hub.mu.Unlock()
}
