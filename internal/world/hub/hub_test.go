package hub

import (
	"testing"

	"github.com/WiredSound/gemgame/internal/world/coords"
)

func tileEvent(n int32) Event {
	return Event{
		Kind:   KindTileChanged,
		Chunks: []coords.ChunkCoords{{X: n, Y: 0}},
		Pos:    coords.TileCoords{X: n, Y: 0},
	}
}

func TestDeliveryPreservesPublishOrder(t *testing.T) {
	h := New(16)
	s := h.Subscribe()
	defer s.Close()

	for i := int32(0); i < 10; i++ {
		h.Publish(tileEvent(i))
	}
	for i := int32(0); i < 10; i++ {
		ev := <-s.C()
		if ev.Pos.X != i {
			t.Fatalf("event %d: got pos %d", i, ev.Pos.X)
		}
	}
}

func TestSlowSubscriberDropsOldestWithoutBlocking(t *testing.T) {
	h := New(4)
	s := h.Subscribe()
	defer s.Close()

	// Publish far more than the buffer holds; must not block.
	for i := int32(0); i < 20; i++ {
		h.Publish(tileEvent(i))
	}

	if lagged := s.TakeLagged(); lagged != 16 {
		t.Fatalf("lagged count: got %d, want 16", lagged)
	}
	if lagged := s.TakeLagged(); lagged != 0 {
		t.Fatalf("lagged count should reset, got %d", lagged)
	}

	// The survivors are the newest events, still in order.
	for i := int32(16); i < 20; i++ {
		ev := <-s.C()
		if ev.Pos.X != i {
			t.Fatalf("survivor: got pos %d, want %d", ev.Pos.X, i)
		}
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	h := New(4)
	s := h.Subscribe()
	if h.SubscriberCount() != 1 {
		t.Fatalf("subscriber count: got %d", h.SubscriberCount())
	}
	s.Close()
	s.Close() // idempotent
	if h.SubscriberCount() != 0 {
		t.Fatalf("subscriber not removed")
	}
	if _, ok := <-s.C(); ok {
		t.Fatalf("channel should be closed")
	}
	h.Publish(tileEvent(1)) // must not panic
}

func TestTouches(t *testing.T) {
	ev := Event{Chunks: []coords.ChunkCoords{{X: 1, Y: 2}, {X: 1, Y: 3}}}
	in := map[coords.ChunkCoords]struct{}{{X: 1, Y: 3}: {}}
	if !ev.Touches(in) {
		t.Fatalf("expected touch")
	}
	out := map[coords.ChunkCoords]struct{}{{X: 9, Y: 9}: {}}
	if ev.Touches(out) {
		t.Fatalf("unexpected touch")
	}
}
