package terrain

import (
	"testing"

	"github.com/WiredSound/gemgame/internal/world/coords"
	"github.com/WiredSound/gemgame/internal/world/store"
)

func TestGenerateIsDeterministic(t *testing.T) {
	g := NewOverworld(1337)
	for _, cc := range []coords.ChunkCoords{{X: 0, Y: 0}, {X: -3, Y: 7}, {X: 100, Y: -250}} {
		a := g.Generate(cc)
		b := g.Generate(cc)
		if a.Tiles != b.Tiles {
			t.Fatalf("%v: two generations differ", cc)
		}
	}
}

func TestSeedsDiverge(t *testing.T) {
	ga := NewOverworld(1)
	gb := NewOverworld(2)
	for x := int32(0); x < 4; x++ {
		for y := int32(0); y < 4; y++ {
			cc := coords.ChunkCoords{X: x, Y: y}
			if ga.Generate(cc).Tiles != gb.Generate(cc).Tiles {
				return
			}
		}
	}
	t.Fatalf("different seeds produced identical terrain over 16 chunks")
}

func TestSpawnAreaIsWalkable(t *testing.T) {
	g := NewOverworld(99)
	ch := g.Generate(coords.ChunkCoords{X: 0, Y: 0})
	for _, tc := range []coords.TileCoords{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 2, Y: 2}} {
		if ch.At(tc.ToOffsetCoords()).Blocking() {
			t.Fatalf("spawn tile %v is blocking", tc)
		}
	}
}

func testPlan(t *testing.T, width, height int, before, after [][2]int) {
	t.Helper()
	p := newPlan()
	for _, c := range before {
		p.set(c[0], c[1], categoryDirt)
	}
	p.cleanup()

	want := map[[2]int]bool{}
	for _, c := range after {
		want[c] = true
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			got := p.at(x, y) == categoryDirt
			if got != want[[2]int{x, y}] {
				t.Errorf("cell (%d,%d): dirt=%v, want %v", x, y, got, want[[2]int{x, y}])
			}
		}
	}
}

func TestCleanupRemovesJuttingCells(t *testing.T) {
	// .....      .....
	// ..##.  ->  ..##.
	// .###.      ..##.
	// .....      .....
	testPlan(t, 5, 4,
		[][2]int{{2, 1}, {3, 1}, {1, 2}, {2, 2}, {3, 2}},
		[][2]int{{2, 1}, {3, 1}, {2, 2}, {3, 2}})

	// ......      ......
	// .####.  ->  ...##.
	// ...##.      ...##.
	// ......      ......
	testPlan(t, 6, 4,
		[][2]int{{1, 1}, {2, 1}, {3, 1}, {4, 1}, {3, 2}, {4, 2}},
		[][2]int{{3, 1}, {4, 1}, {3, 2}, {4, 2}})

	// Stable shapes survive.
	stable := [][2]int{{2, 1}, {3, 1}, {1, 2}, {2, 2}, {3, 2}, {1, 3}, {2, 3}, {3, 3}, {2, 4}, {3, 4}}
	testPlan(t, 5, 6, stable, stable)
}

func TestCleanupRemovesUnconnectedCells(t *testing.T) {
	testPlan(t, 3, 3, [][2]int{{1, 1}}, nil)
	testPlan(t, 4, 3, [][2]int{{1, 1}, {2, 1}}, nil)
	testPlan(t, 4, 4, [][2]int{{1, 1}, {2, 1}, {1, 2}}, nil)

	square := [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}}
	testPlan(t, 4, 4, square, square)
}

func TestGeneratorSatisfiesStoreInterface(t *testing.T) {
	var _ store.Generator = NewOverworld(0)
}
