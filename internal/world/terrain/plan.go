package terrain

import "github.com/WiredSound/gemgame/internal/world/coords"

// category is the coarse terrain class a tile belongs to before decoration.
type category uint8

const (
	categoryGrass category = iota
	categoryDirt
	categoryWater
)

// plan holds one chunk's worth of categories during generation.
type plan struct {
	cells map[[2]int]category
}

func newPlan() *plan {
	return &plan{cells: map[[2]int]category{}}
}

func (p *plan) at(ox, oy int) category {
	return p.cells[[2]int{ox, oy}]
}

func (p *plan) set(ox, oy int, c category) {
	if c == categoryGrass {
		delete(p.cells, [2]int{ox, oy})
		return
	}
	p.cells[[2]int{ox, oy}] = c
}

// surroundingNotEqual reports, for each of the four neighbours, whether its
// category differs from c. Order: above, below, left, right.
func (p *plan) surroundingNotEqual(c category, ox, oy int) (above, below, left, right bool) {
	return p.at(ox, oy+1) != c,
		p.at(ox, oy-1) != c,
		p.at(ox-1, oy) != c,
		p.at(ox+1, oy) != c
}

// cleanup removes jutting and unconnected non-grass cells: any cell whose
// category differs from at least three of its four neighbours reverts to
// grass. Removal can expose new jutting cells, so matching neighbours are
// re-checked.
func (p *plan) cleanup() {
	for ox := 0; ox < coords.ChunkWidth; ox++ {
		for oy := 0; oy < coords.ChunkHeight; oy++ {
			p.cleanupAt(ox, oy)
		}
	}
}

func (p *plan) cleanupAt(ox, oy int) {
	c := p.at(ox, oy)
	if c == categoryGrass {
		return
	}

	above, below, left, right := p.surroundingNotEqual(c, ox, oy)
	differing := 0
	for _, d := range [4]bool{above, below, left, right} {
		if d {
			differing++
		}
	}
	if differing < 3 {
		return
	}

	p.set(ox, oy, categoryGrass)

	if !above {
		p.cleanupAt(ox, oy+1)
	}
	if !below {
		p.cleanupAt(ox, oy-1)
	}
	if !left {
		p.cleanupAt(ox-1, oy)
	}
	if !right {
		p.cleanupAt(ox+1, oy)
	}
}
