package grid

import (
	"math/rand/v2"
	"sync"
)

const (
	Rows = 8
	Cols = 8
	Size = Rows * Cols

	// DefaultDensity is the chance a cell is switched on by Randomize
	DefaultDensity = 0.15
)

// Grid is the fixed 8x8 note matrix. Row 0 is the top (highest pitch),
// columns are time steps. Safe for concurrent use.
type Grid struct {
	mu    sync.RWMutex
	cells [Size]bool
}

// New returns a grid with every cell inactive
func New() *Grid {
	return &Grid{}
}

func inRange(row, col int) bool {
	return row >= 0 && row < Rows && col >= 0 && col < Cols
}

// Index returns the flat cell index for (row, col)
func Index(row, col int) int {
	return row*Cols + col
}

// Toggle flips a cell and returns its new state. Out of range is a no-op.
func (g *Grid) Toggle(row, col int) bool {
	if !inRange(row, col) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	i := Index(row, col)
	g.cells[i] = !g.cells[i]
	return g.cells[i]
}

// Set assigns a single cell
func (g *Grid) Set(row, col int, active bool) {
	if !inRange(row, col) {
		return
	}
	g.mu.Lock()
	g.cells[Index(row, col)] = active
	g.mu.Unlock()
}

// Active reports whether a cell is on
func (g *Grid) Active(row, col int) bool {
	if !inRange(row, col) {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[Index(row, col)]
}

// SetAll assigns every cell from pred, visiting rows top to bottom
func (g *Grid) SetAll(pred func(row, col int) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			g.cells[Index(row, col)] = pred(row, col)
		}
	}
}

// Clear switches every cell off
func (g *Grid) Clear() {
	g.mu.Lock()
	g.cells = [Size]bool{}
	g.mu.Unlock()
}

// Randomize switches each cell on independently with probability p
func (g *Grid) Randomize(r *rand.Rand, p float64) {
	g.SetAll(func(int, int) bool {
		return r.Float64() < p
	})
}

// Column returns the state of one time step, top row first
func (g *Grid) Column(col int) [Rows]bool {
	var out [Rows]bool
	if col < 0 || col >= Cols {
		return out
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for row := 0; row < Rows; row++ {
		out[row] = g.cells[Index(row, col)]
	}
	return out
}

// Snapshot copies the whole grid as [row][col]
func (g *Grid) Snapshot() [Rows][Cols]bool {
	var out [Rows][Cols]bool
	g.mu.RLock()
	defer g.mu.RUnlock()
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			out[row][col] = g.cells[Index(row, col)]
		}
	}
	return out
}

// Count returns how many cells are active
func (g *Grid) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}
