package game

import "sort"

// Grid size bounds. Sizes are always odd so the player has a true centre cell.
const (
	MinGridSize     = 5
	MaxGridSize     = 21
	DefaultGridSize = 7
)

// Grid is a fixed-size square board addressed by cell index.
// Index i maps to x = i mod Size, y = floor(i / Size).
type Grid struct {
	Size int
}

// NewGrid creates a grid clamped to [MinGridSize, MaxGridSize] and forced odd.
func NewGrid(size int) Grid {
	return Grid{Size: ClampGridSize(size, MinGridSize, MaxGridSize)}
}

// ClampGridSize clamps size into [min, max] and rounds even sizes down.
func ClampGridSize(size, min, max int) int {
	if size < min {
		size = min
	}
	if size > max {
		size = max
	}
	if size%2 == 0 {
		if size-1 >= min {
			size--
		} else {
			size++
		}
	}
	return size
}

// CellCount returns N².
func (g Grid) CellCount() int {
	return g.Size * g.Size
}

// IndexToCoord converts a cell index to (x, y).
func (g Grid) IndexToCoord(i int) (x, y int) {
	return i % g.Size, i / g.Size
}

// CoordToIndex converts (x, y) to a cell index. Callers check InBounds first.
func (g Grid) CoordToIndex(x, y int) int {
	return y*g.Size + x
}

// InBounds reports whether (x, y) lies on the board.
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Size && y >= 0 && y < g.Size
}

// Valid reports whether i is a cell index of this grid.
func (g Grid) Valid(i int) bool {
	return i >= 0 && i < g.CellCount()
}

// Center returns the index of the middle cell.
func (g Grid) Center() int {
	c := g.Size / 2
	return g.CoordToIndex(c, c)
}

// Cross returns the distinct cells of the origin's row and column (2N-1 cells).
func (g Grid) Cross(origin int) []int {
	ox, oy := g.IndexToCoord(origin)
	cells := make([]int, 0, 2*g.Size-1)
	for x := 0; x < g.Size; x++ {
		cells = append(cells, g.CoordToIndex(x, oy))
	}
	for y := 0; y < g.Size; y++ {
		if y == oy {
			continue
		}
		cells = append(cells, g.CoordToIndex(ox, y))
	}
	sort.Ints(cells)
	return cells
}

// Diagonals returns every in-bounds cell with |dx| == |dy| > 0 from origin.
func (g Grid) Diagonals(origin int) []int {
	ox, oy := g.IndexToCoord(origin)
	cells := make([]int, 0, 4*(g.Size-1))
	for i := 1; i < g.Size; i++ {
		for _, d := range [4][2]int{{-i, -i}, {i, -i}, {-i, i}, {i, i}} {
			x, y := ox+d[0], oy+d[1]
			if g.InBounds(x, y) {
				cells = append(cells, g.CoordToIndex(x, y))
			}
		}
	}
	sort.Ints(cells)
	return cells
}

// Ring returns the in-bounds cells at Manhattan distance d from origin.
func (g Grid) Ring(origin, d int) []int {
	ox, oy := g.IndexToCoord(origin)
	if d == 0 {
		return []int{origin}
	}
	cells := make([]int, 0, 4*d)
	for dx := -d; dx <= d; dx++ {
		rest := d - abs(dx)
		x := ox + dx
		if g.InBounds(x, oy-rest) {
			cells = append(cells, g.CoordToIndex(x, oy-rest))
		}
		if rest != 0 && g.InBounds(x, oy+rest) {
			cells = append(cells, g.CoordToIndex(x, oy+rest))
		}
	}
	sort.Ints(cells)
	return cells
}

// Neighbors returns the orthogonal neighbours in left, right, up, down order.
func (g Grid) Neighbors(i int) []int {
	x, y := g.IndexToCoord(i)
	out := make([]int, 0, 4)
	if x > 0 {
		out = append(out, i-1)
	}
	if x < g.Size-1 {
		out = append(out, i+1)
	}
	if y > 0 {
		out = append(out, i-g.Size)
	}
	if y < g.Size-1 {
		out = append(out, i+g.Size)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
