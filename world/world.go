// Package world models the immutable grid the agents move through.
package world

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrMalformedGrid   = errors.New("malformed grid")
	ErrUnreachableGoal = errors.New("goal is not reachable from start")
	ErrOutOfBounds     = errors.New("position is out of the grid")
)

// World is a fixed-size grid with a fixed neighbor relation.
// It is read-only after construction and safe for concurrent readers.
type World struct {
	height       int
	width        int
	cells        []Cell
	connectivity Connectivity
	component    []int // connected component label per cell, -1 when not walkable
	minCost      float64
}

// New validates cells and builds a World. Rows must all have the same length,
// every cell must carry its own position and a positive cost.
func New(cells [][]Cell, conn Connectivity) (*World, error) {
	if conn != Four && conn != Eight {
		return nil, fmt.Errorf("%w: connectivity must be 4 or 8, got %d", ErrMalformedGrid, conn)
	}
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrMalformedGrid)
	}

	w := &World{
		height:       len(cells),
		width:        len(cells[0]),
		connectivity: conn,
		minCost:      math.Inf(1),
	}
	w.cells = make([]Cell, 0, w.height*w.width)
	for r, row := range cells {
		if len(row) != w.width {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformedGrid, r, len(row), w.width)
		}
		for c, cell := range row {
			if cell.Pos != (Pos{Row: r, Col: c}) {
				return nil, fmt.Errorf("%w: cell at (%d,%d) claims position %s", ErrMalformedGrid, r, c, cell.Pos)
			}
			if cell.Cost <= 0 || math.IsNaN(cell.Cost) || math.IsInf(cell.Cost, 0) {
				return nil, fmt.Errorf("%w: cell %s has invalid cost %v", ErrMalformedGrid, cell.Pos, cell.Cost)
			}
			if cell.Walkable && cell.Cost < w.minCost {
				w.minCost = cell.Cost
			}
			w.cells = append(w.cells, cell)
		}
	}
	if math.IsInf(w.minCost, 1) {
		w.minCost = 1
	}

	w.labelComponents()
	return w, nil
}

func (w *World) Width() int                 { return w.width }
func (w *World) Height() int                { return w.height }
func (w *World) Connectivity() Connectivity { return w.connectivity }

// MinCost is the cheapest cost of entering any walkable cell.
// Heuristics are scaled by it to stay admissible.
func (w *World) MinCost() float64 { return w.minCost }

// InBound reports whether p lies on the grid.
func (w *World) InBound(p Pos) bool {
	return p.Row >= 0 && p.Row < w.height && p.Col >= 0 && p.Col < w.width
}

func (w *World) index(p Pos) int {
	return p.Row*w.width + p.Col
}

// Cell returns a copy of the cell at p.
func (w *World) Cell(p Pos) (Cell, bool) {
	if !w.InBound(p) {
		return Cell{}, false
	}
	return w.cells[w.index(p)], true
}

// Walkable reports whether p is on the grid and can be entered.
func (w *World) Walkable(p Pos) bool {
	return w.InBound(p) && w.cells[w.index(p)].Walkable
}

// Cells returns the positions of every cell that satisfies keep, in row-major order.
func (w *World) Cells(keep func(Cell) bool) []Pos {
	var out []Pos
	for _, c := range w.cells {
		if keep(c) {
			out = append(out, c.Pos)
		}
	}
	return out
}

// Neighbors returns the walkable cells reachable from p in one move, in a
// deterministic order. A move between two different buildings is only legal
// when one side of it is the bridge, and diagonal moves never cut a corner.
func (w *World) Neighbors(p Pos) []Pos {
	if !w.Walkable(p) {
		return nil
	}
	from := w.cells[w.index(p)]

	out := make([]Pos, 0, int(w.connectivity))
	for _, d := range orthogonal {
		if n := (Pos{Row: p.Row + d.dRow, Col: p.Col + d.dCol}); w.canMove(from, n) {
			out = append(out, n)
		}
	}
	if w.connectivity == Eight {
		for _, d := range diagonal {
			n := Pos{Row: p.Row + d.dRow, Col: p.Col + d.dCol}
			if !w.canMove(from, n) {
				continue
			}
			if !w.Walkable(Pos{Row: p.Row + d.dRow, Col: p.Col}) || !w.Walkable(Pos{Row: p.Row, Col: p.Col + d.dCol}) {
				continue
			}
			out = append(out, n)
		}
	}
	return out
}

func (w *World) canMove(from Cell, to Pos) bool {
	if !w.Walkable(to) {
		return false
	}
	target := w.cells[w.index(to)]
	if from.Building == target.Building {
		return true
	}
	return from.Building == BuildingBridge || target.Building == BuildingBridge
}

// Adjacent reports whether b is a legal single move away from a.
func (w *World) Adjacent(a, b Pos) bool {
	for _, n := range w.Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}

// Cost is the price of moving from one cell into a neighboring one.
func (w *World) Cost(from, to Pos) float64 {
	c := w.cells[w.index(to)].Cost
	if from.Row != to.Row && from.Col != to.Col {
		return c * math.Sqrt2
	}
	return c
}

// PathCost sums the move costs along path.
func (w *World) PathCost(path []Pos) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += w.Cost(path[i-1], path[i])
	}
	return total
}

// labelComponents runs one breadth-first traversal per connected region so
// reachability queries afterwards are a label comparison.
func (w *World) labelComponents() {
	w.component = make([]int, len(w.cells))
	for i := range w.component {
		w.component[i] = -1
	}

	label := 0
	for i, c := range w.cells {
		if !c.Walkable || w.component[i] != -1 {
			continue
		}
		w.component[i] = label
		queue := []Pos{c.Pos}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range w.Neighbors(cur) {
				if idx := w.index(n); w.component[idx] == -1 {
					w.component[idx] = label
					queue = append(queue, n)
				}
			}
		}
		label++
	}
}

// IsGoalReachable reports whether goal can be reached from start.
func (w *World) IsGoalReachable(start, goal Pos) bool {
	if !w.Walkable(start) || !w.Walkable(goal) {
		return false
	}
	return w.component[w.index(start)] == w.component[w.index(goal)]
}

// RequireReachable fails with ErrUnreachableGoal when goal cannot be reached from start.
func (w *World) RequireReachable(start, goal Pos) error {
	if !w.InBound(start) || !w.InBound(goal) {
		return fmt.Errorf("%w: %s -> %s", ErrOutOfBounds, start, goal)
	}
	if !w.IsGoalReachable(start, goal) {
		return fmt.Errorf("%w: %s -> %s", ErrUnreachableGoal, start, goal)
	}
	return nil
}

// Without returns a copy of w in which the given cells cannot be entered.
// The receiver is left untouched.
func (w *World) Without(blocked ...Pos) *World {
	cp := &World{
		height:       w.height,
		width:        w.width,
		cells:        make([]Cell, len(w.cells)),
		connectivity: w.connectivity,
		minCost:      w.minCost,
	}
	copy(cp.cells, w.cells)
	for _, p := range blocked {
		if cp.InBound(p) {
			cp.cells[cp.index(p)].Walkable = false
		}
	}
	cp.labelComponents()
	return cp
}

// Parse builds a world from rows of symbols: '.' empty, '#' wall, '=' bridge,
// 'A' angry, 'P' chair and 'O' office. Blank lines and surrounding spaces are
// ignored. Every parsed cell has unit cost and no building.
func Parse(layout string, conn Connectivity) (*World, error) {
	var rows [][]Cell
	for _, line := range strings.Split(layout, "\n") {
		line = strings.ReplaceAll(strings.TrimSpace(line), " ", "")
		if line == "" {
			continue
		}
		r := len(rows)
		row := make([]Cell, len(line))
		for c := 0; c < len(line); c++ {
			kind, ok := kindFromSymbol(line[c])
			if !ok {
				return nil, fmt.Errorf("%w: unknown symbol %q at (%d,%d)", ErrMalformedGrid, line[c], r, c)
			}
			row[c] = Cell{
				Pos:      Pos{Row: r, Col: c},
				Walkable: kind != KindWall,
				Kind:     kind,
				Cost:     1,
			}
		}
		rows = append(rows, row)
	}
	return New(rows, conn)
}

// String renders the grid with one symbol per cell. Cells outside every
// building of a generated world are drawn as blanks.
func (w *World) String() string {
	var sb strings.Builder
	for r := 0; r < w.height; r++ {
		for c := 0; c < w.width; c++ {
			cell := w.cells[r*w.width+c]
			if c > 0 {
				sb.WriteByte(' ')
			}
			if !cell.Walkable && cell.Kind != KindWall {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteByte(cell.Kind.Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
