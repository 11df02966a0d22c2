// Package threat answers questions about the four lines through a single
// cell: is there a win, how far is the nearest one, and is one forced.
// Every function reads the grid and never modifies it.
package threat

import (
	"fmt"
	"math"

	"github.com/kappines/FourInARow/internal/grid"
)

// ToWin is the run length that wins the game.
const ToWin = 4

// Unreachable is returned by TurnsToWin when no four-cell window through
// the point can still be completed.
const Unreachable = math.MaxInt32

type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
	Ascending  // row decreases as column increases
	Descending // row increases as column increases
)

var Orientations = [...]Orientation{Vertical, Horizontal, Ascending, Descending}

func (o Orientation) String() string {
	switch o {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	}
	return fmt.Sprintf("orientation(%d)", int(o))
}

func (o Orientation) delta() (dc, dr int) {
	switch o {
	case Vertical:
		return 0, 1
	case Horizontal:
		return 1, 0
	case Ascending:
		return 1, -1
	default:
		return 1, 1
	}
}

type point struct {
	column, row int
}

// line returns the maximal in-bounds run of cells along o through
// (column, row), ordered from one end to the other, together with the
// index of (column, row) inside it.
func line(g *grid.Grid, column, row int, o Orientation) ([]point, int) {
	dc, dr := o.delta()
	c, r := column, row
	for g.Contains(c-dc, r-dr) {
		c -= dc
		r -= dr
	}
	var cells []point
	at := 0
	for ; g.Contains(c, r); c, r = c+dc, r+dr {
		if c == column && r == row {
			at = len(cells)
		}
		cells = append(cells, point{c, r})
	}
	return cells, at
}

func mustContain(g *grid.Grid, column, row int) {
	if !g.Contains(column, row) {
		panic(fmt.Sprintf("threat: point (%d,%d) outside %dx%d grid", column, row, g.Columns(), g.Rows()))
	}
}

// HasWin reports whether player owns ToWin consecutive cells on any line
// through (column, row).
func HasWin(g *grid.Grid, column, row int, player grid.Disc) bool {
	mustContain(g, column, row)
	for _, o := range Orientations {
		if longestRun(g, column, row, o, player) >= ToWin {
			return true
		}
	}
	return false
}

func longestRun(g *grid.Grid, column, row int, o Orientation, player grid.Disc) int {
	cells, _ := line(g, column, row, o)
	run, best := 0, 0
	for _, p := range cells {
		if g.At(p.column, p.row) == player {
			run++
			best = max(best, run)
		} else {
			run = 0
		}
	}
	return best
}

// TurnsToWin returns the smallest number of discs that still have to be
// dropped before player completes a four-cell window along o that contains
// (column, row). Discs needed underneath an empty target cell are counted
// too, since gravity makes them unavoidable. Windows holding an opponent
// disc are ignored; Unreachable is returned when none is left.
// Empty cells sharing a column share their fillers, so a vertical window
// costs the distance to its highest empty cell rather than the sum over
// its empty cells.
func TurnsToWin(g *grid.Grid, column, row int, player grid.Disc, o Orientation) int {
	mustContain(g, column, row)
	cells, at := line(g, column, row, o)
	best := Unreachable
	for start := max(0, at-ToWin+1); start <= at && start+ToWin <= len(cells); start++ {
		if cost, ok := windowCost(g, cells[start:start+ToWin], player); ok {
			best = min(best, cost)
		}
	}
	return best
}

// windowCost sums, per column, the discs needed to reach the highest empty
// target cell the window has in that column.
func windowCost(g *grid.Grid, window []point, player grid.Disc) (int, bool) {
	var need [ToWin]struct{ column, discs int }
	n := 0
	for _, p := range window {
		switch g.At(p.column, p.row) {
		case player:
			continue
		case grid.Empty:
		default:
			return 0, false
		}
		discs := g.LowestFreeRow(p.column) - p.row + 1
		merged := false
		for i := 0; i < n; i++ {
			if need[i].column == p.column {
				need[i].discs = max(need[i].discs, discs)
				merged = true
			}
		}
		if !merged {
			need[n].column, need[n].discs = p.column, discs
			n++
		}
	}
	cost := 0
	for i := 0; i < n; i++ {
		cost += need[i].discs
	}
	return cost, true
}

// MinTurnsToWin is TurnsToWin minimized over every orientation.
func MinTurnsToWin(g *grid.Grid, column, row int, player grid.Disc) int {
	best := Unreachable
	for _, o := range Orientations {
		best = min(best, TurnsToWin(g, column, row, player, o))
	}
	return best
}

// FreeAdjacentSpaces counts the empty cells touching (column, row): the one
// above it and up to three in each neighbouring column.
func FreeAdjacentSpaces(g *grid.Grid, column, row int) int {
	mustContain(g, column, row)
	free := 0
	if row > 0 && g.At(column, row-1) == grid.Empty {
		free++
	}
	for _, c := range [2]int{column - 1, column + 1} {
		for r := row - 1; r <= row+1; r++ {
			if g.Contains(c, r) && g.At(c, r) == grid.Empty {
				free++
			}
		}
	}
	return free
}
