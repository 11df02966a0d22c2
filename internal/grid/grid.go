package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Disc is the content of a single cell.
type Disc int

const (
	Empty Disc = 0
	P1    Disc = 1
	P2    Disc = 2
)

// NoRow is returned by LowestFreeRow when a column cannot take another disc.
const NoRow = -1

var (
	ErrColumnFull     = errors.New("column is full")
	ErrOutOfBounds    = errors.New("move out of bounds")
	ErrInvalidDisc    = errors.New("invalid disc")
	ErrMalformedField = errors.New("malformed field")
	ErrFloatingDisc   = errors.New("disc above an empty cell")
)

// Opponent returns the other player. Empty has no opponent.
func (d Disc) Opponent() Disc {
	switch d {
	case P1:
		return P2
	case P2:
		return P1
	}
	return Empty
}

func (d Disc) IsPlayer() bool {
	return d == P1 || d == P2
}

// Grid is a column-major board. Row 0 is the top, Rows()-1 the bottom.
type Grid struct {
	columns int
	rows    int
	cells   []Disc
}

func New(columns, rows int) *Grid {
	if columns < 0 {
		columns = 0
	}
	if rows < 0 {
		rows = 0
	}
	return &Grid{columns: columns, rows: rows, cells: make([]Disc, columns*rows)}
}

func (g *Grid) Columns() int { return g.columns }
func (g *Grid) Rows() int    { return g.rows }

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	cells := make([]Disc, len(g.cells))
	copy(cells, g.cells)
	return &Grid{columns: g.columns, rows: g.rows, cells: cells}
}

// SetColumns changes the width. The board is cleared.
func (g *Grid) SetColumns(columns int) {
	*g = *New(columns, g.rows)
}

// SetRows changes the height. The board is cleared.
func (g *Grid) SetRows(rows int) {
	*g = *New(g.columns, rows)
}

func (g *Grid) Contains(column, row int) bool {
	return column >= 0 && column < g.columns && row >= 0 && row < g.rows
}

// At returns the disc at (column, row). It panics on coordinates outside the grid.
func (g *Grid) At(column, row int) Disc {
	if !g.Contains(column, row) {
		panic(fmt.Sprintf("grid: cell (%d,%d) outside %dx%d", column, row, g.columns, g.rows))
	}
	return g.cells[column*g.rows+row]
}

func (g *Grid) set(column, row int, d Disc) {
	g.cells[column*g.rows+row] = d
}

// LowestFreeRow returns the row a disc dropped in column would land on,
// or NoRow if the column is full or does not exist.
func (g *Grid) LowestFreeRow(column int) int {
	if column < 0 || column >= g.columns {
		return NoRow
	}
	for row := g.rows - 1; row >= 0; row-- {
		if g.At(column, row) == Empty {
			return row
		}
	}
	return NoRow
}

// Place drops d into column and returns the row it landed on.
// The grid is unchanged when an error is returned.
func (g *Grid) Place(column int, d Disc) (int, error) {
	if !d.IsPlayer() {
		return NoRow, ErrInvalidDisc
	}
	if column < 0 || column >= g.columns {
		return NoRow, ErrOutOfBounds
	}
	row := g.LowestFreeRow(column)
	if row == NoRow {
		return NoRow, ErrColumnFull
	}
	g.set(column, row, d)
	return row, nil
}

func (g *Grid) IsColumnFull(column int) bool {
	return g.rows == 0 || g.At(column, 0) != Empty
}

func (g *Grid) IsFull() bool {
	for c := 0; c < g.columns; c++ {
		if !g.IsColumnFull(c) {
			return false
		}
	}
	return true
}

func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = Empty
	}
}

// Load replaces the content with a serialized field: rows from top to
// bottom separated by ';', cells separated by ','. The dimensions must
// already match. On error the grid is left untouched.
func (g *Grid) Load(data string) error {
	parts := strings.Split(strings.ReplaceAll(strings.TrimSpace(data), ";", ","), ",")
	if len(parts) != g.columns*g.rows {
		return fmt.Errorf("%w: got %d cells, want %d", ErrMalformedField, len(parts), g.columns*g.rows)
	}
	next := New(g.columns, g.rows)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedField, err)
		}
		d := Disc(v)
		if d != Empty && !d.IsPlayer() {
			return fmt.Errorf("%w: %d", ErrInvalidDisc, v)
		}
		next.set(i%g.columns, i/g.columns, d)
	}
	for c := 0; c < next.columns; c++ {
		for r := 1; r < next.rows; r++ {
			if next.At(c, r-1) != Empty && next.At(c, r) == Empty {
				return fmt.Errorf("%w: column %d row %d", ErrFloatingDisc, c, r-1)
			}
		}
	}
	copy(g.cells, next.cells)
	return nil
}

// String serializes the grid in the format accepted by Load.
func (g *Grid) String() string {
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			sb.WriteByte(';')
		}
		for c := 0; c < g.columns; c++ {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(int(g.At(c, r))))
		}
	}
	return sb.String()
}
