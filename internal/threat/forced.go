package threat

import "github.com/kappines/FourInARow/internal/grid"

// UnavoidableWin reports whether player holds a win the opponent cannot
// stop by blocking one column, and if so how many plies it takes to
// complete. Two shapes are recognised:
//
//   - split: at least two columns each win immediately. The opponent can
//     block one, player plays the other: 2 plies.
//   - stacked: after k discs from either side land in one column, the next
//     two cells of that column both win for player. Whoever fills the
//     column only brings player closer to one of them: 2(k+1) plies.
//
// The whole board is scanned; (column, row) only has to lie on the grid.
// The smallest count wins when both shapes are present.
func UnavoidableWin(g *grid.Grid, column, row int, player grid.Disc) (int, bool) {
	mustContain(g, column, row)
	plies := Unreachable
	if p, ok := stackedThreat(g, player); ok {
		plies = min(plies, p)
	}
	if p, ok := splitThreat(g, player); ok {
		plies = min(plies, p)
	}
	return plies, plies != Unreachable
}

// WinningColumns lists the columns where player wins with a single drop.
func WinningColumns(g *grid.Grid, player grid.Disc) []int {
	var cols []int
	for c := 0; c < g.Columns(); c++ {
		if g.IsColumnFull(c) {
			continue
		}
		next := g.Clone()
		r, err := next.Place(c, player)
		if err == nil && HasWin(next, c, r, player) {
			cols = append(cols, c)
		}
	}
	return cols
}

func splitThreat(g *grid.Grid, player grid.Disc) (int, bool) {
	if len(WinningColumns(g, player)) >= 2 {
		return 2, true
	}
	return 0, false
}

func stackedThreat(g *grid.Grid, player grid.Disc) (int, bool) {
	opponent := player.Opponent()
	best := Unreachable
	for c := 0; c < g.Columns(); c++ {
		free := g.LowestFreeRow(c)
		// r is the lower of the two winning cells; r-1 must exist.
		for r := free; r >= 1; r-- {
			filled := g.Clone()
			for i := 0; i < free-r; i++ {
				_, _ = filled.Place(c, opponent)
			}
			if !winsAt(filled, c, player) {
				continue
			}
			above := filled.Clone()
			_, _ = above.Place(c, opponent)
			if winsAt(above, c, player) {
				best = min(best, 2*(free-r+1))
			}
		}
	}
	return best, best != Unreachable
}

// winsAt drops player into column on a copy of g and reports a win.
func winsAt(g *grid.Grid, column int, player grid.Disc) bool {
	next := g.Clone()
	r, err := next.Place(column, player)
	return err == nil && HasWin(next, column, r, player)
}
