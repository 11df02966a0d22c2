package game

import (
	"errors"
	"fmt"

	"github.com/kappines/FourInARow/internal/grid"
	"github.com/kappines/FourInARow/internal/threat"
)

var (
	ErrNoMoves        = errors.New("no playable column")
	ErrInvalidPlayers = errors.New("self and opponent must be two distinct players")
)

// Tier ranks a candidate column; lower is better.
type Tier int

const (
	TierWin Tier = iota
	TierBlock
	TierForcedWin
	TierCounterForcedWin
	TierBuild
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierWin:
		return "win"
	case TierBlock:
		return "block"
	case TierForcedWin:
		return "forced-win"
	case TierCounterForcedWin:
		return "counter-forced-win"
	case TierBuild:
		return "build"
	case TierFallback:
		return "fallback"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Decision is the chosen column with the key it won on. Primary and
// Secondary are tier specific tiebreaks, lower is better.
type Decision struct {
	Column    int  `json:"column"`
	Tier      Tier `json:"tier"`
	Primary   int  `json:"primary"`
	Secondary int  `json:"secondary"`
}

func (d Decision) better(o Decision) bool {
	if d.Tier != o.Tier {
		return d.Tier < o.Tier
	}
	if d.Primary != o.Primary {
		return d.Primary < o.Primary
	}
	return d.Secondary < o.Secondary
}

// Bot plays one side of a game.
type Bot struct {
	Player grid.Disc
}

func NewBot(player grid.Disc) *Bot {
	return &Bot{Player: player}
}

func (b *Bot) ChooseMove(g *grid.Grid) (Decision, error) {
	return Decide(g, b.Player, b.Player.Opponent())
}

// SelectMove returns the column self should play. g is not modified.
func SelectMove(g *grid.Grid, self, opponent grid.Disc) (int, error) {
	d, err := Decide(g, self, opponent)
	if err != nil {
		return grid.NoRow, err
	}
	return d.Column, nil
}

// Decide scores every playable column once and keeps the best:
//  1. a column that wins right away (first one found),
//  2. a column the opponent would win in,
//  3. columns that hand the opponent a win are dropped,
//  4. forced wins for self, then forced wins the move takes away from the opponent,
//  5. the shortest line to four, most free neighbours first.
//
// Without any scored column the playable column nearest the centre is used,
// preferring columns steps 1-3 did not reject.
func Decide(g *grid.Grid, self, opponent grid.Disc) (Decision, error) {
	if !self.IsPlayer() || !opponent.IsPlayer() || self == opponent {
		return Decision{}, ErrInvalidPlayers
	}
	if g.IsFull() {
		return Decision{}, ErrNoMoves
	}

	best, found := Decision{}, false
	safe := make([]bool, g.Columns())
	consider := func(d Decision) {
		if !found || d.better(best) {
			best, found = d, true
		}
	}

	for c := 0; c < g.Columns(); c++ {
		if g.IsColumnFull(c) {
			continue
		}
		mine := g.Clone()
		r, err := mine.Place(c, self)
		if err != nil {
			continue
		}
		if threat.HasWin(mine, c, r, self) {
			consider(Decision{Column: c, Tier: TierWin})
			break
		}

		theirs := g.Clone()
		if _, err := theirs.Place(c, opponent); err != nil {
			continue
		}
		if threat.HasWin(theirs, c, r, opponent) {
			consider(Decision{Column: c, Tier: TierBlock})
			continue
		}

		if opensWin(mine, c, opponent) {
			continue
		}
		if _, ok := threat.UnavoidableWin(mine, c, r, opponent); ok {
			continue
		}
		safe[c] = true

		selfPlies, selfForced := threat.UnavoidableWin(mine, c, r, self)
		oppPlies, oppForced := threat.UnavoidableWin(theirs, c, r, opponent)
		// The opponent needs one more ply since self moves first.
		oppPlies++
		switch {
		case selfForced && (!oppForced || selfPlies < oppPlies):
			consider(Decision{Column: c, Tier: TierForcedWin, Primary: selfPlies})
		case oppForced:
			consider(Decision{Column: c, Tier: TierCounterForcedWin, Primary: oppPlies})
		default:
			turns := threat.MinTurnsToWin(mine, c, r, self)
			if turns == threat.Unreachable {
				continue
			}
			consider(Decision{
				Column:    c,
				Tier:      TierBuild,
				Primary:   turns,
				Secondary: -threat.FreeAdjacentSpaces(mine, c, r),
			})
		}
	}

	if found {
		return best, nil
	}
	// Rejected columns stay out of the fallback unless nothing else is left.
	column := centreColumn(g, func(c int) bool { return safe[c] })
	if column == grid.NoRow {
		column = centreColumn(g, nil)
	}
	return Decision{Column: column, Tier: TierFallback}, nil
}

// opensWin reports whether the opponent could win by dropping on top of
// the disc just played in column.
func opensWin(g *grid.Grid, column int, opponent grid.Disc) bool {
	if g.IsColumnFull(column) {
		return false
	}
	next := g.Clone()
	r, err := next.Place(column, opponent)
	return err == nil && threat.HasWin(next, column, r, opponent)
}

// centreColumn walks centre, centre+1, centre-1, centre+2, ... and returns
// the first playable column accepted by allow (any, if allow is nil), or
// grid.NoRow.
func centreColumn(g *grid.Grid, allow func(int) bool) int {
	centre := g.Columns() / 2
	for offset := 0; offset <= g.Columns(); offset++ {
		for _, c := range [2]int{centre + offset, centre - offset} {
			if c >= 0 && c < g.Columns() && !g.IsColumnFull(c) && (allow == nil || allow(c)) {
				return c
			}
		}
	}
	return grid.NoRow
}
