// Package protocol speaks the line based engine protocol:
//
//	settings field_columns 7
//	settings field_rows 6
//	settings your_botid 1
//	update game round 1
//	update game field 0,0,0,0,0,0,0;...;0,0,0,1,0,0,0
//	action move 10000
//
// and answers every "action move" with "place_disc <column>".
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kappines/FourInARow/internal/game"
	"github.com/kappines/FourInARow/internal/grid"
	log "github.com/sirupsen/logrus"
)

const unknownCommand = "unknown command"

var ErrNoBotID = errors.New("bot id not set")

// Parser keeps the state announced by the engine between requests.
type Parser struct {
	grid   *grid.Grid
	botID  grid.Disc
	round  int
	logger log.FieldLogger
}

func NewParser(logger log.FieldLogger) *Parser {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Parser{grid: grid.New(0, 0), logger: logger}
}

// Run reads commands until r is exhausted. Malformed commands are logged
// and skipped; only read and write failures stop the loop.
func (p *Parser) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	out := bufio.NewWriter(w)
	for scanner.Scan() {
		reply, err := p.Handle(scanner.Text())
		if err != nil {
			p.logger.WithError(err).WithField("line", scanner.Text()).Warn("command failed")
			continue
		}
		if reply == "" {
			continue
		}
		if _, err := fmt.Fprintln(out, reply); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Handle applies one command and returns the reply to send, if any.
func (p *Parser) Handle(line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil
	}
	switch parts[0] {
	case "settings":
		if len(parts) < 3 {
			return "", fmt.Errorf("settings: want a key and a value, got %q", line)
		}
		return "", p.setting(parts[1], parts[2])
	case "update":
		if len(parts) < 4 || parts[1] != "game" {
			return "", fmt.Errorf("update: unsupported %q", line)
		}
		return "", p.update(parts[2], parts[3])
	case "action":
		if len(parts) < 2 || parts[1] != "move" {
			return "", fmt.Errorf("action: unsupported %q", line)
		}
		budget := ""
		if len(parts) > 2 {
			budget = parts[2]
		}
		return p.move(budget)
	}
	return unknownCommand, nil
}

func (p *Parser) setting(key, value string) error {
	switch key {
	case "field_columns", "field_rows", "your_botid":
	default:
		// timebank, time_per_move, player_names, your_bot
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("settings %s: %w", key, err)
	}
	switch key {
	case "field_columns":
		p.grid.SetColumns(n)
	case "field_rows":
		p.grid.SetRows(n)
	case "your_botid":
		id := grid.Disc(n)
		if !id.IsPlayer() {
			return fmt.Errorf("settings your_botid: %w", grid.ErrInvalidDisc)
		}
		p.botID = id
	}
	return nil
}

func (p *Parser) update(key, value string) error {
	switch key {
	case "field":
		if err := p.grid.Load(value); err != nil {
			return fmt.Errorf("update field: %w", err)
		}
	case "round":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("update round: %w", err)
		}
		p.round = n
	}
	return nil
}

func (p *Parser) move(budget string) (string, error) {
	if p.botID == grid.Empty {
		return "", ErrNoBotID
	}
	d, err := game.Decide(p.grid, p.botID, p.botID.Opponent())
	if err != nil {
		return "", err
	}
	p.logger.WithFields(log.Fields{
		"round":     p.round,
		"budget_ms": budget,
		"column":    d.Column,
		"tier":      d.Tier.String(),
		"primary":   d.Primary,
		"secondary": d.Secondary,
	}).Debug("move selected")
	return fmt.Sprintf("place_disc %d", d.Column), nil
}

// Grid exposes the last announced field.
func (p *Parser) Grid() *grid.Grid {
	return p.grid
}
