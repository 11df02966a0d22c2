package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kappines/FourInARow/internal/grid"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = `settings timebank 10000
settings time_per_move 500
settings player_names player1,player2
settings your_bot player1
settings your_botid 1
settings field_columns 7
settings field_rows 6

update game round 7
update game field 0,0,0,0,0,0,0;0,0,0,0,0,0,0;0,0,0,0,0,0,0;1,0,0,0,0,0,2;1,0,0,0,0,0,2;1,0,0,0,0,0,2
action move 10000
hello there
`

func TestRunAnswersMoves(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	p := NewParser(logger)

	var out bytes.Buffer
	require.NoError(t, p.Run(strings.NewReader(session), &out))

	assert.Equal(t, "place_disc 0\nunknown command\n", out.String())
	assert.Equal(t, 7, p.Grid().Columns())
	assert.Equal(t, 6, p.Grid().Rows())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "move selected", entry.Message)
	assert.Equal(t, "win", entry.Data["tier"])
	assert.Equal(t, 7, entry.Data["round"])
}

func TestRunSkipsBadCommands(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewParser(logger)

	in := strings.Join([]string{
		"action move 100",
		"settings your_botid 3",
		"settings your_botid 2",
		"settings field_columns x",
		"settings field_columns 4",
		"settings field_rows 4",
		"update game field 0,0,0",
		"update game field 0,0,0,0;0,0,0,0;0,0,0,0;0,1,1,1",
		"action move 100",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, p.Run(strings.NewReader(in), &out))

	// P1 wins in column 0 next; P2 must block it.
	assert.Equal(t, "place_disc 0\n", out.String())

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 4, warnings)
}

func TestHandleResizeClearsField(t *testing.T) {
	p := NewParser(nil)
	for _, line := range []string{"settings field_columns 2", "settings field_rows 2", "update game field 0,0;1,2"} {
		_, err := p.Handle(line)
		require.NoError(t, err)
	}
	assert.Equal(t, grid.P1, p.Grid().At(0, 1))

	_, err := p.Handle("settings field_rows 3")
	require.NoError(t, err)
	assert.Equal(t, grid.Empty, p.Grid().At(0, 1))
}

func TestHandleMoveWithoutBotID(t *testing.T) {
	p := NewParser(nil)
	_, err := p.Handle("action move 10")
	assert.ErrorIs(t, err, ErrNoBotID)
}

func TestHandleMoveOnFullField(t *testing.T) {
	p := NewParser(nil)
	for _, line := range []string{"settings your_botid 2", "settings field_columns 1", "settings field_rows 1", "update game field 1"} {
		_, err := p.Handle(line)
		require.NoError(t, err)
	}
	reply, err := p.Handle("action move 10")
	assert.Error(t, err)
	assert.Empty(t, reply)
}
