package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceStacksFromBottom(t *testing.T) {
	g := New(7, 6)

	row, err := g.Place(3, P1)
	require.NoError(t, err)
	assert.Equal(t, 5, row)

	row, err = g.Place(3, P1)
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	assert.Equal(t, P1, g.At(3, 5))
	assert.Equal(t, P1, g.At(3, 4))
	assert.Equal(t, Empty, g.At(3, 3))
	assert.Equal(t, 3, g.LowestFreeRow(3))
}

func TestPlaceFailures(t *testing.T) {
	g := New(2, 2)
	_, err := g.Place(0, P1)
	require.NoError(t, err)
	_, err = g.Place(0, P2)
	require.NoError(t, err)
	before := g.String()

	_, err = g.Place(0, P1)
	assert.ErrorIs(t, err, ErrColumnFull)

	_, err = g.Place(2, P1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = g.Place(-1, P1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = g.Place(1, Empty)
	assert.ErrorIs(t, err, ErrInvalidDisc)

	assert.Equal(t, before, g.String())
}

func TestLowestFreeRowSentinel(t *testing.T) {
	g := New(3, 1)
	_, err := g.Place(1, P2)
	require.NoError(t, err)

	assert.Equal(t, 0, g.LowestFreeRow(0))
	assert.Equal(t, NoRow, g.LowestFreeRow(1))
	assert.Equal(t, NoRow, g.LowestFreeRow(3))
	assert.Equal(t, NoRow, g.LowestFreeRow(-1))
}

func TestCloneIsIndependent(t *testing.T) {
	g := New(7, 6)
	_, err := g.Place(0, P1)
	require.NoError(t, err)

	c := g.Clone()
	_, err = c.Place(0, P2)
	require.NoError(t, err)
	_, err = c.Place(6, P2)
	require.NoError(t, err)

	assert.Equal(t, Empty, g.At(0, 4))
	assert.Equal(t, Empty, g.At(6, 5))
	assert.Equal(t, P2, c.At(0, 4))
}

func TestFullness(t *testing.T) {
	g := New(2, 2)
	assert.False(t, g.IsFull())
	for c := 0; c < 2; c++ {
		for i := 0; i < 2; i++ {
			_, err := g.Place(c, P1)
			require.NoError(t, err)
		}
		assert.True(t, g.IsColumnFull(c))
	}
	assert.True(t, g.IsFull())

	g.Clear()
	assert.False(t, g.IsFull())
	assert.Equal(t, Empty, g.At(1, 1))
}

func TestResizeClears(t *testing.T) {
	g := New(7, 6)
	_, err := g.Place(2, P1)
	require.NoError(t, err)

	g.SetColumns(9)
	assert.Equal(t, 9, g.Columns())
	assert.Equal(t, 6, g.Rows())
	assert.Equal(t, Empty, g.At(2, 5))

	g.SetRows(8)
	assert.Equal(t, 8, g.Rows())
	assert.Equal(t, 7, g.LowestFreeRow(8))
}

func TestAtPanicsOutsideGrid(t *testing.T) {
	g := New(7, 6)
	assert.Panics(t, func() { g.At(7, 0) })
	assert.Panics(t, func() { g.At(0, -1) })
}

func TestLoadAndString(t *testing.T) {
	g := New(4, 3)
	field := "0,0,0,0;0,2,0,0;1,1,0,2"
	require.NoError(t, g.Load(field))

	assert.Equal(t, P1, g.At(0, 2))
	assert.Equal(t, P2, g.At(1, 1))
	assert.Equal(t, P2, g.At(3, 2))
	assert.Equal(t, 1, g.LowestFreeRow(0))
	assert.Equal(t, field, g.String())
}

func TestLoadRejectsBadFields(t *testing.T) {
	g := New(2, 2)
	require.NoError(t, g.Load("0,0;1,2"))

	cases := map[string]error{
		"0,0,0":   ErrMalformedField,
		"0,x;1,2": ErrMalformedField,
		"0,0;3,1": ErrInvalidDisc,
		"1,0;0,0": ErrFloatingDisc,
	}
	for data, want := range cases {
		t.Run(data, func(t *testing.T) {
			assert.ErrorIs(t, g.Load(data), want)
			assert.Equal(t, "0,0;1,2", g.String())
		})
	}
}

func TestOpponent(t *testing.T) {
	assert.Equal(t, P2, P1.Opponent())
	assert.Equal(t, P1, P2.Opponent())
	assert.Equal(t, Empty, Empty.Opponent())
}
