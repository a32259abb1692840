package qrcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelM, "l": LevelL, "M": LevelM, " q ": LevelQ, "h": LevelH} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("X")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestNewMatrix(t *testing.T) {
	m, err := NewMatrix([][]bool{{true, false}, {false, true}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Size())
	assert.True(t, m.Dark(0, 0))
	assert.False(t, m.Dark(0, 1))
	assert.False(t, m.Dark(5, 5))

	_, err = NewMatrix(nil)
	assert.Error(t, err)
	_, err = NewMatrix([][]bool{{true, false}, {true}})
	assert.Error(t, err)
}

func TestSkipProvider_Matrix(t *testing.T) {
	p := NewSkipProvider()

	m, err := p.Matrix("https://example.com", LevelM)
	require.NoError(t, err)
	// version 2 is 25x25; any valid version is 17+4v
	assert.Equal(t, 0, (m.Size()-17)%4)
	assert.GreaterOrEqual(t, m.Size(), 21)

	// finder pattern: the outer ring of the top-left block is dark
	for i := 0; i < 7; i++ {
		assert.True(t, m.Dark(0, i))
		assert.True(t, m.Dark(i, 0))
	}

	high, err := p.Matrix("https://example.com", LevelH)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, high.Size(), m.Size())

	_, err = p.Matrix("", LevelM)
	assert.Error(t, err)

	_, err = p.Matrix(strings.Repeat("x", 8000), LevelH)
	assert.Error(t, err)
}
