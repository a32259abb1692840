package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamingPattern(t *testing.T) {
	for in, want := range map[string]NamingPattern{"": NameByIndex, "INDEX": NameByIndex, "label": NameByLabel, " content ": NameByContent} {
		got, err := ParseNamingPattern(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseNamingPattern("random")
	assert.Error(t, err)
}

func TestNamer(t *testing.T) {
	t.Run("index", func(t *testing.T) {
		n := newNamer(NameByIndex)
		assert.Equal(t, "qr_001", n.name(0, Row{Data: "x", Label: "ignored"}))
		assert.Equal(t, "qr_012", n.name(11, Row{Data: "y"}))
	})

	t.Run("label sanitized with fallback", func(t *testing.T) {
		n := newNamer(NameByLabel)
		assert.Equal(t, "My_Site_", n.name(0, Row{Label: "My Site!"}))
		assert.Equal(t, "qr_002", n.name(1, Row{Data: "no label"}))
	})

	t.Run("content truncated", func(t *testing.T) {
		n := newNamer(NameByContent)
		assert.Equal(t, "https___example_com_", n.name(0, Row{Data: "https://example.com/some/long/path"}))
	})

	t.Run("duplicates get suffixes", func(t *testing.T) {
		n := newNamer(NameByLabel)
		assert.Equal(t, "dup", n.name(0, Row{Label: "dup"}))
		assert.Equal(t, "dup_2", n.name(1, Row{Label: "dup"}))
		assert.Equal(t, "dup_3", n.name(2, Row{Label: "dup"}))
		assert.Equal(t, "dup_2_2", n.name(3, Row{Label: "dup_2"}))
	})
}
