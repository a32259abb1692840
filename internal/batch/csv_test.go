package batch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	in := "\ufeffdata,label\nhttps://example.com,Home\n\n  hello  \n,orphan label\n\"a,b\",quoted\n"

	rows, err := ParseCSV(strings.NewReader(in), 0)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Data: "https://example.com", Label: "Home"},
		{Data: "hello"},
		{Data: "", Label: "orphan label"},
		{Data: "a,b", Label: "quoted"},
	}, rows)
}

func TestParseCSV_NoHeader(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader("one\ntwo,2\n"), 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "one", rows[0].Data)
	assert.Equal(t, "2", rows[1].Label)
}

func TestParseCSV_Limits(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a\nb\nc\n"), 2)
	assert.ErrorIs(t, err, ErrTooManyRows)

	rows, err := ParseCSV(strings.NewReader("a\nb\n"), 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = ParseCSV(strings.NewReader("data,label\n,\n\n"), 10)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ParseCSV(strings.NewReader(""), 10)
	assert.ErrorIs(t, err, ErrNoRows)
}
