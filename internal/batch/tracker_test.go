package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.Get("j")
	assert.False(t, ok)

	tr.Update(Progress{JobID: "j", Current: 2, Total: 4})
	tr.Update(Progress{JobID: "j", Current: 1, Total: 4})
	p, ok := tr.Get("j")
	assert.True(t, ok)
	assert.Equal(t, 2, p.Current)

	tr.Update(Progress{JobID: "j", Current: 4, Total: 4, Done: true})
	tr.Update(Progress{JobID: "j", Current: 4, Total: 4})
	p, _ = tr.Get("j")
	assert.True(t, p.Done)

	tr.Forget("j")
	_, ok = tr.Get("j")
	assert.False(t, ok)
}
