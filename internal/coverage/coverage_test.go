package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mrc_prep/internal/rouge"
)

type recordingScorer struct {
	cand, ref string
}

func (r *recordingScorer) Score(candidate, reference string) float64 {
	r.cand, r.ref = candidate, reference
	return 0.5
}

func TestCeilingEmptyFakeAnswers(t *testing.T) {
	s := &recordingScorer{}
	assert.Equal(t, 0.0, Ceiling(nil, "gold", s))
	assert.Empty(t, s.cand, "scorer must not be called")
}

func TestCeilingLowercasesAndConcatenates(t *testing.T) {
	s := &recordingScorer{}
	got := Ceiling([]string{"Hello ", "WORLD"}, "Hello World", s)
	assert.Equal(t, 0.5, got)
	assert.Equal(t, "hello world", s.cand)
	assert.Equal(t, "hello world", s.ref)
}

func TestCeilingWithRougeL(t *testing.T) {
	assert.InDelta(t, 1.0, Ceiling([]string{"北京", "ABC"}, "北京abc", rouge.New()), 1e-9)
	assert.Equal(t, 0.0, Ceiling([]string{"xyz"}, "", rouge.New()))
}
