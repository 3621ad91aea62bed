package rouge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLCS(t *testing.T) {
	assert.Equal(t, 4, LCS([]rune("abcd"), []rune("abcd")))
	assert.Equal(t, 2, LCS([]rune("abc"), []rune("axc")))
	assert.Equal(t, 3, LCS([]rune("北京大学"), []rune("北大学")))
	assert.Equal(t, 0, LCS([]rune("abc"), []rune("")))
}

func TestRougeL(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		reference string
		expected  float64
	}{
		{name: "identical", candidate: "答案文本", reference: "答案文本", expected: 1},
		{name: "equal precision and recall", candidate: "abc", reference: "axc", expected: 2.0 / 3.0},
		{name: "recall weighted", candidate: "ab", reference: "abcd", expected: 2.44 * 0.5 / (0.5 + 1.44)},
		{name: "no overlap", candidate: "abc", reference: "xyz", expected: 0},
		{name: "empty candidate", candidate: "", reference: "xyz", expected: 0},
		{name: "empty reference", candidate: "abc", reference: "", expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, New().Score(tt.candidate, tt.reference), 1e-9)
		})
	}
}
