package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrc_prep/internal/prep"
	"mrc_prep/internal/sample"
	"mrc_prep/internal/window"
)

type recorder struct {
	lines []int
}

func (r *recorder) Observe(line int, _ prep.Outcome) {
	r.lines = append(r.lines, line)
}

func windower(t *testing.T, budget int) prep.Stage {
	t.Helper()
	w, err := prep.NewWindower(window.DefaultParams(budget), prep.PolicyReject, window.NewRand(1), nil)
	require.NoError(t, err)
	return w
}

func TestRunSkipsNonRecordLines(t *testing.T) {
	content := strings.Repeat("字", 400)
	in := strings.Join([]string{
		"# header",
		`{"question":"q","documents":[{"content":"` + content + `"}],"answer":"","answer_labels":[]}`,
		"",
		"  not json",
		`{"question":"<b>","documents":[],"answer":""}`,
	}, "\n")

	var out bytes.Buffer
	rec := &recorder{}
	st, err := Run(context.Background(), strings.NewReader(in), &out, windower(t, 300), rec)
	require.NoError(t, err)
	assert.Equal(t, Stats{Lines: 5, Skipped: 3, Records: 2}, st)
	assert.Equal(t, []int{2, 5}, rec.lines)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"question":"<b>"`)

	var s sample.Sample
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &s))
	assert.Equal(t, 300, s.Documents[0].Len())
	assert.Equal(t, 0.0, *s.CeilRougeL)
}

func TestRunAbortsOnInvalidRecord(t *testing.T) {
	in := strings.Join([]string{
		`{"question":"q","documents":[{"content":"abc"}],"answer":""}`,
		`{"question":"q","documents":[{"content":"abc"}],"answer":"","answer_labels":[[0,1,9]]}`,
		`{"question":"q","documents":[{"content":"abc"}],"answer":""}`,
	}, "\n")

	var out bytes.Buffer
	st, err := Run(context.Background(), strings.NewReader(in), &out, windower(t, 300))
	require.Error(t, err)
	assert.ErrorIs(t, err, sample.ErrLabelOutOfRange)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
}

func TestRunAbortsOnBadJSON(t *testing.T) {
	var out bytes.Buffer
	_, err := Run(context.Background(), strings.NewReader("{not json}\n"), &out, windower(t, 300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record")
	assert.Empty(t, out.String())
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, strings.NewReader(`{"documents":[]}`), &bytes.Buffer{}, windower(t, 300))
	assert.ErrorIs(t, err, context.Canceled)
}
