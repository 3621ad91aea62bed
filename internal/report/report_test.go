package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
	"mrc_prep/internal/window"
)

func TestBuildAndSave(t *testing.T) {
	b := NewBuilder("run-1", "window")
	one, zero := 1.0, 0.0
	b.Observe(1, prep.Outcome{Documents: 2, Strategies: []window.Strategy{window.Back, window.Truncate}, CeilRougeL: &one})
	b.Observe(2, prep.Outcome{Documents: 1, Strategies: []window.Strategy{window.Back}, CeilRougeL: &zero})

	r := b.Build(pipeline.Stats{Lines: 3, Skipped: 1, Records: 2}, errors.New("line 3: bad"))
	assert.Equal(t, 3, r.Documents)
	assert.Equal(t, map[string]int{"back": 2, "truncate": 1}, r.Strategies)
	assert.Equal(t, 1, r.ZeroCeil)
	assert.InDelta(t, 0.5, r.MeanCeilRougeL, 1e-9)
	assert.Equal(t, "line 3: bad", r.Error)

	path := filepath.Join(t.TempDir(), "reports", "window.json")
	require.NoError(t, SaveReport(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Report
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, r, back)
}
