package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
	"mrc_prep/internal/window"
)

func TestCollector(t *testing.T) {
	c := New("window")
	score := 0.8
	c.Observe(1, prep.Outcome{Documents: 3, Strategies: []window.Strategy{window.Front, window.Truncate, window.Front}, CeilRougeL: &score})
	c.Observe(2, prep.Outcome{Documents: 1, Strategies: []window.Strategy{window.Center}})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("window")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.documents.WithLabelValues("window")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.strategies.WithLabelValues("front")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.strategies.WithLabelValues("center")))

	path := filepath.Join(t.TempDir(), "mrcprep.prom")
	require.NoError(t, c.Finish(pipeline.Stats{Skipped: 2}, path))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.skipped.WithLabelValues("window")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `mrcprep_records_total{stage="window"} 2`)
	assert.Contains(t, string(raw), "mrcprep_ceil_rougel_count 1")
}

func TestEntitiesByStage(t *testing.T) {
	c := New("ner")
	c.Observe(1, prep.Outcome{Documents: 2, Entities: 5})
	c.Observe(2, prep.Outcome{Documents: 1, Entities: 1})

	assert.Equal(t, 6.0, testutil.ToFloat64(c.entities.WithLabelValues("ner")))
	n, err := testutil.GatherAndCount(c.Registry(), "mrcprep_entities_total", "mrcprep_records_total", "mrcprep_documents_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFinishWithoutPath(t *testing.T) {
	assert.NoError(t, New("ner").Finish(pipeline.Stats{}, ""))
}
