package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
)

type Report struct {
	RunID          string         `json:"run_id,omitempty"`
	Stage          string         `json:"stage"`
	Lines          int            `json:"lines"`
	Skipped        int            `json:"skipped"`
	Records        int            `json:"records"`
	Documents      int            `json:"documents"`
	Strategies     map[string]int `json:"strategies,omitempty"`
	ZeroCeil       int            `json:"zero_ceil_rougel"`
	MeanCeilRougeL float64        `json:"mean_ceil_rougel"`
	Entities       int            `json:"entities"`
	Error          string         `json:"error,omitempty"`
}

// Builder accumulates a Report while a run streams records.
type Builder struct {
	report  Report
	ceilSum float64
	scored  int
}

func NewBuilder(runID, stage string) *Builder {
	return &Builder{report: Report{RunID: runID, Stage: stage, Strategies: map[string]int{}}}
}

func (b *Builder) Observe(_ int, o prep.Outcome) {
	b.report.Documents += o.Documents
	b.report.Entities += o.Entities
	for _, s := range o.Strategies {
		b.report.Strategies[string(s)]++
	}
	if o.CeilRougeL != nil {
		b.scored++
		b.ceilSum += *o.CeilRougeL
		if *o.CeilRougeL == 0 {
			b.report.ZeroCeil++
		}
	}
}

func (b *Builder) Build(st pipeline.Stats, runErr error) Report {
	r := b.report
	r.Lines, r.Skipped, r.Records = st.Lines, st.Skipped, st.Records
	if b.scored > 0 {
		r.MeanCeilRougeL = b.ceilSum / float64(b.scored)
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

func SaveReport(path string, report Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
