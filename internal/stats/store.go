package stats

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mrc_prep/internal/pipeline"
	"mrc_prep/internal/prep"
)

// Run records one pass of a stage over a record stream. Per-record rows are
// written inside a single transaction that Finish commits.
type Run struct {
	ID string

	conn    *sql.DB
	tx      *sql.Tx
	insert  *sql.Stmt
	stage   string
	started time.Time
	err     error
}

func BeginRun(dbPath, stage string) (*Run, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	tx, err := conn.Begin()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	insert, err := tx.Prepare(`INSERT INTO records(run_id, line, documents, strategies, fake_answers, ceil_rougel, entities) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		_ = conn.Close()
		return nil, fmt.Errorf("prepare record insert: %w", err)
	}
	return &Run{
		ID:      uuid.NewString(),
		conn:    conn,
		tx:      tx,
		insert:  insert,
		stage:   stage,
		started: time.Now().UTC(),
	}, nil
}

func (r *Run) Observe(line int, o prep.Outcome) {
	if r.err != nil {
		return
	}
	strategies := make([]string, len(o.Strategies))
	for i, s := range o.Strategies {
		strategies[i] = string(s)
	}
	var ceil sql.NullFloat64
	if o.CeilRougeL != nil {
		ceil = sql.NullFloat64{Float64: *o.CeilRougeL, Valid: true}
	}
	if _, err := r.insert.Exec(r.ID, line, o.Documents, strings.Join(strategies, ","), o.FakeAnswers, ceil, o.Entities); err != nil {
		r.err = fmt.Errorf("insert record: %w", err)
	}
}

// Finish stores the run summary and commits. runErr is the error the run
// stopped with, if any.
func (r *Run) Finish(st pipeline.Stats, runErr error) error {
	defer r.conn.Close()
	defer r.insert.Close()

	if r.err != nil {
		_ = r.tx.Rollback()
		return r.err
	}
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	if _, err := r.tx.Exec(
		`INSERT INTO runs(id, stage, started_at, finished_at, lines, skipped, records, error) VALUES(?,?,?,?,?,?,?,?)`,
		r.ID,
		r.stage,
		r.started.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		st.Lines,
		st.Skipped,
		st.Records,
		msg,
	); err != nil {
		_ = r.tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func CountRows(dbPath, table string) (int, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}

// MeanCeilRougeL averages the ceiling score over the records of one run.
func MeanCeilRougeL(dbPath, runID string) (float64, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	var mean sql.NullFloat64
	if err := conn.QueryRow(`SELECT AVG(ceil_rougel) FROM records WHERE run_id = ?`, runID).Scan(&mean); err != nil {
		return 0, fmt.Errorf("scan mean: %w", err)
	}
	return mean.Float64, nil
}
