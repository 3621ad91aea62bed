package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"mrc_prep/internal/prep"
	"mrc_prep/internal/sample"
)

// Observer is told about every record a stage finished.
type Observer interface {
	Observe(line int, o prep.Outcome)
}

type Stats struct {
	Lines   int
	Skipped int
	Records int
}

// Run streams newline-delimited JSON records from r through stage to w.
// Lines that do not start with '{' are skipped. The first record that fails
// to decode or transform stops the run; nothing is written for it.
func Run(ctx context.Context, r io.Reader, w io.Writer, stage prep.Stage, observers ...Observer) (Stats, error) {
	var st Stats
	br := bufio.NewReaderSize(r, 1<<20)
	bw := bufio.NewWriterSize(w, 1<<20)

	err := run(ctx, br, bw, stage, observers, &st)
	if flushErr := bw.Flush(); flushErr != nil && err == nil {
		err = fmt.Errorf("flush output: %w", flushErr)
	}
	return st, err
}

func run(ctx context.Context, br *bufio.Reader, bw *bufio.Writer, stage prep.Stage, observers []Observer, st *Stats) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			st.Lines++
			if err := handle(ctx, line, bw, stage, observers, st); err != nil {
				return fmt.Errorf("line %d: %w", st.Lines, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}
}

func handle(ctx context.Context, line []byte, bw *bufio.Writer, stage prep.Stage, observers []Observer, st *Stats) error {
	if !bytes.HasPrefix(line, []byte("{")) {
		st.Skipped++
		return nil
	}

	var s sample.Sample
	if err := json.Unmarshal(bytes.TrimSpace(line), &s); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	out, err := stage.Process(ctx, &s)
	if err != nil {
		return fmt.Errorf("%s: %w", stage.Name(), err)
	}
	raw, err := sample.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := bw.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	st.Records++
	for _, o := range observers {
		o.Observe(st.Lines, out)
	}
	slog.Debug("record done", "stage", stage.Name(), "line", st.Lines, "documents", out.Documents)
	return nil
}
