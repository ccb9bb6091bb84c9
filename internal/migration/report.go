package migration

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// RunSummary is printed at the end of a run; it is never persisted.
type RunSummary struct {
	TotalRows   int
	FailedCount int
	Elapsed     time.Duration
}

// Reporter appends one audit line per processed row. Every Record flushes to
// disk immediately so a crash mid-run loses nothing already decided.
type Reporter struct {
	f       *os.File
	w       *csv.Writer
	total   int
	failed  int
	started time.Time
}

var reportHeader = []string{"Existing Email", "SSO Email", "Workspace Reassigning Email", "Status"}

// NewReporter creates the report file (and its directory) and writes the
// header row.
func NewReporter(path string) (*Reporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create report directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create report file")
	}
	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "write report header")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "flush report header")
	}
	return &Reporter{f: f, w: w, started: time.Now()}, nil
}

// Record writes one row's outcome and updates the run counters.
func (r *Reporter) Record(row MappingRow, outcome Outcome) error {
	r.total++
	if outcome.Failed() {
		r.failed++
	}
	if err := r.w.Write([]string{row.ExistingEmail, row.SSOEmail, row.WorkspaceOwnerEmail, outcome.Reason}); err != nil {
		return errors.Wrap(err, "write report row")
	}
	r.w.Flush()
	return errors.Wrap(r.w.Error(), "flush report row")
}

// Finalize closes the report and returns the run totals.
func (r *Reporter) Finalize() (RunSummary, error) {
	r.w.Flush()
	err := r.w.Error()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return RunSummary{
		TotalRows:   r.total,
		FailedCount: r.failed,
		Elapsed:     time.Since(r.started),
	}, errors.Wrap(err, "close report")
}

// Path returns the report file location for the end-of-run summary line.
func (r *Reporter) Path() string {
	return r.f.Name()
}
