// Package metrics records reconciliation runs: counts, durations and the outcome of
// the most recent run.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/reconcile/pkg/reconcile"
)

// -----------------------------
// Run Types
// -----------------------------

// Outcome classifies a finished run.
type Outcome string

const (
	// Clean: the tables reconcile with no differences.
	Clean Outcome = "clean"
	// Diverged: the comparison ran and found differences.
	Diverged Outcome = "diverged"
	// Degraded: the comparison ran but recorded warnings.
	Degraded Outcome = "degraded"
	// Failed: the comparison returned an error.
	Failed Outcome = "failed"
)

// RunRecord describes one comparison run.
type RunRecord struct {
	ID               string        `json:"id"`
	Source           string        `json:"source"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
	Outcome          Outcome       `json:"outcome"`
	LegacyRows       int           `json:"legacy_rows"`
	CloudRows        int           `json:"cloud_rows"`
	MismatchedValues int           `json:"mismatched_values"`
	Duplicates       int           `json:"duplicates"`
	Warnings         int           `json:"warnings"`
	Error            string        `json:"error,omitempty"`
}

// NewRun starts a record for a run reading from source.
func NewRun(source string) RunRecord {
	return RunRecord{ID: uuid.NewString(), Source: source, StartTime: time.Now().UTC()}
}

// Finish completes the record from the run's findings or error.
func (r RunRecord) Finish(f *reconcile.Findings, err error) RunRecord {
	r.EndTime = time.Now().UTC()
	r.Duration = r.EndTime.Sub(r.StartTime)
	if err != nil {
		r.Outcome = Failed
		r.Error = err.Error()
		return r
	}
	s := f.Summary()
	r.LegacyRows = s.RowCounts.Legacy
	r.CloudRows = s.RowCounts.Cloud
	r.MismatchedValues = s.MismatchedValues
	r.Duplicates = s.Duplicates.Matched
	r.Warnings = len(s.Warnings)
	r.Outcome = outcomeOf(s)
	return r
}

func outcomeOf(s reconcile.Summary) Outcome {
	switch {
	case len(s.Warnings) > 0:
		return Degraded
	case s.RowCounts.LegacyDifference != 0,
		len(s.Schema.MissingFromLegacy) > 0,
		len(s.Schema.MissingFromCloud) > 0,
		len(s.Schema.TypeMismatches) > 0,
		s.LegacyOnlyRows > 0,
		s.CloudOnlyRows > 0,
		s.MismatchedValues > 0,
		s.Duplicates.Matched > 0:
		return Diverged
	default:
		return Clean
	}
}

// -----------------------------
// Metrics Storage
// -----------------------------

// MetricsStore abstracts run record storage.
type MetricsStore interface {
	Save(run RunRecord) error
	SaveWithContext(ctx context.Context, run RunRecord) error
}

// JSONMetricsStore appends run records as JSON lines. An empty FilePath writes to
// Out, or stdout when Out is nil.
type JSONMetricsStore struct {
	FilePath string
	Out      io.Writer
}

func (j *JSONMetricsStore) Save(run RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if j.FilePath == "" {
		out := j.Out
		if out == nil {
			out = os.Stdout
		}
		_, err = out.Write(data)
		return err
	}
	f, err := os.OpenFile(j.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (j *JSONMetricsStore) SaveWithContext(ctx context.Context, run RunRecord) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(run)
	}
}

// -----------------------------
// Collector
// -----------------------------

// Snapshot is a point-in-time view of a Collector.
type Snapshot struct {
	Runs            int64             `json:"runs"`
	ByOutcome       map[Outcome]int64 `json:"by_outcome"`
	TotalDuration   time.Duration     `json:"total_duration"`
	AverageDuration time.Duration     `json:"average_duration"`
	LastRun         *RunRecord        `json:"last_run,omitempty"`
}

// Collector aggregates run records in memory. It is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	runs      int64
	byOutcome map[Outcome]int64
	total     time.Duration
	last      *RunRecord
	store     MetricsStore
}

// NewCollector creates a Collector. A non-nil store also receives every record.
func NewCollector(store MetricsStore) *Collector {
	return &Collector{byOutcome: make(map[Outcome]int64), store: store}
}

// Record adds run to the collector and forwards it to the store.
func (c *Collector) Record(ctx context.Context, run RunRecord) error {
	c.mu.Lock()
	c.runs++
	c.byOutcome[run.Outcome]++
	c.total += run.Duration
	last := run
	c.last = &last
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.SaveWithContext(ctx, run); err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return nil
}

// Snapshot returns the current totals.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Runs:          c.runs,
		ByOutcome:     make(map[Outcome]int64, len(c.byOutcome)),
		TotalDuration: c.total,
	}
	for k, v := range c.byOutcome {
		s.ByOutcome[k] = v
	}
	if c.runs > 0 {
		s.AverageDuration = c.total / time.Duration(c.runs)
	}
	if c.last != nil {
		last := *c.last
		s.LastRun = &last
	}
	return s
}
