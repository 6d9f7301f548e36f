// Package integrations pairs a legacy and a cloud source and runs comparisons over
// them, recording every run.
package integrations

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/readers"
	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/samples"
	"github.com/TFMV/reconcile/pkg/table"
)

// ErrUnknownSample is returned for a sample name that is not registered.
var ErrUnknownSample = errors.New("unknown sample")

// Source is anything that can be materialized as a table for comparison.
type Source interface {
	// Name describes the source for logs and run records.
	Name() string
	// Load materializes the source. The caller releases the table.
	Load(ctx context.Context) (*table.Table, error)
}

// ReaderSource loads a file or database through the reader factory.
type ReaderSource struct {
	Config core.ReaderConfig
}

func (s ReaderSource) Name() string {
	switch {
	case s.Config.Query != "":
		return s.Config.Type + ":query"
	case s.Config.Table != "":
		return s.Config.Type + ":" + s.Config.Table
	default:
		return s.Config.Type + ":" + s.Config.Path
	}
}

func (s ReaderSource) Load(ctx context.Context) (*table.Table, error) {
	return readers.LoadTable(ctx, s.Config)
}

// SampleSource is one side of a built-in sample scenario.
type SampleSource struct {
	Scenario samples.Scenario
	Side     table.Side
}

func (s SampleSource) Name() string {
	return fmt.Sprintf("sample:%s/%s", s.Scenario.Name, s.Side)
}

func (s SampleSource) Load(ctx context.Context) (*table.Table, error) {
	return s.Scenario.Table(nil, s.Side)
}

// Pair is a legacy and a cloud source to be compared.
type Pair struct {
	legacy Source
	cloud  Source
}

func NewPair(legacy, cloud Source) *Pair {
	return &Pair{legacy: legacy, cloud: cloud}
}

func (p *Pair) Legacy() Source {
	return p.legacy
}

func (p *Pair) Cloud() Source {
	return p.cloud
}

// Name describes both sources.
func (p *Pair) Name() string {
	return p.legacy.Name() + " vs " + p.cloud.Name()
}

// Compare loads both sources and compares them. The source tables are released
// before returning; the caller owns the findings.
func (p *Pair) Compare(ctx context.Context, keys reconcile.KeySpec, opts ...reconcile.Option) (*reconcile.Findings, error) {
	legacy, err := p.legacy.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load legacy source %s: %w", p.legacy.Name(), err)
	}
	defer legacy.Release()

	cloud, err := p.cloud.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cloud source %s: %w", p.cloud.Name(), err)
	}
	defer cloud.Release()

	return reconcile.Compare(ctx, legacy, cloud, keys, opts...)
}

// Job describes one comparison: either a sample scenario or two reader sources.
type Job struct {
	Sample    string             `json:"sample,omitempty"`
	Legacy    core.ReaderConfig  `json:"legacy"`
	Cloud     core.ReaderConfig  `json:"cloud"`
	Keys      reconcile.KeyInput `json:"keys"`
	Tolerance float64            `json:"tolerance,omitempty"`
	Workers   int                `json:"workers,omitempty"`
}

// JobFromConfig builds a Job from a loaded configuration file.
func JobFromConfig(cfg *config.Config) Job {
	return Job{
		Legacy:    cfg.Legacy,
		Cloud:     cfg.Cloud,
		Keys:      cfg.Keys,
		Tolerance: cfg.Compare.Tolerance,
		Workers:   cfg.Compare.Workers,
	}
}

// Resolve returns the job's source pair and key specification. A sample job uses
// the scenario's keys unless the job sets its own.
func (j Job) Resolve() (*Pair, reconcile.KeySpec, error) {
	in := j.Keys
	var pair *Pair
	if j.Sample != "" {
		s, ok := samples.Get(j.Sample)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSample, j.Sample)
		}
		pair = NewPair(SampleSource{Scenario: s, Side: table.Legacy}, SampleSource{Scenario: s, Side: table.Cloud})
		if in.LegacyKey == nil && in.CloudKey == nil && in.JoinColumns == nil {
			in = s.Keys
		}
	} else {
		if err := config.ValidateSource(&j.Legacy); err != nil {
			return nil, nil, fmt.Errorf("%w: legacy source: %w", reconcile.ErrConfiguration, err)
		}
		if err := config.ValidateSource(&j.Cloud); err != nil {
			return nil, nil, fmt.Errorf("%w: cloud source: %w", reconcile.ErrConfiguration, err)
		}
		pair = NewPair(ReaderSource{Config: j.Legacy}, ReaderSource{Config: j.Cloud})
	}

	keys, err := reconcile.ResolveKeys(in)
	if err != nil {
		return nil, nil, err
	}
	return pair, keys, nil
}

// Runner runs jobs and records them in a metrics collector.
type Runner struct {
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewRunner creates a Runner. A nil logger discards logs and a nil collector
// disables run recording.
func NewRunner(logger *zap.Logger, collector *metrics.Collector) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, collector: collector}
}

// Run resolves and runs job. The caller owns the findings.
func (r *Runner) Run(ctx context.Context, job Job) (*reconcile.Findings, metrics.RunRecord, error) {
	pair, keys, err := job.Resolve()
	if err != nil {
		run := metrics.NewRun(job.Sample).Finish(nil, err)
		r.record(ctx, run)
		return nil, run, err
	}

	run := metrics.NewRun(pair.Name())
	logger := r.logger.With(zap.String("run_id", run.ID), zap.String("source", run.Source))
	logger.Info("Starting comparison")

	opts := []reconcile.Option{reconcile.WithLogger(logger), reconcile.WithTolerance(job.Tolerance)}
	if job.Workers > 0 {
		opts = append(opts, reconcile.WithWorkers(job.Workers))
	}
	f, err := pair.Compare(ctx, keys, opts...)
	run = run.Finish(f, err)
	r.record(ctx, run)
	if err != nil {
		logger.Error("Comparison failed", zap.Error(err))
		return nil, run, err
	}
	logger.Info("Comparison finished", zap.String("outcome", string(run.Outcome)), zap.Duration("duration", run.Duration))
	return f, run, nil
}

func (r *Runner) record(ctx context.Context, run metrics.RunRecord) {
	if r.collector == nil {
		return
	}
	if err := r.collector.Record(ctx, run); err != nil {
		r.logger.Warn("Failed to record run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
