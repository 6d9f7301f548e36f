// Package reconcile compares a legacy and a cloud table that should hold the same data
// after a migration. It reports schema differences, row count differences, rows that
// exist on one side only, value mismatches on matched rows and duplicate rows.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TFMV/reconcile/pkg/table"
)

// Option configures a Comparer.
type Option func(*Comparer)

// WithLogger sets the logger used for progress and warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Comparer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTolerance sets the relative tolerance for floating point comparisons.
func WithTolerance(tolerance float64) Option {
	return func(c *Comparer) {
		c.values.Tolerance = tolerance
	}
}

// WithWorkers bounds how many columns are compared concurrently.
func WithWorkers(n int) Option {
	return func(c *Comparer) {
		c.values.Workers = n
	}
}

// Comparer runs the comparison of two tables on a fixed key specification.
type Comparer struct {
	legacy *table.Table
	cloud  *table.Table
	keys   KeySpec
	logger *zap.Logger
	values ValueOptions

	findings *Findings
}

// NewComparer creates a Comparer. Tables are validated by Compare.
func NewComparer(legacy, cloud *table.Table, keys KeySpec, opts ...Option) (*Comparer, error) {
	if keys == nil {
		return nil, configError(ErrMissingKeySpecification, "no key specification")
	}
	c := &Comparer{
		legacy: legacy,
		cloud:  cloud,
		keys:   keys,
		logger: zap.NewNop(),
		values: ValueOptions{Workers: 4},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewComparerFromInput resolves in and creates a Comparer.
func NewComparerFromInput(legacy, cloud *table.Table, in KeyInput, opts ...Option) (*Comparer, error) {
	keys, err := ResolveKeys(in)
	if err != nil {
		return nil, err
	}
	return NewComparer(legacy, cloud, keys, opts...)
}

// Compare runs every phase in order: schema, row counts, row matching with value
// comparison, then duplicates. Configuration and input errors are returned as is;
// data-quality problems are recorded as warnings on the findings. The caller holds a
// reference to the returned findings and should Release it; later calls to Compare
// or Close do not invalidate it.
func (c *Comparer) Compare(ctx context.Context) (*Findings, error) {
	c.logger.Info("Validating tables...")
	if err := validateInput(c.legacy, table.Legacy); err != nil {
		return nil, err
	}
	if err := validateInput(c.cloud, table.Cloud); err != nil {
		return nil, err
	}

	f := newFindings(c.keys)

	c.logger.Info("Checking schemas...")
	f.schema = DiffSchemas(c.legacy, c.cloud)
	c.logger.Debug("Schema compared",
		zap.Int("common", len(f.schema.Common)),
		zap.Int("missing_from_legacy", len(f.schema.MissingFromLegacy)),
		zap.Int("missing_from_cloud", len(f.schema.MissingFromCloud)),
		zap.Int("type_mismatches", f.schema.MismatchedTypeCount()))

	c.logger.Info("Checking row counts...")
	f.rows = CountRows(c.legacy, c.cloud)

	c.logger.Info("Checking value mismatches...", zap.String("keys", describeKeys(c.keys)))
	match, warning, err := MatchRows(ctx, c.legacy, c.cloud, c.keys)
	if err != nil {
		c.logger.Error("Row matching failed", zap.Error(err))
		return nil, err
	}
	f.match = match
	c.record(f, warning)

	f.mismatches, warning, err = CompareValues(ctx, match, f.schema, c.keys, c.values)
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("compare values: %w", err)
	}
	c.record(f, warning)

	f.duplicates, err = DetectDuplicates(ctx, match, c.legacy, c.cloud)
	if err != nil {
		f.Release()
		return nil, fmt.Errorf("detect duplicates: %w", err)
	}

	c.logger.Info("Comparison complete",
		zap.Int("mismatched_values", f.mismatches.Total),
		zap.Int("duplicates", f.duplicates.MatchedCount),
		zap.Int("warnings", len(f.warnings)))

	c.findings.Release()
	c.findings = f
	f.Retain()
	return f, nil
}

func (c *Comparer) record(f *Findings, w *Warning) {
	if w == nil {
		return
	}
	c.logger.Warn(w.Message, zap.String("kind", string(w.Kind)), zap.Strings("columns", w.Columns))
	f.warnings = append(f.warnings, *w)
}

func validateInput(t *table.Table, side table.Side) error {
	if t == nil || t.Record() == nil {
		return fmt.Errorf("%w: %s input is not a well-formed table", ErrInvalidInput, side)
	}
	return nil
}

// Findings returns the result of the last Compare.
func (c *Comparer) Findings() (*Findings, error) {
	if c.findings == nil {
		return nil, ErrNotYetComputed
	}
	return c.findings, nil
}

// SchemaDiff returns the schema diff of the last Compare.
func (c *Comparer) SchemaDiff() (SchemaDiff, error) {
	if c.findings == nil {
		return SchemaDiff{}, ErrNotYetComputed
	}
	return c.findings.schema, nil
}

// RowCounts returns the row counts of the last Compare.
func (c *Comparer) RowCounts() (RowCounts, error) {
	if c.findings == nil {
		return RowCounts{}, ErrNotYetComputed
	}
	return c.findings.rows, nil
}

// MatchResult returns the row partitions of the last Compare. It is nil when the
// join keys had different types.
func (c *Comparer) MatchResult() (*MatchResult, error) {
	if c.findings == nil {
		return nil, ErrNotYetComputed
	}
	return c.findings.match, nil
}

// Mismatches returns the value mismatch report of the last Compare.
func (c *Comparer) Mismatches() (MismatchReport, error) {
	if c.findings == nil {
		return MismatchReport{}, ErrNotYetComputed
	}
	return c.findings.mismatches, nil
}

// Duplicates returns the duplicate report of the last Compare.
func (c *Comparer) Duplicates() (DuplicateReport, error) {
	if c.findings == nil {
		return DuplicateReport{}, ErrNotYetComputed
	}
	return c.findings.duplicates, nil
}

// Close drops the Comparer's reference to the findings of the last Compare.
func (c *Comparer) Close() error {
	c.findings.Release()
	c.findings = nil
	return nil
}

// Compare is a convenience wrapper that runs a single comparison. The caller owns
// the returned findings and should Release them.
func Compare(ctx context.Context, legacy, cloud *table.Table, keys KeySpec, opts ...Option) (*Findings, error) {
	c, err := NewComparer(legacy, cloud, keys, opts...)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Compare(ctx)
}
