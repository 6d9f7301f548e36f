package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/TFMV/reconcile/config"
	"github.com/TFMV/reconcile/integrations"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/writers"
	"github.com/TFMV/reconcile/report"
)

// ErrDiverged is returned by compare --fail-on-diff when the datasets differ.
var ErrDiverged = errors.New("datasets diverged")

// CompareOptions represents the options for the compare command.
type CompareOptions struct {
	ConfigPath string
	Sample     string

	LegacyType string
	CloudType  string
	LegacyKey  string
	CloudKey   string
	JoinCols   []string
	BatchSize  int64

	Tolerance float64
	Workers   int

	Format       string
	OutputPath   string
	ExportDir    string
	ExportFormat string
	MaxRows      int
	MetricsFile  string
	FailOnDiff   bool
	Quiet        bool
}

func newCompareCommand() *cobra.Command {
	options := &CompareOptions{
		LegacyType:   "auto",
		CloudType:    "auto",
		Workers:      4,
		Format:       "text",
		ExportFormat: "parquet",
		BatchSize:    10000,
	}

	cmd := &cobra.Command{
		Use:   "compare [flags] [LEGACY CLOUD]",
		Short: "Compare a legacy dataset with its cloud copy",
		Long: `The compare command reconciles two datasets and prints a report.

Sources come from positional file arguments, from a YAML job given with --config,
or from a built-in scenario given with --sample. Flags override the job file.

Keys:
- --legacy-key and --cloud-key join on one differently named column per side
- --join-columns joins on one or more columns present on both sides`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, options, args)
		},
	}

	cmd.Flags().StringVarP(&options.ConfigPath, "config", "c", "", "YAML job file")
	cmd.Flags().StringVar(&options.Sample, "sample", "", "Compare a built-in sample scenario")
	cmd.Flags().StringVar(&options.LegacyType, "legacy-type", options.LegacyType, "Legacy dataset type (csv, parquet, arrow, duckdb, auto)")
	cmd.Flags().StringVar(&options.CloudType, "cloud-type", options.CloudType, "Cloud dataset type (csv, parquet, arrow, duckdb, auto)")
	cmd.Flags().StringVar(&options.LegacyKey, "legacy-key", "", "Join column of the legacy dataset")
	cmd.Flags().StringVar(&options.CloudKey, "cloud-key", "", "Join column of the cloud dataset")
	cmd.Flags().StringSliceVarP(&options.JoinCols, "join-columns", "k", nil, "Join columns present in both datasets")
	cmd.Flags().Int64VarP(&options.BatchSize, "batch-size", "b", options.BatchSize, "Rows per batch when reading")
	cmd.Flags().Float64Var(&options.Tolerance, "tolerance", 0, "Relative tolerance for floating point comparisons")
	cmd.Flags().IntVar(&options.Workers, "workers", options.Workers, "Columns compared concurrently")
	cmd.Flags().StringVarP(&options.Format, "format", "f", options.Format, "Report format (text, json, html)")
	cmd.Flags().StringVarP(&options.OutputPath, "output", "o", "", "Report file, defaults to stdout")
	cmd.Flags().StringVar(&options.ExportDir, "export-dir", "", "Directory for row exports (legacy_only, cloud_only, mismatches, duplicates)")
	cmd.Flags().StringVar(&options.ExportFormat, "export-format", options.ExportFormat, "Row export format (parquet, arrow, json)")
	cmd.Flags().IntVar(&options.MaxRows, "max-rows", 20, "Rows printed per table in the text report, 0 for all")
	cmd.Flags().StringVar(&options.MetricsFile, "metrics-file", "", "Append a JSON run record to this file")
	cmd.Flags().BoolVar(&options.FailOnDiff, "fail-on-diff", false, "Exit with an error when the datasets differ")
	cmd.Flags().BoolVarP(&options.Quiet, "quiet", "q", false, "Hide the progress spinner")

	return cmd
}

// buildJob merges the job file, positional arguments and flags.
func buildJob(cmd *cobra.Command, options *CompareOptions, args []string) (integrations.Job, config.OutputConfig, error) {
	cfg := config.Default()
	if options.ConfigPath != "" {
		loaded, err := config.LoadConfig(options.ConfigPath)
		if err != nil {
			return integrations.Job{}, config.OutputConfig{}, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()

	job := integrations.JobFromConfig(cfg)
	job.Sample = options.Sample
	if len(args) == 2 {
		job.Legacy = fileSource(args[0], options.LegacyType, options.BatchSize)
		job.Cloud = fileSource(args[1], options.CloudType, options.BatchSize)
	} else if len(args) == 1 {
		return job, cfg.Output, fmt.Errorf("expected both LEGACY and CLOUD, got one dataset")
	}

	if flags.Changed("legacy-key") || flags.Changed("cloud-key") {
		job.Keys = reconcile.KeyInput{LegacyKey: options.LegacyKey, CloudKey: options.CloudKey}
	}
	if flags.Changed("join-columns") {
		job.Keys.JoinColumns = options.JoinCols
	}
	if flags.Changed("tolerance") {
		job.Tolerance = options.Tolerance
	}
	if flags.Changed("workers") {
		job.Workers = options.Workers
	}

	out := cfg.Output
	if flags.Changed("format") || options.ConfigPath == "" {
		out.Format = options.Format
	}
	if flags.Changed("output") {
		out.Path = options.OutputPath
	}
	if flags.Changed("export-dir") {
		out.ExportDir = options.ExportDir
	}
	if flags.Changed("export-format") || out.ExportFormat == "" {
		out.ExportFormat = options.ExportFormat
	}

	if job.Sample == "" && job.Legacy.Type == "" && job.Cloud.Type == "" {
		return job, out, fmt.Errorf("nothing to compare: pass LEGACY CLOUD, --config or --sample")
	}
	if err := out.Validate(); err != nil {
		return job, out, err
	}
	return job, out, nil
}

func fileSource(path, typ string, batchSize int64) core.ReaderConfig {
	if typ == "" || typ == "auto" {
		typ = detectType(path)
	}
	return core.ReaderConfig{Type: typ, Path: path, BatchSize: batchSize}
}

// detectType guesses the dataset type from the file extension.
func detectType(path string) string {
	lowercase := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lowercase, ".parquet"):
		return "parquet"
	case strings.HasSuffix(lowercase, ".arrow"), strings.HasSuffix(lowercase, ".ipc"):
		return "arrow"
	case strings.HasSuffix(lowercase, ".db") || strings.HasSuffix(lowercase, ".duckdb"):
		return "duckdb"
	default:
		return "csv"
	}
}

func runCompare(cmd *cobra.Command, options *CompareOptions, args []string) error {
	job, out, err := buildJob(cmd, options, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store metrics.MetricsStore
	if options.MetricsFile != "" {
		store = &metrics.JSONMetricsStore{FilePath: options.MetricsFile}
	}
	runner := integrations.NewRunner(logger.GetLogger(), metrics.NewCollector(store))

	var progress *spinner.Spinner
	if !options.Quiet {
		progress = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		progress.Suffix = " Comparing datasets..."
		progress.Start()
	}
	f, run, err := runner.Run(ctx, job)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}
	defer f.Release()

	if err := writeReport(cmd, f, out, options.MaxRows); err != nil {
		return err
	}

	if out.ExportDir != "" {
		paths, err := writers.Export(ctx, f, out.ExportDir, out.ExportFormat)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.ErrOrStderr(), "Exported", p)
		}
	}

	if options.FailOnDiff && run.Outcome != metrics.Clean {
		return fmt.Errorf("%w: %s", ErrDiverged, run.Outcome)
	}
	return nil
}

func writeReport(cmd *cobra.Command, f *reconcile.Findings, out config.OutputConfig, maxRows int) error {
	g, err := report.NewGenerator(out.Format)
	if err != nil {
		return err
	}
	if text, ok := g.(*report.TextReportGenerator); ok {
		text.MaxRows = maxRows
	}
	if out.Path != "" {
		if err := g.SaveReportToFile(f, out.Path); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Report written to", out.Path)
		return nil
	}
	data, err := g.GenerateReport(f)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
