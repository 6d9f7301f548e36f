// Command gen_samples writes the built-in scenarios and a synthetic drifted pair to
// CSV or Parquet files, ready for "reconcile compare".
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/reconcile/pkg/core"
	"github.com/TFMV/reconcile/pkg/samples"
	"github.com/TFMV/reconcile/pkg/table"
	"github.com/TFMV/reconcile/pkg/writers"
)

// Config holds the generator flags.
type Config struct {
	outputDir string
	format    string
	rows      int
	seed      int64
	driftRate float64
}

func main() {
	config := parseFlags()
	if err := run(context.Background(), config); err != nil {
		log.Fatalf("Failed to generate samples: %v", err)
	}
}

func parseFlags() Config {
	var config Config
	flag.StringVar(&config.outputDir, "out", "sample_data", "Output directory")
	flag.StringVar(&config.format, "format", "csv", "Output format (csv, parquet)")
	flag.IntVar(&config.rows, "rows", 1000, "Rows in the synthetic legacy table")
	flag.Int64Var(&config.seed, "seed", 42, "Random seed for the synthetic pair")
	flag.Float64Var(&config.driftRate, "drift", 0.05, "Fraction of synthetic rows changed in the cloud table")
	flag.Parse()
	return config
}

func run(ctx context.Context, config Config) error {
	if config.format != "csv" && config.format != "parquet" {
		return fmt.Errorf("unsupported format: %s", config.format)
	}
	if err := os.MkdirAll(config.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	mem := memory.NewGoAllocator()

	for _, s := range samples.All() {
		legacy, cloud, err := s.Tables(mem)
		if err != nil {
			return err
		}
		err = writePair(ctx, config, s.Name, legacy, cloud)
		legacy.Release()
		cloud.Release()
		if err != nil {
			return err
		}
	}

	legacy, cloud, err := Synthetic(mem, SyntheticOptions{Rows: config.rows, Seed: config.seed, DriftRate: config.driftRate})
	if err != nil {
		return err
	}
	defer legacy.Release()
	defer cloud.Release()
	return writePair(ctx, config, "synthetic", legacy, cloud)
}

func writePair(ctx context.Context, config Config, name string, legacy, cloud *table.Table) error {
	for side, t := range map[string]*table.Table{"legacy": legacy, "cloud": cloud} {
		path := filepath.Join(config.outputDir, fmt.Sprintf("%s_%s.%s", name, side, config.format))
		if err := writeTable(ctx, config.format, path, t); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("Wrote %s (%d rows)", path, t.NumRows())
	}
	return nil
}

func writeTable(ctx context.Context, format, path string, t *table.Table) error {
	if format == "parquet" {
		return writers.WriteTable(ctx, core.WriterConfig{Type: "parquet", Path: path}, t)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f, t.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := w.Write(t.Record()); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
