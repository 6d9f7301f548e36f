// Package samples provides ready-made legacy/cloud dataset pairs that exercise each kind
// of difference the reconcile engine reports.
package samples

import (
	"fmt"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/reconcile/pkg/reconcile"
	"github.com/TFMV/reconcile/pkg/table"
)

type dataset struct {
	schema *arrow.Schema
	rows   [][]any
}

// Scenario is a named pair of datasets with the keys to compare them on.
type Scenario struct {
	Name        string
	Description string
	Keys        reconcile.KeyInput

	legacy dataset
	cloud  dataset
}

// Tables builds both datasets. The caller releases them.
func (s Scenario) Tables(mem memory.Allocator) (legacy, cloud *table.Table, err error) {
	legacy, err = table.Build(mem, s.legacy.schema, s.legacy.rows)
	if err != nil {
		return nil, nil, fmt.Errorf("%s legacy: %w", s.Name, err)
	}
	cloud, err = table.Build(mem, s.cloud.schema, s.cloud.rows)
	if err != nil {
		legacy.Release()
		return nil, nil, fmt.Errorf("%s cloud: %w", s.Name, err)
	}
	return legacy, cloud, nil
}

// Table builds one side's dataset. The caller releases it.
func (s Scenario) Table(mem memory.Allocator, side table.Side) (*table.Table, error) {
	d := s.legacy
	if side == table.Cloud {
		d = s.cloud
	}
	t, err := table.Build(mem, d.schema, d.rows)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.Name, side, err)
	}
	return t, nil
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	registry[s.Name] = s
}

// Get returns the scenario with the given name.
func Get(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names returns every scenario name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every scenario, sorted by name.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}

func schema(fields ...arrow.Field) *arrow.Schema {
	for i := range fields {
		fields[i].Nullable = true
	}
	return arrow.NewSchema(fields, nil)
}

func field(name string, dt arrow.DataType) arrow.Field {
	return arrow.Field{Name: name, Type: dt}
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pairedKeys(legacy, cloud string) reconcile.KeyInput {
	return reconcile.KeyInput{LegacyKey: legacy, CloudKey: cloud}
}

var (
	i64  = arrow.PrimitiveTypes.Int64
	f64  = arrow.PrimitiveTypes.Float64
	str  = arrow.BinaryTypes.String
	boo  = arrow.FixedWidthTypes.Boolean
	tsNs = &arrow.TimestampType{Unit: arrow.Nanosecond}
)
