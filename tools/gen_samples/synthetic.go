package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/TFMV/reconcile/pkg/table"
)

// customerNamespace seeds the deterministic external references.
var customerNamespace = uuid.MustParse("6f0c1c52-5d7e-4e63-9a43-3f3b7a1f2d10")

var customerSchema = arrow.NewSchema([]arrow.Field{
	{Name: "customer_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "external_ref", Type: arrow.BinaryTypes.String},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "email", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "balance", Type: arrow.PrimitiveTypes.Float64},
	{Name: "active", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "signup_date", Type: arrow.FixedWidthTypes.Date32},
}, nil)

// SyntheticOptions shapes the synthetic pair.
type SyntheticOptions struct {
	Rows      int
	Seed      int64
	DriftRate float64
}

// Drift counts what Synthetic changed between the two tables.
type Drift struct {
	Changed    int
	Dropped    int
	Added      int
	Duplicated int
}

// Synthetic builds a legacy customer table and a cloud copy with drift: changed
// balances and emails, dropped rows, new rows and one duplicated row.
func Synthetic(mem memory.Allocator, opts SyntheticOptions) (legacy, cloud *table.Table, err error) {
	legacyRows, cloudRows, _ := syntheticRows(opts)
	legacy, err = table.Build(mem, customerSchema, legacyRows)
	if err != nil {
		return nil, nil, fmt.Errorf("synthetic legacy: %w", err)
	}
	cloud, err = table.Build(mem, customerSchema, cloudRows)
	if err != nil {
		legacy.Release()
		return nil, nil, fmt.Errorf("synthetic cloud: %w", err)
	}
	return legacy, cloud, nil
}

func syntheticRows(opts SyntheticOptions) (legacy, cloud [][]any, drift Drift) {
	faker := gofakeit.New(opts.Seed)
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	customer := func(id int) []any {
		var email any = faker.Email()
		if faker.Number(1, 50) == 1 {
			email = nil
		}
		return []any{
			int64(id),
			uuid.NewSHA1(customerNamespace, []byte(strconv.Itoa(id))).String(),
			faker.Name(),
			email,
			faker.Price(0, 10000),
			faker.Bool(),
			faker.DateRange(start, end),
		}
	}

	for id := 1; id <= opts.Rows; id++ {
		row := customer(id)
		legacy = append(legacy, row)

		roll := faker.Float64Range(0, 1)
		switch {
		case roll < opts.DriftRate/4:
			drift.Dropped++
			continue
		case roll < opts.DriftRate:
			changed := append([]any(nil), row...)
			if faker.Bool() {
				changed[4] = row[4].(float64) + faker.Price(1, 100)
			} else {
				changed[3] = faker.Email()
			}
			cloud = append(cloud, changed)
			drift.Changed++
		default:
			cloud = append(cloud, row)
		}
	}

	added := int(float64(opts.Rows) * opts.DriftRate / 4)
	for i := 1; i <= added; i++ {
		cloud = append(cloud, customer(opts.Rows+i))
		drift.Added++
	}
	if len(cloud) > 0 {
		cloud = append(cloud, cloud[len(cloud)/2])
		drift.Duplicated++
	}
	return legacy, cloud, drift
}
