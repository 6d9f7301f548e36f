package reconcile

import (
	"errors"
	"fmt"

	"github.com/TFMV/reconcile/pkg/table"
)

var (
	// ErrConfiguration is matched by every invalid or missing key specification.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingKeySpecification means neither key form was supplied.
	ErrMissingKeySpecification = errors.New("missing key specification")

	// ErrInvalidKeyType means a key was supplied with an unusable shape.
	ErrInvalidKeyType = errors.New("invalid key type")

	// ErrInvalidInput means an input is not a well-formed table.
	ErrInvalidInput = errors.New("invalid input")

	// ErrKeyColumnNotFound is matched by every *KeyColumnError.
	ErrKeyColumnNotFound = errors.New("key column not found")

	// ErrNotYetComputed is returned by accessors used before Compare.
	ErrNotYetComputed = errors.New("comparison not computed: call Compare first")
)

// KeyColumnError names a key column missing from one of the tables.
type KeyColumnError struct {
	Column string
	Side   table.Side
}

func (e *KeyColumnError) Error() string {
	return fmt.Sprintf("key column %q not found in %s table", e.Column, e.Side)
}

func (e *KeyColumnError) Unwrap() error {
	return ErrKeyColumnNotFound
}

func configError(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrConfiguration, kind, fmt.Sprintf(format, args...))
}

// WarningKind classifies a non-fatal condition recorded during a comparison.
type WarningKind string

const (
	// KeyTypeMismatch: join keys have different element types, so rows were not matched.
	KeyTypeMismatch WarningKind = "KeyTypeMismatch"

	// ValueComparisonFailure: paired columns could not be compared, so no value
	// mismatches were reported.
	ValueComparisonFailure WarningKind = "ValueComparisonFailure"
)

// Warning is a data-quality condition that degraded the comparison without aborting it.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Columns []string    `json:"columns,omitempty"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
