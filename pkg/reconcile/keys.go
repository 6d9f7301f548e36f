package reconcile

import (
	"fmt"
	"strings"

	"github.com/TFMV/reconcile/pkg/table"
)

// KeySpec is the resolved join specification. It is either a SharedKey or PairedKeys.
type KeySpec interface {
	// LegacyColumns returns the key columns of the legacy table.
	LegacyColumns() []string
	// CloudColumns returns the key columns of the cloud table, aligned with LegacyColumns.
	CloudColumns() []string
	String() string

	keySpec()
}

// SharedKey joins on columns that carry the same names in both tables.
type SharedKey struct {
	Columns []string
}

func (k SharedKey) LegacyColumns() []string { return k.Columns }
func (k SharedKey) CloudColumns() []string  { return k.Columns }
func (k SharedKey) String() string          { return strings.Join(k.Columns, ", ") }
func (SharedKey) keySpec()                  {}

// PairedKeys joins Legacy[i] to Cloud[i].
type PairedKeys struct {
	Legacy []string
	Cloud  []string
}

func (k PairedKeys) LegacyColumns() []string { return k.Legacy }
func (k PairedKeys) CloudColumns() []string  { return k.Cloud }
func (PairedKeys) keySpec()                  {}

func (k PairedKeys) String() string {
	pairs := make([]string, len(k.Legacy))
	for i := range k.Legacy {
		pairs[i] = k.Legacy[i] + "=" + k.Cloud[i]
	}
	return strings.Join(pairs, ", ")
}

// NewSharedKey returns a SharedKey on the given columns.
func NewSharedKey(columns ...string) (SharedKey, error) {
	if len(columns) == 0 {
		return SharedKey{}, configError(ErrMissingKeySpecification, "no join columns")
	}
	for _, c := range columns {
		if c == "" {
			return SharedKey{}, configError(ErrInvalidKeyType, "join column names must not be empty")
		}
	}
	return SharedKey{Columns: append([]string(nil), columns...)}, nil
}

// NewPairedKeys returns PairedKeys for equal-length legacy and cloud column lists.
func NewPairedKeys(legacy, cloud []string) (PairedKeys, error) {
	if len(legacy) == 0 || len(cloud) == 0 {
		return PairedKeys{}, configError(ErrMissingKeySpecification, "both legacy and cloud keys are required")
	}
	if len(legacy) != len(cloud) {
		return PairedKeys{}, configError(ErrInvalidKeyType, "legacy and cloud key lists differ in length: %d vs %d", len(legacy), len(cloud))
	}
	for i := range legacy {
		if legacy[i] == "" || cloud[i] == "" {
			return PairedKeys{}, configError(ErrInvalidKeyType, "key column names must not be empty")
		}
	}
	return PairedKeys{
		Legacy: append([]string(nil), legacy...),
		Cloud:  append([]string(nil), cloud...),
	}, nil
}

// KeyInput is the user-facing key specification as decoded from flags, YAML or JSON.
// Either LegacyKey and CloudKey (one column name each) or JoinColumns (a name or a
// list of names present in both tables) must be set.
type KeyInput struct {
	LegacyKey   any `json:"legacy_key,omitempty" mapstructure:"legacy_key"`
	CloudKey    any `json:"cloud_key,omitempty" mapstructure:"cloud_key"`
	JoinColumns any `json:"join_columns,omitempty" mapstructure:"join_columns"`
}

// ResolveKeys validates in and returns its canonical KeySpec. When both forms are
// present the legacy/cloud pair wins. Column existence is not checked here.
func ResolveKeys(in KeyInput) (KeySpec, error) {
	if in.LegacyKey != nil && in.CloudKey != nil {
		l, lok := in.LegacyKey.(string)
		c, cok := in.CloudKey.(string)
		if !lok || !cok || l == "" || c == "" {
			return nil, configError(ErrInvalidKeyType, "legacy_key and cloud_key must be column names, got %T and %T", in.LegacyKey, in.CloudKey)
		}
		return NewPairedKeys([]string{l}, []string{c})
	}

	if in.JoinColumns != nil {
		cols, ok := stringList(in.JoinColumns)
		if !ok {
			return nil, configError(ErrInvalidKeyType, "join_columns must be a column name or a list of names, got %T", in.JoinColumns)
		}
		return NewSharedKey(cols...)
	}

	return nil, configError(ErrMissingKeySpecification, "provide legacy_key and cloud_key, or join_columns")
}

func stringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, false
		}
		return []string{x}, true
	case []string:
		return x, len(x) > 0
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok || s == "" {
				return nil, false
			}
			out = append(out, s)
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// ValidateKeys checks that every key column exists in its table.
func ValidateKeys(keys KeySpec, legacy, cloud *table.Table) error {
	for _, name := range keys.LegacyColumns() {
		if !legacy.HasColumn(name) {
			return &KeyColumnError{Column: name, Side: table.Legacy}
		}
	}
	for _, name := range keys.CloudColumns() {
		if !cloud.HasColumn(name) {
			return &KeyColumnError{Column: name, Side: table.Cloud}
		}
	}
	return nil
}

// keyNames returns every key column name of either side.
func keyNames(keys KeySpec) map[string]bool {
	names := make(map[string]bool)
	for _, n := range keys.LegacyColumns() {
		names[n] = true
	}
	for _, n := range keys.CloudColumns() {
		names[n] = true
	}
	return names
}

func describeKeys(keys KeySpec) string {
	switch k := keys.(type) {
	case SharedKey:
		return fmt.Sprintf("shared(%s)", k)
	case PairedKeys:
		return fmt.Sprintf("paired(%s)", k)
	default:
		return "unknown"
	}
}
