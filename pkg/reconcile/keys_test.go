package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/pkg/table"
)

func TestResolveKeys(t *testing.T) {
	tests := []struct {
		name    string
		in      KeyInput
		want    KeySpec
		wantErr error
	}{
		{
			name: "paired scalar keys",
			in:   KeyInput{LegacyKey: "employee_id", CloudKey: "id"},
			want: PairedKeys{Legacy: []string{"employee_id"}, Cloud: []string{"id"}},
		},
		{
			name: "join column name",
			in:   KeyInput{JoinColumns: "id"},
			want: SharedKey{Columns: []string{"id"}},
		},
		{
			name: "join column list",
			in:   KeyInput{JoinColumns: []string{"region", "quarter"}},
			want: SharedKey{Columns: []string{"region", "quarter"}},
		},
		{
			name: "join column list decoded from yaml",
			in:   KeyInput{JoinColumns: []any{"region", "quarter"}},
			want: SharedKey{Columns: []string{"region", "quarter"}},
		},
		{
			name: "paired form wins over join columns",
			in:   KeyInput{LegacyKey: "a", CloudKey: "b", JoinColumns: "c"},
			want: PairedKeys{Legacy: []string{"a"}, Cloud: []string{"b"}},
		},
		{
			name:    "nothing supplied",
			in:      KeyInput{},
			wantErr: ErrMissingKeySpecification,
		},
		{
			name:    "only one scalar key",
			in:      KeyInput{LegacyKey: "id"},
			wantErr: ErrMissingKeySpecification,
		},
		{
			name:    "scalar key is not a string",
			in:      KeyInput{LegacyKey: 1, CloudKey: "id"},
			wantErr: ErrInvalidKeyType,
		},
		{
			name:    "scalar key is a list",
			in:      KeyInput{LegacyKey: []string{"id"}, CloudKey: []string{"id"}},
			wantErr: ErrInvalidKeyType,
		},
		{
			name:    "join columns of the wrong type",
			in:      KeyInput{JoinColumns: 42},
			wantErr: ErrInvalidKeyType,
		},
		{
			name:    "join columns with a non-string item",
			in:      KeyInput{JoinColumns: []any{"id", 7}},
			wantErr: ErrInvalidKeyType,
		},
		{
			name:    "empty join column list",
			in:      KeyInput{JoinColumns: []string{}},
			wantErr: ErrInvalidKeyType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveKeys(tt.in)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPairedKeys(t *testing.T) {
	_, err := NewPairedKeys([]string{"a", "b"}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidKeyType)

	_, err = NewPairedKeys(nil, []string{"a"})
	assert.ErrorIs(t, err, ErrMissingKeySpecification)

	_, err = NewPairedKeys([]string{""}, []string{"a"})
	assert.ErrorIs(t, err, ErrInvalidKeyType)

	k, err := NewPairedKeys([]string{"account_id", "region"}, []string{"account_num", "region"})
	require.NoError(t, err)
	assert.Equal(t, "account_id=account_num, region=region", k.String())
	assert.Equal(t, "paired(account_id=account_num, region=region)", describeKeys(k))
}

func TestNewSharedKeyCopiesInput(t *testing.T) {
	cols := []string{"id"}
	k, err := NewSharedKey(cols...)
	require.NoError(t, err)
	cols[0] = "changed"
	assert.Equal(t, []string{"id"}, k.LegacyColumns())
	assert.Equal(t, []string{"id"}, k.CloudColumns())
	assert.Equal(t, "shared(id)", describeKeys(k))
}

func TestValidateKeys(t *testing.T) {
	legacy := build(t, fields("employee_id", i64, "name", str), []any{1, "a"})
	cloud := build(t, fields("id", i64, "name", str), []any{1, "a"})

	keys, err := NewPairedKeys([]string{"employee_id"}, []string{"id"})
	require.NoError(t, err)
	require.NoError(t, ValidateKeys(keys, legacy, cloud))

	err = ValidateKeys(mustShared(t, "id"), legacy, cloud)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyColumnNotFound)
	var kerr *KeyColumnError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, "id", kerr.Column)
	assert.Equal(t, table.Legacy, kerr.Side)
	assert.Equal(t, `key column "id" not found in legacy table`, err.Error())

	err = ValidateKeys(mustShared(t, "employee_id"), legacy, cloud)
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, table.Cloud, kerr.Side)
}
