package samples

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/pkg/reconcile"
)

func TestScenariosBuild(t *testing.T) {
	require.Len(t, All(), 11)
	for _, s := range All() {
		t.Run(s.Name, func(t *testing.T) {
			legacy, cloud, err := s.Tables(nil)
			require.NoError(t, err)
			defer legacy.Release()
			defer cloud.Release()

			assert.NotEmpty(t, s.Description)
			keys, err := reconcile.ResolveKeys(s.Keys)
			require.NoError(t, err)
			require.NoError(t, reconcile.ValidateKeys(keys, legacy, cloud))
		})
	}
}

func TestGet(t *testing.T) {
	s, ok := Get("duplicates")
	require.True(t, ok)
	legacy, cloud, err := s.Tables(nil)
	require.NoError(t, err)
	defer legacy.Release()
	defer cloud.Release()
	assert.Equal(t, 6, legacy.NumRows())
	assert.Equal(t, 7, cloud.NumRows())

	_, ok = Get("missing")
	assert.False(t, ok)
	assert.Contains(t, Names(), "complex")
}
