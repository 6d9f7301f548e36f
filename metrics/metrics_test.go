package metrics

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/reconcile/pkg/reconcile"
)

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, Clean, outcomeOf(reconcile.Summary{}))
	assert.Equal(t, Diverged, outcomeOf(reconcile.Summary{MismatchedValues: 1}))
	assert.Equal(t, Diverged, outcomeOf(reconcile.Summary{RowCounts: reconcile.RowCounts{LegacyDifference: 2}}))
	assert.Equal(t, Diverged, outcomeOf(reconcile.Summary{Schema: reconcile.SchemaDiff{MissingFromCloud: []string{"a"}}}))
	assert.Equal(t, Degraded, outcomeOf(reconcile.Summary{
		MismatchedValues: 1,
		Warnings:         []reconcile.Warning{{Kind: reconcile.KeyTypeMismatch}},
	}))
}

func TestFinishWithError(t *testing.T) {
	run := NewRun("samples/identical")
	assert.NotEmpty(t, run.ID)

	done := run.Finish(nil, errors.New("boom"))
	assert.Equal(t, Failed, done.Outcome)
	assert.Equal(t, "boom", done.Error)
	assert.False(t, done.EndTime.Before(done.StartTime))
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector(nil)
	assert.Zero(t, c.Snapshot().Runs)
	assert.Nil(t, c.Snapshot().LastRun)

	require.NoError(t, c.Record(context.Background(), RunRecord{ID: "a", Outcome: Clean, Duration: time.Second}))
	require.NoError(t, c.Record(context.Background(), RunRecord{ID: "b", Outcome: Diverged, Duration: 3 * time.Second}))

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Runs)
	assert.Equal(t, int64(1), s.ByOutcome[Clean])
	assert.Equal(t, int64(1), s.ByOutcome[Diverged])
	assert.Equal(t, 4*time.Second, s.TotalDuration)
	assert.Equal(t, 2*time.Second, s.AverageDuration)
	require.NotNil(t, s.LastRun)
	assert.Equal(t, "b", s.LastRun.ID)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Record(context.Background(), RunRecord{Outcome: Clean})
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Snapshot().Runs)
}

func TestJSONMetricsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	c := NewCollector(&JSONMetricsStore{FilePath: path})

	require.NoError(t, c.Record(context.Background(), RunRecord{ID: "one", Outcome: Clean}))
	require.NoError(t, c.Record(context.Background(), RunRecord{ID: "two", Outcome: Failed, Error: "bad"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var run RunRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &run))
		ids = append(ids, run.ID)
	}
	assert.Equal(t, []string{"one", "two"}, ids)
}

func TestJSONMetricsStoreWriter(t *testing.T) {
	var buf bytes.Buffer
	store := &JSONMetricsStore{Out: &buf}
	require.NoError(t, store.Save(RunRecord{ID: "x"}))
	assert.Contains(t, buf.String(), `"id":"x"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.SaveWithContext(ctx, RunRecord{}), context.Canceled)
}
