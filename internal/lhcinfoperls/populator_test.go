package lhcinfoperls

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/popcon/internal/common/cond"
	"github.com/armadaproject/popcon/internal/common/conddb"
)

const testTag = "LHCInfoPerLS_test"

func openStore(t *testing.T, f *fixture) *conddb.Store {
	store, err := conddb.Open(context.Background(), filepath.Join(t.TempDir(), "conddb.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.WithClock(f.clock)
}

func (f *fixture) populator(store *conddb.Store, endFill bool) *Populator {
	return NewPopulator(testTag, "test", store, f.driver(testConfig(endFill)), f.clock, f.metrics)
}

func storedSinces(t *testing.T, store *conddb.Store) []cond.Time {
	iovs, err := store.ListIovs(context.Background(), testTag, 0, 0)
	require.NoError(t, err)
	result := make([]cond.Time, 0, len(iovs))
	for _, i := range iovs {
		result = append(result, i.Since)
	}
	return result
}

func TestPopulator_Run(t *testing.T) {
	f := newFixture(1000).
		fill(1, 100, 200).
		lumi(1, 120, 10, 1, true).
		lumi(1, 150, 10, 2, true).
		opticsRow(140, 10, 2, 150, 0.3).
		fill(2, 300, 400).
		lumi(2, 350, 11, 1, true)
	store := openStore(t, f)

	written, err := f.populator(store, true).Run(testContext())
	require.NoError(t, err)
	assert.Equal(t, 6, written)
	assert.Equal(t, []cond.Time{1, since(120), since(150), since(200), since(350), since(400)}, storedSinces(t, store))

	info, err := store.TagInfo(context.Background(), testTag)
	require.NoError(t, err)
	last, err := conddb.FetchPayload[LHCInfoPerLS](context.Background(), store, ObjectType, info.LastInterval.PayloadId)
	require.NoError(t, err)
	assert.True(t, last.IsEmpty())

	iovs, err := store.ListIovs(context.Background(), testTag, since(150), 1)
	require.NoError(t, err)
	require.Len(t, iovs, 1)
	enriched, err := conddb.FetchPayload[LHCInfoPerLS](context.Background(), store, ObjectType, iovs[0].PayloadId)
	require.NoError(t, err)
	assert.Equal(t, withOptics(1, 10, 2, 150, 0.3), enriched)

	executions, err := store.ListExecutions(context.Background(), testTag, 0)
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, conddb.ExecutionSucceeded, executions[0].Status)
	assert.Equal(t, 6, executions[0].IovsWritten)
	assert.Equal(t, "test", executions[0].Handler)
}

func TestPopulator_IsIdempotent(t *testing.T) {
	f := newFixture(1000).
		fill(1, 100, 200).
		lumi(1, 120, 10, 1, true).
		fill(2, 300, 400).
		lumi(2, 350, 11, 1, true)
	store := openStore(t, f)

	written, err := f.populator(store, true).Run(testContext())
	require.NoError(t, err)
	assert.Equal(t, 5, written)

	written, err = f.populator(store, true).Run(testContext())
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.Len(t, storedSinces(t, store), 5)

	executions, err := store.ListExecutions(context.Background(), testTag, 0)
	require.NoError(t, err)
	assert.Len(t, executions, 2)
}

func TestPopulator_ContinuesOngoingFill(t *testing.T) {
	f := newFixture(500).
		fill(2, 300, ongoing).
		lumi(2, 400, 20, 1, true)
	store := openStore(t, f)

	written, err := f.populator(store, false).Run(testContext())
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, []cond.Time{1, since(400)}, storedSinces(t, store))

	// Later in the fill the optics change
	f.clock.SetTime(at(800))
	f.lumi(2, 700, 20, 2, true).opticsRow(650, 20, 2, 140, 0.3)

	written, err = f.populator(store, false).Run(testContext())
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Equal(t, []cond.Time{1, since(400), since(700)}, storedSinces(t, store))
}

func TestPopulator_StoreFailure(t *testing.T) {
	f := newFixture(1000).fill(1, 100, 200).lumi(1, 150, 10, 1, true)
	store := openStore(t, f)
	require.NoError(t, store.Close())

	_, err := f.populator(store, true).Run(testContext())
	assert.Error(t, err)
}
