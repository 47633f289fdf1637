package rundb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/logisim/internal/sim"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.StartRun("run-1", "warehouse", time.Now()))
	require.NoError(t, db.RecordTick("run-1", 1, sim.Stats{Moves: 2}))
	require.NoError(t, db.RecordTick("run-1", 2, sim.Stats{Moves: 4, Pickups: 1}))

	final := sim.Stats{Ticks: 2, Moves: 4, Pickups: 1, Dropoffs: 1, DeadlocksResolved: 3}
	require.NoError(t, db.FinishRun("run-1", final, 1, 1, 1500*time.Millisecond))

	sums, err := db.Summaries()
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "run-1", sums[0].RunID)
	assert.Equal(t, "warehouse", sums[0].Scenario)
	assert.Equal(t, 4, sums[0].Moves)
	assert.Equal(t, 1, sums[0].Delivered)
	assert.Equal(t, 3, sums[0].Deadlocks)
	assert.Equal(t, int64(1500), sums[0].ElapsedMs)
	assert.NotEmpty(t, sums[0].FinishedAt)

	ticks, err := db.TickStats("run-1")
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, 1, ticks[0].Tick)
	assert.Equal(t, 2, ticks[0].Stats.Moves)
	assert.Equal(t, 1, ticks[1].Stats.Pickups)
}

func TestFinishUnknownRun(t *testing.T) {
	db := openTestDB(t)
	err := db.FinishRun("ghost", sim.Stats{}, 0, 0, 0)
	assert.Error(t, err)
}

func TestSummariesSpanMultipleRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.StartRun("run-a", "s1", base))
	require.NoError(t, db.StartRun("run-b", "s2", base.Add(time.Hour)))

	sums, err := db.Summaries()
	require.NoError(t, err)
	require.Len(t, sums, 2)
	// Most recent first.
	assert.Equal(t, "run-b", sums[0].RunID)
	assert.Empty(t, sums[0].FinishedAt)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
