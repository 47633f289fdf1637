package runlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parcelworks/logisim/internal/core"
	"github.com/parcelworks/logisim/internal/sim"
)

func TestRoundTrip(t *testing.T) {
	w, err := New(t.TempDir(), "unit")
	require.NoError(t, err)

	w.Observe(sim.Event{
		Tick:    1,
		Kind:    sim.EventMove,
		AgentID: 7,
		Agent:   "R7",
		From:    core.Cell{Row: 2, Col: 3},
		To:      core.Cell{Row: 2, Col: 4},
	})
	w.Observe(sim.Event{Tick: 2, Kind: sim.EventPickup, AgentID: 7, PackageID: 1})
	require.NoError(t, w.Finish(sim.Stats{Ticks: 2, Moves: 1, Pickups: 1}))

	recs, err := Read(w.Dir())
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, "start", recs[0].Type)
	assert.Equal(t, w.RunID(), recs[0].RunID)
	assert.Equal(t, "unit", recs[0].Scenario)

	assert.Equal(t, "event", recs[1].Type)
	assert.Equal(t, "MOVE", recs[1].Kind)
	assert.Equal(t, [2]int{2, 3}, recs[1].From)
	assert.Equal(t, [2]int{2, 4}, recs[1].To)

	assert.Equal(t, "PICKUP", recs[2].Kind)

	assert.Equal(t, "summary", recs[3].Type)
	require.NotNil(t, recs[3].Stats)
	assert.Equal(t, 1, recs[3].Stats.Moves)
}

func TestWriteAfterFinishIsDropped(t *testing.T) {
	w, err := New(t.TempDir(), "unit")
	require.NoError(t, err)
	require.NoError(t, w.Finish(sim.Stats{}))

	w.Observe(sim.Event{Tick: 99, Kind: sim.EventMove})

	recs, err := Read(w.Dir())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "summary", recs[1].Type)
}

func TestRunsGetDistinctDirectories(t *testing.T) {
	base := t.TempDir()
	a, err := New(base, "unit")
	require.NoError(t, err)
	b, err := New(base, "unit")
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.NotEqual(t, a.Dir(), b.Dir())
	require.NoError(t, a.Finish(sim.Stats{}))
	require.NoError(t, b.Finish(sim.Stats{}))
}
