package runstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLoadRun(t *testing.T) {
	s := openTestStore(t)

	id, err := s.RecordRun("singapore.osm.pbf", 500000, 1200000, 300000, 42*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := s.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, id, run.ID)
	require.EqualValues(t, 500000, run.NumNodes)
	require.Equal(t, int64(42000), run.BuildDurationMs)
}

func TestLatestRunEmpty(t *testing.T) {
	s := openTestStore(t)
	run, err := s.LatestRun()
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestRecordAndLoadQueries(t *testing.T) {
	s := openTestStore(t)
	runID, err := s.RecordRun("kl.osm.pbf", 1000, 2000, 300, time.Second)
	require.NoError(t, err)

	require.NoError(t, s.RecordQuery(Query{RunID: runID, SrcNode: 1, DstNode: 2, Cost: 500, Hops: 3, ElapsedMicros: 120}))
	require.NoError(t, s.RecordQuery(Query{RunID: runID, SrcNode: 3, DstNode: 4, Cost: 800, Hops: 5, ElapsedMicros: 200}))

	latencies, err := s.QueryLatencies(runID)
	require.NoError(t, err)
	require.Equal(t, []int64{120, 200}, latencies)
}
