package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/memory"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories.db")
	idx, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestInsertAndSearchByAppAndTag(t *testing.T) {
	idx := openTestIndex(t)

	require.NoError(t, idx.Insert(memory.Entry{
		TaskID: "t_1", TaskName: "search the web", Outcome: "success",
		DurationSec: 5, PrimaryApp: "example.com", Tags: []string{"web", "search"},
	}))
	require.NoError(t, idx.Insert(memory.Entry{
		TaskID: "t_2", TaskName: "edit a document", Outcome: "fail",
		DurationSec: 8, PrimaryApp: "Notepad", Tags: []string{"interaction"},
	}))

	results, ok, err := idx.Search("", "example.com", "", 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "t_1", results[0].TaskID)

	results, ok, err = idx.Search("", "", "interaction", 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "t_2", results[0].TaskID)
}

func TestStatsAggregatesAcrossEntries(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Insert(memory.Entry{TaskID: "t_1", Outcome: "success", DurationSec: 10, StepCount: 3, PrimaryApp: "A", Tags: []string{"web"}}))
	require.NoError(t, idx.Insert(memory.Entry{TaskID: "t_2", Outcome: "fail", DurationSec: 20, StepCount: 5, PrimaryApp: "B", Tags: []string{"web"}}))

	stats, ok, err := idx.Stats()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50.0, stats.SuccessRatePct)
	assert.Equal(t, 2, stats.TopTags["web"])
}

func TestInsertUpsertsOnDuplicateTaskID(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Insert(memory.Entry{TaskID: "t_1", Outcome: "fail", PrimaryApp: "A"}))
	require.NoError(t, idx.Insert(memory.Entry{TaskID: "t_1", Outcome: "success", PrimaryApp: "A"}))

	stats, _, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 100.0, stats.SuccessRatePct)
}
