package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrajectoryLine(t *testing.T, dir, date string, entry TrajectoryEntry) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, date+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	_, err = f.Write(append(data, '\n'))
	require.NoError(t, err)
}

func TestCompactTaskBuildsStepsAndTags(t *testing.T) {
	base := t.TempDir()
	trajDir := filepath.Join(base, "trajectories")
	knowledgeDir := filepath.Join(base, "knowledge")
	store := New(trajDir, knowledgeDir, nil)

	today := nowDate()
	writeTrajectoryLine(t, trajDir, today, TrajectoryEntry{
		Cmd: "web-navigate", Kwargs: map[string]any{"url": "https://example.com"},
		AppContext: "example.com", TaskID: "t_1",
	})
	writeTrajectoryLine(t, trajDir, today, TrajectoryEntry{
		Cmd: "web-click", Kwargs: map[string]any{"text": "Login"},
		AppContext: "example.com", TaskID: "t_1",
	})

	mem, err := store.CompactTask("t_1", "log into the site", "success", 12.3)
	require.NoError(t, err)
	assert.Equal(t, "t_1", mem["task_id"])
	assert.EqualValues(t, 2, mem["step_count"])
	assert.Equal(t, "example.com", mem["primary_app"])
	assert.Contains(t, mem["tags"], "web")
}

func TestRecallFiltersByAppAndQuery(t *testing.T) {
	base := t.TempDir()
	trajDir := filepath.Join(base, "trajectories")
	knowledgeDir := filepath.Join(base, "knowledge")
	store := New(trajDir, knowledgeDir, nil)

	today := nowDate()
	writeTrajectoryLine(t, trajDir, today, TrajectoryEntry{
		Cmd: "click", Kwargs: map[string]any{"x": 1, "y": 2}, AppContext: "Notepad", TaskID: "t_a",
	})
	_, err := store.CompactTask("t_a", "edit a document", "success", 5)
	require.NoError(t, err)

	writeTrajectoryLine(t, trajDir, today, TrajectoryEntry{
		Cmd: "web-click", Kwargs: map[string]any{"text": "Go"}, AppContext: "example.com", TaskID: "t_b",
	})
	_, err = store.CompactTask("t_b", "search the web", "fail", 8)
	require.NoError(t, err)

	results, err := store.Recall("", "example.com", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t_b", results[0].TaskID)

	results, err = store.Recall("document", "", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t_a", results[0].TaskID)
}

func TestRecallStatsAggregates(t *testing.T) {
	base := t.TempDir()
	trajDir := filepath.Join(base, "trajectories")
	knowledgeDir := filepath.Join(base, "knowledge")
	store := New(trajDir, knowledgeDir, nil)

	_, err := store.CompactTask("t_1", "task one", "success", 10)
	require.NoError(t, err)
	_, err = store.CompactTask("t_2", "task two", "fail", 20)
	require.NoError(t, err)

	stats, err := store.RecallStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50.0, stats.SuccessRatePct)
}

func nowDate() string {
	return time.Now().Format("2006-01-02")
}
