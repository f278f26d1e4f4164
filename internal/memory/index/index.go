// Package index provides a SQLite-backed secondary index over the memory
// store's JSONL file, so Recall/RecallStats can run as SQL queries instead
// of a full file scan once the knowledge base grows past a few thousand
// entries. The JSONL file remains the source of truth; the index is a
// derived, rebuildable accelerator.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nexusdaemon/nexus/internal/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	task_id TEXT PRIMARY KEY,
	task_name TEXT NOT NULL,
	outcome TEXT NOT NULL,
	duration_sec REAL NOT NULL,
	completed_at TEXT NOT NULL,
	step_count INTEGER NOT NULL,
	primary_app TEXT NOT NULL,
	tags TEXT NOT NULL,
	payload TEXT NOT NULL,
	rowid_seq INTEGER
);
CREATE INDEX IF NOT EXISTS idx_memories_primary_app ON memories(primary_app);
CREATE INDEX IF NOT EXISTS idx_memories_outcome ON memories(outcome);
`

// Index is a sqlx-backed implementation of memory.Index.
type Index struct {
	db  *sqlx.DB
	seq int64
}

// Open creates/migrates the sqlite database at path and returns an Index.
func Open(path string) (*Index, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open memory index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate memory index: %w", err)
	}
	if err := ensureColumn(db.DB, "memories", "rowid_seq", "INTEGER"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure rowid_seq column: %w", err)
	}

	idx := &Index{db: db}
	var maxSeq sql.NullInt64
	if err := db.Get(&maxSeq, "SELECT MAX(rowid_seq) FROM memories"); err == nil {
		idx.seq = maxSeq.Int64
	}
	return idx, nil
}

func (idx *Index) Close() error { return idx.db.Close() }

type row struct {
	TaskID      string `db:"task_id"`
	TaskName    string `db:"task_name"`
	Outcome     string `db:"outcome"`
	DurationSec float64 `db:"duration_sec"`
	CompletedAt string `db:"completed_at"`
	StepCount   int    `db:"step_count"`
	PrimaryApp  string `db:"primary_app"`
	Tags        string `db:"tags"`
	Payload     string `db:"payload"`
	RowSeq      int64  `db:"rowid_seq"`
}

// Insert upserts one compacted memory entry into the index.
func (idx *Index) Insert(e memory.Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	idx.seq++
	_, err = idx.db.NamedExec(`
		INSERT INTO memories (task_id, task_name, outcome, duration_sec, completed_at, step_count, primary_app, tags, payload, rowid_seq)
		VALUES (:task_id, :task_name, :outcome, :duration_sec, :completed_at, :step_count, :primary_app, :tags, :payload, :rowid_seq)
		ON CONFLICT(task_id) DO UPDATE SET
			task_name=excluded.task_name, outcome=excluded.outcome, duration_sec=excluded.duration_sec,
			completed_at=excluded.completed_at, step_count=excluded.step_count, primary_app=excluded.primary_app,
			tags=excluded.tags, payload=excluded.payload, rowid_seq=excluded.rowid_seq
	`, row{
		TaskID: e.TaskID, TaskName: e.TaskName, Outcome: e.Outcome, DurationSec: e.DurationSec,
		CompletedAt: e.CompletedAt, StepCount: e.StepCount, PrimaryApp: e.PrimaryApp,
		Tags: strings.Join(e.Tags, ","), Payload: string(payload), RowSeq: idx.seq,
	})
	return err
}

// Search runs the AND-filter substring query as SQL, newest first.
func (idx *Index) Search(query, app, tag string, limit int) ([]memory.Entry, bool, error) {
	sqlQuery := "SELECT payload FROM memories WHERE 1=1"
	var args []any
	if query != "" {
		sqlQuery += " AND task_name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+query+"%")
	}
	if app != "" {
		sqlQuery += " AND primary_app LIKE ? COLLATE NOCASE"
		args = append(args, "%"+app+"%")
	}
	if tag != "" {
		sqlQuery += " AND (',' || tags || ',') LIKE ? COLLATE NOCASE"
		args = append(args, "%,"+tag+",%")
	}
	sqlQuery += " ORDER BY rowid_seq DESC LIMIT ?"
	args = append(args, limit)

	var payloads []string
	if err := idx.db.Select(&payloads, sqlQuery, args...); err != nil {
		return nil, true, err
	}

	out := make([]memory.Entry, 0, len(payloads))
	for _, p := range payloads {
		var e memory.Entry
		if json.Unmarshal([]byte(p), &e) != nil {
			continue
		}
		out = append(out, e)
	}
	return out, true, nil
}

// Stats aggregates outcome/app/tag counts via SQL instead of scanning the
// whole memory store into process memory.
func (idx *Index) Stats() (memory.Stats, bool, error) {
	var total int
	if err := idx.db.Get(&total, "SELECT COUNT(*) FROM memories"); err != nil {
		return memory.Stats{}, true, err
	}
	if total == 0 {
		return memory.Stats{}, true, nil
	}

	outcomes, err := idx.countBy("outcome")
	if err != nil {
		return memory.Stats{}, true, err
	}
	apps, err := idx.countBy("primary_app")
	if err != nil {
		return memory.Stats{}, true, err
	}

	var avgDuration, avgSteps float64
	if err := idx.db.Get(&avgDuration, "SELECT COALESCE(AVG(duration_sec), 0) FROM memories"); err != nil {
		return memory.Stats{}, true, err
	}
	if err := idx.db.Get(&avgSteps, "SELECT COALESCE(AVG(step_count), 0) FROM memories"); err != nil {
		return memory.Stats{}, true, err
	}

	var allTags []string
	if err := idx.db.Select(&allTags, "SELECT tags FROM memories WHERE tags != ''"); err != nil {
		return memory.Stats{}, true, err
	}
	tagCounts := map[string]int{}
	for _, t := range allTags {
		for _, tag := range strings.Split(t, ",") {
			if tag != "" {
				tagCounts[tag]++
			}
		}
	}

	success := outcomes["success"]
	return memory.Stats{
		Total:          total,
		SuccessRatePct: round1(float64(success) / float64(total) * 100),
		Outcomes:       outcomes,
		TopApps:        topN(apps, 5),
		TopTags:        topN(tagCounts, 10),
		AvgDurationSec: round1(avgDuration),
		AvgSteps:       round1(avgSteps),
	}, true, nil
}

func (idx *Index) countBy(column string) (map[string]int, error) {
	type countRow struct {
		Value string `db:"value"`
		N     int    `db:"n"`
	}
	var rows []countRow
	if err := idx.db.Select(&rows, fmt.Sprintf("SELECT %s AS value, COUNT(*) AS n FROM memories GROUP BY %s", column, column)); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Value] = r.N
	}
	return out, nil
}

func topN(counts map[string]int, n int) map[string]int {
	type kv struct {
		k string
		v int
	}
	items := make([]kv, 0, len(counts))
	for k, v := range counts {
		items = append(items, kv{k, v})
	}
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && (items[j].v > items[j-1].v || (items[j].v == items[j-1].v && items[j].k < items[j-1].k)); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make(map[string]int, len(items))
	for _, it := range items {
		out[it.k] = it.v
	}
	return out
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// ensureColumn adds a column to a table if it doesn't already exist, so
// opening an index built by an older schema version migrates in place.
func ensureColumn(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
