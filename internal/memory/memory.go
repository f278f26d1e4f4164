// Package memory compacts a finished task's trajectory entries into a
// structured, queryable memory and supports recalling past memories by
// task name, app, or tag. Zero external calls — pure local string
// processing, mirroring cortex/memory.py.
package memory

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Entry is one compacted memory record. PrimaryApp names the dominant
// application/URL context across the task's steps.
type Entry struct {
	TaskID        string   `json:"task_id"`
	TaskName      string   `json:"task_name"`
	Outcome       string   `json:"outcome"`
	DurationSec   float64  `json:"duration_sec"`
	CompletedAt   string   `json:"completed_at"`
	StepCount     int      `json:"step_count"`
	StepsSummary  []string `json:"steps_summary"`
	KeyActions    []string `json:"key_actions"`
	AppsUsed      []string `json:"apps_used"`
	PrimaryApp    string   `json:"primary_app"`
	Tags          []string `json:"tags"`
}

// stepCommands are the meaningful action steps counted toward a task,
// excluding lifecycle/meta commands.
var stepCommands = map[string]bool{
	"describe": true, "windows": true, "find": true, "focused": true,
	"web-describe": true, "web-text": true, "web-find": true, "web-links": true, "web-tabs": true,
	"web-ax": true, "web-measure": true, "web-markdown": true, "web-research": true, "web-capture-api": true,
	"ocr-region": true, "ocr-screen": true,
	"screenshot": true, "click": true, "move": true, "drag": true, "type": true, "key": true, "scroll": true,
	"click-element": true, "click-mark": true,
	"web-click": true, "web-navigate": true, "web-input": true, "web-pdf": true,
	"ps-run": true, "com-shell": true, "com-excel": true, "com-word": true, "com-outlook": true,
	"electron-detect": true, "electron-connect": true, "electron-targets": true,
	"info": true,
}

// tagRules maps an auto-tag to the set of commands whose use implies it.
var tagRules = map[string]map[string]bool{
	"web": set("web-describe", "web-text", "web-find", "web-links", "web-tabs",
		"web-ax", "web-measure", "web-markdown", "web-click", "web-navigate",
		"web-input", "web-pdf", "web-research", "web-capture-api"),
	"interaction": set("click", "type", "key", "scroll", "drag", "click-element",
		"click-mark", "web-click", "web-input"),
	"observation": set("describe", "windows", "find", "focused", "web-describe",
		"web-text", "web-ax", "screenshot", "ocr-region", "ocr-screen"),
	"office":   set("com-excel", "com-word", "com-outlook"),
	"system":   set("ps-run", "com-shell"),
	"electron": set("electron-detect", "electron-connect", "electron-targets"),
}

var keywordTags = map[string][]string{
	"navigation": {"navigate", "go to", "open", "visit"},
	"search":     {"search", "find", "look for", "locate"},
	"setup":      {"setup", "configure", "install", "settings"},
	"debug":      {"debug", "fix", "error", "bug", "troubleshoot"},
	"data":       {"data", "export", "import", "download", "upload"},
	"email":      {"email", "mail", "send", "inbox"},
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// primaryArgFormatters builds the "cmd arg" step description for commands
// with a primary positional argument.
var primaryArgFormatters = map[string]func(map[string]any) string{
	"click":         func(k map[string]any) string { return coord(k) },
	"move":          func(k map[string]any) string { return coord(k) },
	"type":          func(k map[string]any) string { return quote(strOf(k["text"]), 40) },
	"key":           func(k map[string]any) string { return strOf(k["keyname"]) },
	"scroll":        func(k map[string]any) string { return strOf(k["amount"]) },
	"click-element": func(k map[string]any) string { return quote(strOf(k["name"]), 40) },
	"click-mark":    func(k map[string]any) string { return strOf(k["mark_id"]) },
	"web-click":     func(k map[string]any) string { return quote(strOf(k["text"]), 40) },
	"web-navigate":  func(k map[string]any) string { return truncate(strOf(k["url"]), 60) },
	"web-input": func(k map[string]any) string {
		sel := strOf(k["selector"])
		if sel == "" {
			sel = "?"
		}
		return sel + "='" + truncate(strOf(k["value"]), 30) + "'"
	},
	"find":      func(k map[string]any) string { return quote(strOf(k["query"]), 40) },
	"web-find":  func(k map[string]any) string { return quote(strOf(k["query"]), 40) },
	"ps-run":    func(k map[string]any) string { return truncate(strOf(k["script"]), 50) },
	"com-shell": func(k map[string]any) string { return strOf(k["path"]) },
}

func coord(k map[string]any) string {
	x, y := "?", "?"
	if v, ok := k["x"]; ok {
		x = strOf(v)
	}
	if v, ok := k["y"]; ok {
		y = strOf(v)
	}
	return x + "," + y
}

func quote(s string, max int) string { return "'" + truncate(s, max) + "'" }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func strOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// TrajectoryEntry is the subset of a trajectory JSONL line memory cares about.
type TrajectoryEntry struct {
	Cmd        string         `json:"cmd"`
	Kwargs     map[string]any `json:"kwargs"`
	AppContext string         `json:"app_context"`
	TaskID     string         `json:"task_id"`
}

// Index is the narrow secondary-index surface Store uses to speed up
// Recall; a nil Index falls back to a full JSONL scan.
type Index interface {
	Insert(Entry) error
	Search(query, app, tag string, limit int) ([]Entry, bool, error)
	Stats() (Stats, bool, error)
}

// Stats mirrors recall_stats' aggregate output.
type Stats struct {
	Total          int
	SuccessRatePct float64
	Outcomes       map[string]int
	TopApps        map[string]int
	TopTags        map[string]int
	AvgDurationSec float64
	AvgSteps       float64
}

// Store reads/writes the JSONL trajectory and memory files under a data
// directory and optionally mirrors writes into a secondary Index.
type Store struct {
	trajDir      string
	knowledgeDir string
	memoriesFile string
	index        Index

	mu sync.Mutex
}

func New(trajDir, knowledgeDir string, index Index) *Store {
	return &Store{
		trajDir:      trajDir,
		knowledgeDir: knowledgeDir,
		memoriesFile: filepath.Join(knowledgeDir, "memories.jsonl"),
		index:        index,
	}
}

// CompactTask reads the task's trajectory entries, compacts them into a
// memory entry, appends it to the memories file (and the index, if any),
// and returns it as a generic map for callers composing daemon responses.
func (s *Store) CompactTask(taskID, taskName, outcome string, durationSec float64) (map[string]any, error) {
	entries := s.readTaskEntries(taskID)
	var steps []TrajectoryEntry
	for _, e := range entries {
		if stepCommands[e.Cmd] {
			steps = append(steps, e)
		}
	}

	mem := Entry{
		TaskID:       taskID,
		TaskName:     taskName,
		Outcome:      outcome,
		DurationSec:  durationSec,
		CompletedAt:  time.Now().Format("2006-01-02T15:04:05"),
		StepCount:    len(steps),
		StepsSummary: buildStepsSummary(steps),
		KeyActions:   extractKeyActions(steps),
		AppsUsed:     extractAppsUsed(steps),
		PrimaryApp:   primaryApp(steps),
		Tags:         autoTag(taskName, steps),
	}

	s.writeMemory(mem)

	if s.index != nil {
		_ = s.index.Insert(mem)
	}

	out, err := entryToMap(mem)
	return out, err
}

func entryToMap(e Entry) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) readTaskEntries(taskID string) []TrajectoryEntry {
	today := time.Now()
	dates := []string{today.Format("2006-01-02"), today.AddDate(0, 0, -1).Format("2006-01-02")}

	var out []TrajectoryEntry
	for _, date := range dates {
		path := filepath.Join(s.trajDir, date+".jsonl")
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var e TrajectoryEntry
			if json.Unmarshal([]byte(line), &e) != nil {
				continue
			}
			if e.TaskID == taskID {
				out = append(out, e)
			}
		}
		f.Close()
	}
	return out
}

func buildStepsSummary(entries []TrajectoryEntry) []string {
	steps := make([]string, 0, len(entries))
	for _, e := range entries {
		steps = append(steps, stepDescription(e.Cmd, e.Kwargs))
	}
	return steps
}

func stepDescription(cmd string, kwargs map[string]any) string {
	if formatter, ok := primaryArgFormatters[cmd]; ok {
		arg := formatter(kwargs)
		if arg != "" {
			return cmd + " " + arg
		}
		return cmd
	}
	if focus, ok := kwargs["focus"].(string); ok && focus != "" {
		return cmd + " --focus " + focus
	}
	return cmd
}

func extractKeyActions(entries []TrajectoryEntry) []string {
	seen := map[string]bool{}
	var actions []string
	for _, e := range entries {
		if e.Cmd != "" && !seen[e.Cmd] {
			seen[e.Cmd] = true
			actions = append(actions, e.Cmd)
		}
	}
	return actions
}

func extractAppsUsed(entries []TrajectoryEntry) []string {
	seen := map[string]bool{}
	var apps []string
	for _, e := range entries {
		ctx := e.AppContext
		if ctx != "" && ctx != "unknown" && !seen[ctx] {
			seen[ctx] = true
			apps = append(apps, ctx)
		}
	}
	return apps
}

func primaryApp(entries []TrajectoryEntry) string {
	if len(entries) == 0 {
		return "unknown"
	}
	counts := map[string]int{}
	for _, e := range entries {
		ctx := e.AppContext
		if ctx == "" {
			ctx = "unknown"
		}
		counts[ctx]++
	}
	if len(counts) > 1 {
		delete(counts, "unknown")
	}
	return maxKey(counts)
}

func maxKey(counts map[string]int) string {
	best, bestN := "", -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

func autoTag(taskName string, entries []TrajectoryEntry) []string {
	tags := map[string]bool{}
	cmdsUsed := map[string]bool{}
	for _, e := range entries {
		cmdsUsed[e.Cmd] = true
	}

	for tag, cmdSet := range tagRules {
		for cmd := range cmdsUsed {
			if cmdSet[cmd] {
				tags[tag] = true
				break
			}
		}
	}

	nameLower := strings.ToLower(taskName)
	for tag, keywords := range keywordTags {
		for _, kw := range keywords {
			if strings.Contains(nameLower, kw) {
				tags[tag] = true
				break
			}
		}
	}

	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Store) writeMemory(mem Entry) {
	defer func() { _ = recover() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.knowledgeDir, 0o755); err != nil {
		return
	}
	data, err := json.Marshal(mem)
	if err != nil {
		return
	}
	f, err := os.OpenFile(s.memoriesFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(data, '\n'))
}

// Recall searches memories by substring in task name or app, and by exact
// tag. Filters AND together; matching is case-insensitive; results are
// newest first.
// Uses the Index when available, falling back to a full JSONL scan.
func (s *Store) Recall(query, app, tag string, limit int) ([]Entry, error) {
	if s.index != nil {
		if results, ok, err := s.index.Search(query, app, tag, limit); ok {
			return results, err
		}
	}

	all, err := s.readAllMemories()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	queryLower := strings.ToLower(query)
	appLower := strings.ToLower(app)
	tagLower := strings.ToLower(tag)

	var matches []Entry
	for _, mem := range all {
		if query != "" && !strings.Contains(strings.ToLower(mem.TaskName), queryLower) {
			continue
		}
		if app != "" && !strings.Contains(strings.ToLower(mem.PrimaryApp), appLower) {
			continue
		}
		if tag != "" && !containsTagFold(mem.Tags, tagLower) {
			continue
		}
		matches = append(matches, mem)
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

func containsTagFold(tags []string, tagLower string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == tagLower {
			return true
		}
	}
	return false
}

func (s *Store) readAllMemories() ([]Entry, error) {
	f, err := os.Open(s.memoriesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if json.Unmarshal([]byte(line), &e) != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RecallStats aggregates outcome/app/tag stats across all memories.
func (s *Store) RecallStats() (Stats, error) {
	if s.index != nil {
		if stats, ok, err := s.index.Stats(); ok {
			return stats, err
		}
	}

	memories, err := s.readAllMemories()
	if err != nil || len(memories) == 0 {
		return Stats{}, err
	}

	total := len(memories)
	outcomes := map[string]int{}
	appCounts := map[string]int{}
	tagCounts := map[string]int{}
	var durationSum, stepSum float64
	successCount := 0

	for _, m := range memories {
		outcome := m.Outcome
		if outcome == "" {
			outcome = "unknown"
		}
		outcomes[outcome]++
		if outcome == "success" {
			successCount++
		}
		app := m.PrimaryApp
		if app == "" {
			app = "unknown"
		}
		appCounts[app]++
		for _, t := range m.Tags {
			tagCounts[t]++
		}
		durationSum += m.DurationSec
		stepSum += float64(m.StepCount)
	}

	return Stats{
		Total:          total,
		SuccessRatePct: round1(float64(successCount) / float64(total) * 100),
		Outcomes:       outcomes,
		TopApps:        topN(appCounts, 5),
		TopTags:        topN(tagCounts, 10),
		AvgDurationSec: round1(durationSum / float64(total)),
		AvgSteps:       round1(stepSum / float64(total)),
	}, nil
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
	sort.Slice(items, func(i, j int) bool {
		if items[i].v != items[j].v {
			return items[i].v > items[j].v
		}
		return items[i].k < items[j].k
	})
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
