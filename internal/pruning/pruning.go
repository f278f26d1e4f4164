// Package pruning applies per-command output-shrinking policies — auto
// diffing against the previous observation, auto-summarizing oversized
// element lists, soft-trimming long text fields, and suggesting a compact
// output format — mirroring cortex/pruning.py.
package pruning

import (
	"strconv"
	"strings"

	"github.com/nexusdaemon/nexus/internal/differ"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/summarize"
)

// SoftTrim describes a text-truncation policy for one command.
type SoftTrim struct {
	MaxChars  int
	HeadLines int
	TailLines int
}

// Policy is the pruning behavior for one command.
type Policy struct {
	MaxElements      int
	AutoDiff         bool
	SoftTrim         *SoftTrim
	PreferredFormat  string
	NeverPrune       bool
}

// policies is ported 1:1 from cortex/pruning.py's POLICIES table.
var policies = map[string]Policy{
	"describe":    {MaxElements: 80, AutoDiff: true, PreferredFormat: "compact"},
	"web-ax":      {MaxElements: 100, PreferredFormat: "compact"},
	"web-describe": {PreferredFormat: "compact"},
	"web-text":    {SoftTrim: &SoftTrim{MaxChars: 5000, HeadLines: 40, TailLines: 10}},
	"web-markdown": {SoftTrim: &SoftTrim{MaxChars: 8000, HeadLines: 60, TailLines: 15}},
	"web-links":   {MaxElements: 50, PreferredFormat: "compact"},
	"windows":     {PreferredFormat: "compact"},
	"find":        {MaxElements: 40, PreferredFormat: "compact"},
}

var neverPruneCommands = []string{
	"screenshot", "focused", "info", "ocr-region", "ocr-screen",
	"click", "move", "drag", "type", "key", "scroll",
	"click-element", "click-mark", "web-click", "web-navigate", "web-input",
	"web-pdf", "ps-run", "com-shell", "com-excel", "com-word", "com-outlook",
}

func init() {
	for _, cmd := range neverPruneCommands {
		policies[cmd] = Policy{NeverPrune: true}
	}
}

// GetPolicy returns the pruning policy for a command, or the zero Policy
// (no special handling) if the command isn't listed.
func GetPolicy(command string) Policy {
	return policies[command]
}

// DiffCache is the narrow cache surface the auto-diff step needs.
type DiffCache interface {
	GetForDiff(command string, kwargs map[string]any) (map[string]any, bool)
	Put(command string, kwargs map[string]any, result map[string]any)
}

// ApplyPolicy runs the four-step pruning pipeline in order: auto-diff,
// auto-summarize-on-overflow, soft-trim, then a preferred-format hint.
// cacheKwargs is nil when the caller opted out of auto-diff (summary/diff
// request flags already applied, or auto=false).
func ApplyPolicy(cache DiffCache, command string, result map[string]any, cacheKwargs map[string]any) map[string]any {
	policy := GetPolicy(command)
	if policy.NeverPrune {
		return result
	}

	if policy.AutoDiff && cacheKwargs != nil && cache != nil {
		if diffed, ok := tryAutoDiff(cache, command, result, cacheKwargs); ok {
			result = diffed
		}
	}

	if policy.MaxElements > 0 {
		result = tryAutoSummarize(command, result, policy.MaxElements)
	}

	if policy.SoftTrim != nil {
		result = trySoftTrim(result, *policy.SoftTrim)
	}

	if policy.PreferredFormat != "" {
		out := make(map[string]any, len(result)+1)
		for k, v := range result {
			out[k] = v
		}
		out["_suggested_format"] = policy.PreferredFormat
		result = out
	}

	return result
}

func tryAutoDiff(cache DiffCache, command string, result map[string]any, cacheKwargs map[string]any) (map[string]any, bool) {
	prev, hadPrev := cache.GetForDiff(command, cacheKwargs)
	cache.Put(command, cacheKwargs, result)
	if !hadPrev {
		return nil, false
	}

	oldFocused := focusedName(prev)
	newFocused := focusedName(result)
	oldEls := extractElements(prev)
	newEls := extractElements(result)

	d := differ.ComputeDiff(oldFocused, oldEls, newFocused, newEls)
	if len(d.Added)+len(d.Removed)+len(d.Changed) == 0 {
		return nil, false
	}

	return map[string]any{
		"command":         command,
		"mode":            "diff",
		"added":           d.Added,
		"removed":         d.Removed,
		"changed":         d.Changed,
		"unchanged_count": d.UnchangedCount,
		"events":          d.Events,
		"summary":         d.Summary,
	}, true
}

func focusedName(result map[string]any) string {
	if f, ok := result["focused"].(map[string]any); ok {
		if name, ok := f["name"].(string); ok {
			return name
		}
	}
	return ""
}

func extractElements(result map[string]any) []providers.Element {
	raw, ok := result["elements"].([]any)
	if !ok {
		return nil
	}
	out := make([]providers.Element, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, elementFromMap(m))
	}
	return out
}

func elementFromMap(m map[string]any) providers.Element {
	el := providers.Element{}
	if v, ok := m["name"].(string); ok {
		el.Name = v
	}
	if v, ok := m["type"].(string); ok {
		el.Role = v
	}
	if v, ok := m["is_enabled"].(bool); ok {
		el.Enabled = v
	}
	if v, ok := m["focused"].(bool); ok {
		el.Focused = v
	}
	if b, ok := m["bounds"].(map[string]any); ok {
		el.Bounds = providers.Bounds{
			X:      intOf(b["x"]),
			Y:      intOf(b["y"]),
			Width:  intOf(b["width"]),
			Height: intOf(b["height"]),
		}
	}
	return el
}

func intOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func tryAutoSummarize(command string, result map[string]any, maxElements int) map[string]any {
	count := 0
	var key string
	for _, k := range []string{"elements", "nodes", "links"} {
		if arr, ok := result[k].([]any); ok {
			count = len(arr)
			key = k
			break
		}
	}
	if count <= maxElements {
		return result
	}
	_ = key

	win := providers.Window{}
	if w, ok := result["window"].(map[string]any); ok {
		if t, ok := w["title"].(string); ok {
			win.Title = t
		}
	}

	var summaryFields map[string]any
	if command == "web-ax" {
		nodes := extractWebNodes(result)
		url, _ := result["url"].(string)
		s := summarize.SummarizeWeb(url, nodes)
		summaryFields = map[string]any{
			"url": s.URL, "element_counts": s.ElementCounts,
			"total_elements": s.TotalElements, "page_type": s.PageType, "summary_line": s.SummaryLine,
		}
	} else {
		els := extractElements(result)
		s := summarize.SummarizeUIA(win, els)
		summaryFields = map[string]any{
			"app": s.App, "element_counts": s.ElementCounts, "total_elements": s.TotalElements,
			"focused": s.Focused, "errors": s.Errors, "dialogs": s.Dialogs,
			"groups": s.Groups, "summary_line": s.SummaryLine,
		}
	}

	out := map[string]any{"command": command, "mode": "summary", "auto_pruned": true}
	for k, v := range summaryFields {
		out[k] = v
	}
	return out
}

func extractWebNodes(result map[string]any) []providers.WebNode {
	raw, ok := result["nodes"].([]any)
	if !ok {
		return nil
	}
	out := make([]providers.WebNode, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		n := providers.WebNode{}
		if v, ok := m["name"].(string); ok {
			n.Name = v
		}
		if v, ok := m["role"].(string); ok {
			n.Role = v
		}
		out = append(out, n)
	}
	return out
}

func trySoftTrim(result map[string]any, trim SoftTrim) map[string]any {
	for _, field := range []string{"text", "content", "markdown"} {
		s, ok := result[field].(string)
		if !ok {
			continue
		}
		if len(s) <= trim.MaxChars {
			return result
		}
		trimmed := SoftTrimText(s, trim.MaxChars, trim.HeadLines, trim.TailLines)
		out := make(map[string]any, len(result)+1)
		for k, v := range result {
			out[k] = v
		}
		out[field] = trimmed
		out["_trimmed"] = map[string]any{
			"field":            field,
			"original_chars":   len(s),
			"trimmed_to_chars": len(trimmed),
		}
		return out
	}
	return result
}

// SoftTrimText returns text unchanged if it is under maxChars, or if its
// line count doesn't exceed headLines+tailLines; otherwise it keeps the
// first headLines and last tailLines lines, with an omission notice between.
func SoftTrimText(text string, maxChars, headLines, tailLines int) string {
	if len(text) <= maxChars {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= headLines+tailLines {
		return text
	}
	head := lines[:headLines]
	tail := lines[len(lines)-tailLines:]
	omitted := len(lines) - headLines - tailLines
	var b strings.Builder
	b.WriteString(strings.Join(head, "\n"))
	b.WriteString("\n... (")
	b.WriteString(strconv.Itoa(omitted))
	b.WriteString(" lines omitted) ...\n")
	b.WriteString(strings.Join(tail, "\n"))
	return b.String()
}
