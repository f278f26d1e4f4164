// Package batch executes multiple daemon commands in sequence from a single
// request, interpolating variables from each step's result into the next,
// mirroring batch.py. It reduces the round-trips an agent needs to chain
// "describe --focus buttons; find Save; click-element Save" style workflows.
package batch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nexusdaemon/nexus/internal/differ"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/summarize"
)

// Executor runs one named command with its kwargs and returns its JSON-style
// result, the same surface the command registry exposes to the daemon loop.
type Executor interface {
	Execute(cmdName string, kwargs map[string]any) (map[string]any, error)
	Known(cmdName string) bool
}

// DiffCache is the narrow cache surface the --diff post-processing flag
// needs; satisfied by the same cache used for automatic pruning.
type DiffCache interface {
	GetForDiff(command string, kwargs map[string]any) (map[string]any, bool)
	Put(command string, kwargs map[string]any, result map[string]any)
}

// ParseBatch splits a semicolon-separated batch string into individual,
// trimmed, non-empty command strings.
func ParseBatch(batchStr string) []string {
	var commands []string
	for _, part := range strings.Split(batchStr, ";") {
		cmd := strings.TrimSpace(part)
		if cmd != "" {
			commands = append(commands, cmd)
		}
	}
	return commands
}

var bracedVar = regexp.MustCompile(`\$\{(\w+)\}`)
var bareVar = regexp.MustCompile(`\$(\w+)`)

// Interpolate replaces $name / ${name} references in cmdStr with values
// pulled from the previous step's result: direct top-level scalar keys, plus
// the conventional $name/$x/$y shortcuts derived from "clicked", "matches",
// "elements", "at", and "nodes" result shapes.
func Interpolate(cmdStr string, prevResult map[string]any) string {
	if !strings.Contains(cmdStr, "$") {
		return cmdStr
	}

	lookup := map[string]string{}
	for k, v := range prevResult {
		switch val := v.(type) {
		case string:
			lookup[k] = val
		case int:
			lookup[k] = strconv.Itoa(val)
		case float64:
			lookup[k] = strconv.FormatFloat(val, 'g', -1, 64)
		case bool:
			lookup[k] = strconv.FormatBool(val)
		}
	}

	setDefault := func(k, v string) {
		if _, ok := lookup[k]; !ok {
			lookup[k] = v
		}
	}

	if clicked, ok := prevResult["clicked"].(string); ok {
		setDefault("name", clicked)
	}
	if matches, ok := prevResult["matches"].([]any); ok && len(matches) > 0 {
		interpolateFirstEntry(matches[0], setDefault)
	}
	if elements, ok := prevResult["elements"].([]any); ok && len(elements) > 0 {
		interpolateFirstEntry(elements[0], setDefault)
	}
	if at, ok := prevResult["at"].(map[string]any); ok {
		setDefault("x", strOf(at["x"]))
		setDefault("y", strOf(at["y"]))
	}
	if nodes, ok := prevResult["nodes"].([]any); ok && len(nodes) > 0 {
		if m, ok := nodes[0].(map[string]any); ok {
			setDefault("name", strOf(m["name"]))
		}
	}

	replace := func(re *regexp.Regexp) func(string) string {
		return func(m string) string {
			key := re.FindStringSubmatch(m)[1]
			if v, ok := lookup[key]; ok {
				return v
			}
			return m
		}
	}

	result := bracedVar.ReplaceAllStringFunc(cmdStr, replace(bracedVar))
	result = bareVar.ReplaceAllStringFunc(result, replace(bareVar))
	return result
}

func interpolateFirstEntry(entry any, setDefault func(k, v string)) {
	m, ok := entry.(map[string]any)
	if !ok {
		return
	}
	setDefault("name", strOf(m["name"]))
	bounds, _ := m["bounds"].(map[string]any)
	cx := bounds["center_x"]
	if cx == nil {
		cx = bounds["x"]
	}
	cy := bounds["center_y"]
	if cy == nil {
		cy = bounds["y"]
	}
	setDefault("x", strOf(cx))
	setDefault("y", strOf(cy))
}

func strOf(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return "0"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// positionals lists, per command, the order in which bare (non "--flag")
// step arguments bind to named parameters.
var positionals = map[string][]string{
	"find":           {"query"},
	"web-find":       {"query"},
	"click-element":  {"name"},
	"web-click":      {"text"},
	"web-navigate":   {"url"},
	"web-input":      {"selector", "value"},
	"web-measure":    {"selectors"},
	"ps-run":         {"script"},
	"click":          {"x", "y"},
	"move":           {"x", "y"},
	"type":           {"text"},
	"key":            {"keyname"},
	"scroll":         {"amount"},
	"web-research":   {"query"},
	"ocr-region":     {"x", "y", "w", "h"},
}

// parseStepArgs parses one step's already-tokenized arguments into a kwargs
// map: bare words bind positionally per the table above, "--flag value"
// pairs become key=value (booleans and numbers are parsed where possible),
// and a trailing "--flag" with no value becomes a boolean true.
func parseStepArgs(cmdName string, args []string) map[string]any {
	names := positionals[cmdName]
	kwargs := map[string]any{}
	posIdx := 0

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--") {
			key := strings.ReplaceAll(arg[2:], "-", "_")
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
				kwargs[key] = parseScalar(args[i+1])
				i++
			} else {
				kwargs[key] = true
			}
			continue
		}
		if posIdx < len(names) {
			name := names[posIdx]
			kwargs[name] = parseScalar(arg)
			posIdx++
		}
	}
	return kwargs
}

func parseScalar(val string) any {
	lower := strings.ToLower(val)
	if lower == "true" || lower == "false" {
		return lower == "true"
	}
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}

// splitWords tokenizes a step string the way a shell would: double- and
// single-quoted runs are kept intact (quotes stripped), everything else
// splits on whitespace.
func splitWords(s string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inWord := false
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			quote := c
			i++
			start := i
			for i < len(s) && s[i] != quote {
				i++
			}
			if i >= len(s) {
				return nil, fmt.Errorf("unterminated %c quote", quote)
			}
			cur.WriteString(s[start:i])
			inWord = true
			i++
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
			i++
		default:
			cur.WriteByte(c)
			inWord = true
			i++
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}

// Options configures ExecuteBatch's behavior, mirroring the --verbose and
// --continue-on-error flags accepted alongside a batch string.
type Options struct {
	Verbose         bool
	ContinueOnError bool
	Diff            DiffCache
}

// ExecuteBatch runs every step of a batch string in order, feeding each
// step's result into the next via Interpolate, and returns either the final
// step's result (plus batch metadata) or, if Verbose, every step's result.
func ExecuteBatch(batchStr string, exec Executor, opts Options) map[string]any {
	steps := ParseBatch(batchStr)
	if len(steps) == 0 {
		return map[string]any{"command": "batch", "ok": false, "error": "No commands in batch"}
	}

	var results []map[string]any
	prevResult := map[string]any{}

	for i, stepStr := range steps {
		stepStr = Interpolate(stepStr, prevResult)

		parts, err := splitWords(stepStr)
		if err != nil {
			errResult := map[string]any{
				"command": "batch", "ok": false, "step": i,
				"error": fmt.Sprintf("Parse error in step %d: %s", i, err.Error()),
				"raw":   stepStr,
			}
			if opts.ContinueOnError {
				results = append(results, errResult)
				continue
			}
			return errResult
		}
		if len(parts) == 0 {
			continue
		}

		cmdName := parts[0]
		// Strip a leading "nexusctl" invocation prefix, e.g. "nexusctl click-element Save".
		if cmdName == "nexusctl" {
			parts = parts[1:]
			if len(parts) == 0 {
				continue
			}
			cmdName = parts[0]
		}

		if !exec.Known(cmdName) {
			errResult := map[string]any{"command": "batch", "ok": false, "step": i, "error": fmt.Sprintf("Unknown command: '%s'", cmdName)}
			if opts.ContinueOnError {
				results = append(results, errResult)
				continue
			}
			return errResult
		}

		rawKwargs := parseStepArgs(cmdName, parts[1:])

		wantSummary, _ := rawKwargs["summary"].(bool)
		wantDiff, _ := rawKwargs["diff"].(bool)
		delete(rawKwargs, "summary")
		delete(rawKwargs, "diff")

		result, err := exec.Execute(cmdName, rawKwargs)
		if err != nil {
			msg := err.Error()
			if len(msg) > 300 {
				msg = msg[:300]
			}
			errResult := map[string]any{"command": cmdName, "ok": false, "step": i, "error": msg}
			if opts.ContinueOnError {
				results = append(results, errResult)
				prevResult = errResult
				continue
			}
			return errResult
		}

		result = applyPostProcessing(cmdName, result, wantSummary, wantDiff, rawKwargs, opts.Diff)
		prevResult = result
		results = append(results, result)
	}

	if opts.Verbose {
		return map[string]any{"command": "batch", "ok": true, "steps": len(results), "results": results}
	}

	var final map[string]any
	if len(results) > 0 {
		final = results[len(results)-1]
	} else {
		final = map[string]any{}
	}
	out := make(map[string]any, len(final)+1)
	for k, v := range final {
		out[k] = v
	}
	out["_batch"] = map[string]any{"steps_total": len(steps), "steps_completed": len(results)}
	return out
}

// applyPostProcessing applies the --summary and --diff step flags inline so
// intermediate batch results carry the same shape a single-shot request
// would, letting the next step's interpolation see the processed result.
func applyPostProcessing(cmdName string, result map[string]any, wantSummary, wantDiff bool, kwargs map[string]any, diffCache DiffCache) map[string]any {
	if wantSummary && cmdName == "describe" {
		win := providers.Window{}
		if w, ok := result["window"].(map[string]any); ok {
			if t, ok := w["title"].(string); ok {
				win.Title = t
			}
		}
		s := summarize.SummarizeUIA(win, extractElements(result))
		return map[string]any{
			"command": "describe", "mode": "summary",
			"app": s.App, "element_counts": s.ElementCounts, "total_elements": s.TotalElements,
			"focused": s.Focused, "errors": s.Errors, "dialogs": s.Dialogs,
			"groups": s.Groups, "summary_line": s.SummaryLine,
		}
	}
	if wantSummary && cmdName == "web-ax" {
		url, _ := result["url"].(string)
		s := summarize.SummarizeWeb(url, extractWebNodes(result))
		return map[string]any{
			"command": "web-ax", "mode": "summary",
			"url": s.URL, "element_counts": s.ElementCounts,
			"total_elements": s.TotalElements, "page_type": s.PageType, "summary_line": s.SummaryLine,
		}
	}

	if wantDiff && (cmdName == "describe" || cmdName == "web-ax") && diffCache != nil {
		old, hadPrev := diffCache.GetForDiff(cmdName, kwargs)
		diffCache.Put(cmdName, kwargs, result)
		if hadPrev {
			oldFocused := focusedName(old)
			newFocused := focusedName(result)
			d := differ.ComputeDiff(oldFocused, extractElements(old), newFocused, extractElements(result))
			return map[string]any{
				"command": cmdName, "mode": "diff",
				"added": d.Added, "removed": d.Removed, "changed": d.Changed,
				"unchanged_count": d.UnchangedCount, "events": d.Events, "summary": d.Summary,
			}
		}
	}

	return result
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
		el := providers.Element{}
		if v, ok := m["name"].(string); ok {
			el.Name = v
		}
		if v, ok := m["type"].(string); ok {
			el.Role = v
		}
		out = append(out, el)
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
