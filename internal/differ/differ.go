// Package differ computes a semantic diff between two successive command
// results, mirroring cache.py's compute_diff/_element_changes/_detect_events.
package differ

import (
	"fmt"
	"strings"

	"github.com/nexusdaemon/nexus/internal/providers"
)

// Diff is the result of comparing two element snapshots.
type Diff struct {
	Added          []providers.Element
	Removed        []providers.Element
	Changed        []ElementChange
	UnchangedCount int
	Events         []string
	Summary        string
}

// ElementChange records which fields differ between two observations of the
// same logical element (matched by name|role key).
type ElementChange struct {
	Element   providers.Element
	Fields    []string
	MovedFrom [2]int
	MovedTo   [2]int
	Moved     bool
}

func elementKey(el providers.Element) string {
	return el.Name + "|" + el.Role
}

// ComputeDiff compares an old and new element list and reports what
// appeared, disappeared, or changed, plus any semantic events detected.
func ComputeDiff(oldFocused string, oldElements []providers.Element, newFocused string, newElements []providers.Element) Diff {
	oldByKey := make(map[string]providers.Element, len(oldElements))
	for _, el := range oldElements {
		oldByKey[elementKey(el)] = el
	}
	newByKey := make(map[string]providers.Element, len(newElements))
	for _, el := range newElements {
		newByKey[elementKey(el)] = el
	}

	var added, removed []providers.Element
	var changed []ElementChange
	unchanged := 0

	for k, el := range newByKey {
		if _, ok := oldByKey[k]; !ok {
			added = append(added, el)
		}
	}
	for k, el := range oldByKey {
		if _, ok := newByKey[k]; !ok {
			removed = append(removed, el)
		}
	}
	for k, oldEl := range oldByKey {
		newEl, ok := newByKey[k]
		if !ok {
			continue
		}
		change, isChanged := elementChanges(oldEl, newEl)
		if isChanged {
			changed = append(changed, change)
		} else {
			unchanged++
		}
	}

	d := Diff{Added: added, Removed: removed, Changed: changed, UnchangedCount: unchanged}
	d.Events = detectEvents(oldFocused, newFocused, added, removed)
	d.Summary = fmt.Sprintf("%d new. %d removed. %d changed. %d unchanged.",
		len(added), len(removed), len(changed), unchanged)
	return d
}

func elementChanges(oldEl, newEl providers.Element) (ElementChange, bool) {
	change := ElementChange{Element: newEl}
	if oldEl.Focused != newEl.Focused {
		change.Fields = append(change.Fields, "focused")
	}
	if oldEl.Enabled != newEl.Enabled {
		change.Fields = append(change.Fields, "is_enabled")
	}
	if !boolPtrEqual(oldEl.Expanded, newEl.Expanded) {
		change.Fields = append(change.Fields, "expanded")
	}
	if !boolPtrEqual(oldEl.Checked, newEl.Checked) {
		change.Fields = append(change.Fields, "checked")
	}

	dx := newEl.Bounds.CenterX() - oldEl.Bounds.CenterX()
	dy := newEl.Bounds.CenterY() - oldEl.Bounds.CenterY()
	if abs(dx) > 20 || abs(dy) > 20 {
		change.Moved = true
		change.MovedFrom = [2]int{oldEl.Bounds.CenterX(), oldEl.Bounds.CenterY()}
		change.MovedTo = [2]int{newEl.Bounds.CenterX(), newEl.Bounds.CenterY()}
		change.Fields = append(change.Fields, "position")
	}

	return change, len(change.Fields) > 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func detectEvents(oldFocused, newFocused string, added, removed []providers.Element) []string {
	var events []string
	if oldFocused != newFocused && newFocused != "" {
		events = append(events, fmt.Sprintf("Focus: %s -> %s", oldFocused, newFocused))
	}
	for _, el := range added {
		if el.Role == "WindowControl" || el.Role == "PaneControl" {
			events = append(events, fmt.Sprintf("Dialog appeared: %s", el.Name))
			break
		}
	}
	for _, el := range added {
		lower := strings.ToLower(el.Name)
		for _, kw := range []string{"error", "warning", "alert", "fail"} {
			if strings.Contains(lower, kw) {
				events = append(events, fmt.Sprintf("Error appeared: %s", el.Name))
				return events
			}
		}
	}
	_ = removed
	return events
}
