// Package element implements name-based UI targeting: find an element by
// name (exact substring, then fuzzy word-boundary match), optionally filter
// by role, click it, and verify the click had an effect — re-locating the
// element fresh on every call so it survives window moves, mirroring
// digitus/element.py.
package element

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexusdaemon/nexus/internal/healing"
	"github.com/nexusdaemon/nexus/internal/providers"
)

// roleAliases maps a short role name to the set of UIA ControlTypeName
// values it covers, ported from digitus/element.py's _ROLE_ALIASES.
var roleAliases = map[string]map[string]bool{
	"button":   {"ButtonControl": true, "SplitButtonControl": true},
	"input":    {"EditControl": true, "ComboBoxControl": true, "SpinnerControl": true},
	"checkbox": {"CheckBoxControl": true},
	"radio":    {"RadioButtonControl": true},
	"link":     {"HyperlinkControl": true},
	"tab":      {"TabItemControl": true},
	"menu":     {"MenuItemControl": true},
	"list":     {"ListItemControl": true},
	"tree":     {"TreeItemControl": true},
	"slider":   {"SliderControl": true},
}

// FuzzyMatch reports whether name matches query either as a case-insensitive
// substring, or because one of name's words starts with query — so "save"
// matches "Save Changes", and also "unsaved" through the substring check.
func FuzzyMatch(name, query string) bool {
	nameLower := strings.ToLower(name)
	queryLower := strings.ToLower(query)
	if queryLower == "" {
		return true
	}
	if strings.Contains(nameLower, queryLower) {
		return true
	}
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(nameLower)
	for _, w := range strings.Fields(replaced) {
		if strings.HasPrefix(w, queryLower) {
			return true
		}
	}
	return false
}

func filterByRole(elements []providers.Element, role string) []providers.Element {
	typeNames, ok := roleAliases[strings.ToLower(role)]
	if !ok {
		typeNames = map[string]bool{role: true}
	}
	out := make([]providers.Element, 0, len(elements))
	for _, el := range elements {
		if typeNames[el.Role] {
			out = append(out, el)
		}
	}
	return out
}

// Verification is the post-click observation used to judge whether the
// click had an effect: focus moving away from the clicked target, and
// whether an element found at the click point still references it.
type Verification struct {
	Verified        bool   `json:"verified"`
	FocusChanged    bool   `json:"focus_changed"`
	NewFocus        string `json:"new_focus,omitempty"`
	ElementAtClick  string `json:"element_at_click,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ClickResult is the JSON-shaped outcome of a ClickElement call.
type ClickResult map[string]any

// Clicker ties together the accessibility and screen-input providers, plus
// an optional Healer, needed to find, click, and verify an element.
type Clicker struct {
	AX     providers.AccessibilityProvider
	Screen providers.ScreenProvider
	Healer *healing.Healer
}

// ClickElement finds name (fuzzy, optionally role-filtered), clicks match
// index (0-based) among the matches, optionally verifies the click had an
// effect, and — if verify shows no change and heal is set — invokes the
// Healer to retry.
func (c *Clicker) ClickElement(ctx context.Context, name string, right, double bool, role string, index int, verify, heal bool) ClickResult {
	win, err := c.AX.ForegroundWindow(ctx)
	winTitle := ""
	if err == nil {
		winTitle = win.Title
	}

	all, err := c.AX.Elements(ctx, 0)
	if err != nil {
		all = nil
	}

	matches := matchByName(all, name)
	if role != "" && len(matches) > 0 {
		matches = filterByRole(matches, role)
	}

	if len(matches) == 0 {
		errMsg := fmt.Sprintf("No element found matching '%s'", name)
		if role != "" {
			errMsg += fmt.Sprintf(" (role=%s)", role)
		}
		errMsg += fmt.Sprintf(" in window '%s'", winTitle)

		if heal && c.Healer != nil {
			suggestions := healing.SuggestSimilar(name, all)
			if len(suggestions) == 0 {
				suggestions = []string{"Try 'describe --focus interactive' to see available elements"}
			}
			return ClickResult{
				"command": "click-element", "success": false, "error": errMsg,
				"context":        map[string]any{"window": winTitle, "element_count": len(all)},
				"diagnosis":      "element_not_found",
				"heal_attempted": true,
				"suggestions":    suggestions,
			}
		}

		var nearby []string
		nameLower := strings.ToLower(name)
		prefix := nameLower
		if len(prefix) > 3 {
			prefix = prefix[:3]
		}
		for _, el := range all {
			if el.Name != "" && strings.Contains(strings.ToLower(el.Name), prefix) {
				nearby = append(nearby, el.Name)
				if len(nearby) >= 8 {
					break
				}
			}
		}
		var suggestions []string
		if len(nearby) > 0 {
			quoted := make([]string, len(nearby))
			for i, n := range nearby {
				quoted[i] = "'" + n + "'"
			}
			suggestions = append(suggestions, "Similar elements: "+strings.Join(quoted, ", "))
		}
		suggestions = append(suggestions, "Use 'describe --focus interactive' to see all clickable elements")
		return ClickResult{
			"command": "click-element", "success": false, "error": errMsg,
			"context":     map[string]any{"window": winTitle, "element_count": len(all)},
			"suggestions": suggestions,
		}
	}

	if index >= len(matches) {
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return ClickResult{
			"command": "click-element", "success": false,
			"error":   fmt.Sprintf("Index %d out of range (found %d matches for '%s')", index, len(matches), name),
			"matches": names,
		}
	}

	target := matches[index]
	cx, cy := target.Bounds.CenterX(), target.Bounds.CenterY()

	button := "left"
	if right {
		button = "right"
	}

	if err := c.Screen.Click(ctx, cx, cy, right, double); err != nil {
		return ClickResult{"command": "click-element", "success": false, "error": err.Error()}
	}

	result := ClickResult{
		"command": "click-element", "success": true,
		"clicked": target.Name, "type": target.Role,
		"at": map[string]any{"x": cx, "y": cy},
		"button": button, "double": double, "all_matches": len(matches),
	}

	if verify {
		time.Sleep(300 * time.Millisecond)
		v := c.verifyAction(ctx, target, cx, cy)
		result["verification"] = v

		if heal && c.Healer != nil && v.Verified && !v.FocusChanged {
			healResult := c.Healer.HealClick(ctx, name, cx, cy, right, double, role)
			if healResult.Healed {
				result["healed"] = true
				result["heal_details"] = healResult
				if healResult.NewPosition[0] != 0 || healResult.NewPosition[1] != 0 {
					result["at"] = map[string]any{"x": healResult.NewPosition[0], "y": healResult.NewPosition[1]}
				}
			}
		}
	}

	return result
}

func matchByName(elements []providers.Element, name string) []providers.Element {
	var exact []providers.Element
	nameLower := strings.ToLower(name)
	for _, el := range elements {
		if strings.Contains(strings.ToLower(el.Name), nameLower) {
			exact = append(exact, el)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	var fuzzy []providers.Element
	for _, el := range elements {
		if FuzzyMatch(el.Name, name) {
			fuzzy = append(fuzzy, el)
		}
	}
	return fuzzy
}

func (c *Clicker) verifyAction(ctx context.Context, original providers.Element, clickX, clickY int) Verification {
	focused, ok, err := c.AX.FocusedElement(ctx)
	if err != nil {
		return Verification{Verified: false, Error: truncate(err.Error(), 200)}
	}

	over, overOK, err := c.AX.ElementAtPoint(ctx, clickX, clickY)
	if err != nil {
		return Verification{Verified: false, Error: truncate(err.Error(), 200)}
	}

	focusChanged := ok && focused.Name != original.Name
	v := Verification{Verified: true, FocusChanged: focusChanged}
	if ok {
		v.NewFocus = focused.Name
	}
	if overOK {
		v.ElementAtClick = over.Name
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
