// Package filters narrows an element or web-node list by focus preset,
// name pattern, and screen region, mirroring cortex/filters.py.
package filters

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/nexusdaemon/nexus/internal/providers"
)

// uiaPresets maps a focus preset name to the set of UIA control-type IDs it
// matches. Ported from _UIA_PRESETS.
var uiaPresets = map[string]map[int]bool{
	"buttons": setOf(50000, 50031),
	"inputs":  setOf(50002, 50003, 50004, 50013, 50015),
	"interactive": setOf(
		50000, 50031, 50002, 50003, 50004, 50013, 50015,
		50005, 50011, 50018, 50019, 50024,
	),
	"navigation": setOf(50011, 50018, 50019, 50024, 50005),
	"headings":   {},
	"dialogs":    {},
}

// uiaTypeNamePresets maps a preset to control-type *names* rather than IDs,
// for presets that aren't cleanly expressed as a numeric ID set.
var uiaTypeNamePresets = map[string]map[string]bool{
	"dialogs": {"WindowControl": true, "PaneControl": true},
}

// webPresets maps a focus preset to the ARIA roles it matches.
var webPresets = map[string]map[string]bool{
	"buttons": {"button": true},
	"inputs":  {"textbox": true, "combobox": true, "searchbox": true, "spinbutton": true},
	"interactive": {
		"button": true, "link": true, "textbox": true, "combobox": true,
		"searchbox": true, "spinbutton": true, "checkbox": true, "radio": true,
		"tab": true, "menuitem": true,
	},
	"navigation": {"navigation": true, "link": true, "tab": true, "menuitem": true},
	"headings":   {"heading": true},
	"forms":      {"textbox": true, "combobox": true, "checkbox": true, "radio": true, "form": true},
	"errors":     {"alert": true, "status": true},
	"dialogs":    {"dialog": true, "alertdialog": true},
}

var typeIDToName = map[int]string{
	50000: "ButtonControl",
	50002: "EditControl",
	50003: "ComboBoxControl",
	50004: "CheckBoxControl",
	50005: "HyperlinkControl",
	50011: "TabItemControl",
	50013: "RadioButtonControl",
	50015: "ListItemControl",
	50018: "MenuItemControl",
	50019: "TreeItemControl",
	50024: "ListControl",
	50031: "SplitButtonControl",
}

func setOf(ids ...int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// FocusSpec is the parsed form of a "focus" request parameter.
type FocusSpec struct {
	Preset       string
	UIATypeIDs   map[int]bool
	UIATypeNames map[string]bool
	WebRoles     map[string]bool
	NamePattern  string // free-text substring fallback when no preset matched
}

// ParseFocus resolves a focus string against the known preset tables. If it
// matches none, it is treated as a free-text name-substring query.
func ParseFocus(focus string) FocusSpec {
	if focus == "" {
		return FocusSpec{}
	}
	spec := FocusSpec{Preset: focus}
	matchedAny := false
	if ids, ok := uiaPresets[focus]; ok {
		spec.UIATypeIDs = ids
		matchedAny = true
	}
	if names, ok := uiaTypeNamePresets[focus]; ok {
		spec.UIATypeNames = names
		matchedAny = true
	}
	if roles, ok := webPresets[focus]; ok {
		spec.WebRoles = roles
		matchedAny = true
	}
	if !matchedAny {
		spec.NamePattern = focus
	}
	return spec
}

// RegionSpec is a screen rectangle (in pixels) to restrict results to.
type RegionSpec struct {
	X, Y, W, H int
	Set        bool
}

// ParseRegion resolves a region string: a named preset (top/bottom/left/
// right/center) as a fraction of the screen, or an explicit "X,Y,W,H".
func ParseRegion(region string, screenW, screenH int) RegionSpec {
	if region == "" {
		return RegionSpec{}
	}
	switch region {
	case "top":
		return RegionSpec{X: 0, Y: 0, W: screenW, H: screenH / 5, Set: true}
	case "bottom":
		return RegionSpec{X: 0, Y: screenH * 4 / 5, W: screenW, H: screenH / 5, Set: true}
	case "left":
		return RegionSpec{X: 0, Y: 0, W: screenW / 4, H: screenH, Set: true}
	case "right":
		return RegionSpec{X: screenW * 3 / 4, Y: 0, W: screenW / 4, H: screenH, Set: true}
	case "center":
		return RegionSpec{
			X: int(float64(screenW) * 0.15), Y: int(float64(screenH) * 0.15),
			W: int(float64(screenW) * 0.70), H: int(float64(screenH) * 0.70), Set: true,
		}
	}
	parts := strings.Split(region, ",")
	if len(parts) != 4 {
		return RegionSpec{}
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return RegionSpec{}
		}
		vals[i] = n
	}
	return RegionSpec{X: vals[0], Y: vals[1], W: vals[2], H: vals[3], Set: true}
}

func nameHasError(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"error", "warning", "alert", "fail", "invalid"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func focusMatchesUIA(spec FocusSpec, el providers.Element) bool {
	if spec.Preset == "" {
		return true
	}
	if spec.Preset == "errors" {
		return nameHasError(el.Name)
	}
	if len(spec.UIATypeIDs) > 0 {
		return spec.UIATypeIDs[el.ControlType]
	}
	if len(spec.UIATypeNames) > 0 {
		return spec.UIATypeNames[el.Role]
	}
	if spec.NamePattern != "" {
		return strings.Contains(strings.ToLower(el.Name), strings.ToLower(spec.NamePattern))
	}
	return true
}

func focusMatchesWeb(spec FocusSpec, n providers.WebNode) bool {
	if spec.Preset == "" {
		return true
	}
	if spec.Preset == "errors" {
		return nameHasError(n.Name)
	}
	if len(spec.WebRoles) > 0 {
		return spec.WebRoles[n.Role]
	}
	if spec.NamePattern != "" {
		return strings.Contains(strings.ToLower(n.Name), strings.ToLower(spec.NamePattern))
	}
	return true
}

// MatchName applies the glob-then-regex-then-substring fallback chain used
// throughout Nexus's name-matching commands (find, click-element, filters).
func MatchName(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if ok, err := path.Match(pattern, name); err == nil && ok {
		return true
	}
	if re, err := regexp.Compile(pattern); err == nil {
		if re.MatchString(name) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

func withinRegion(region RegionSpec, cx, cy int) bool {
	if !region.Set {
		return true
	}
	return cx >= region.X && cx <= region.X+region.W && cy >= region.Y && cy <= region.Y+region.H
}

// FilterElements narrows a UIA-style element list by focus, match, and region.
func FilterElements(elements []providers.Element, focus, match, region string, screenW, screenH int) []providers.Element {
	spec := ParseFocus(focus)
	reg := ParseRegion(region, screenW, screenH)
	out := make([]providers.Element, 0, len(elements))
	for _, el := range elements {
		if !focusMatchesUIA(spec, el) {
			continue
		}
		if !MatchName(el.Name, match) {
			continue
		}
		if !withinRegion(reg, el.Bounds.CenterX(), el.Bounds.CenterY()) {
			continue
		}
		out = append(out, el)
	}
	return out
}

// FilterWebNodes narrows a web accessibility-tree node list by focus and
// match. Web nodes carry no screen coordinates, so region filtering is a
// no-op, matching the original's behavior.
func FilterWebNodes(nodes []providers.WebNode, focus, match string) []providers.WebNode {
	spec := ParseFocus(focus)
	out := make([]providers.WebNode, 0, len(nodes))
	for _, n := range nodes {
		if !focusMatchesWeb(spec, n) {
			continue
		}
		if !MatchName(n.Name, match) {
			continue
		}
		out = append(out, n)
	}
	return out
}
