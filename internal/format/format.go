// Package format renders a command result as compact, human-scannable text
// instead of full JSON, mirroring format.py. Pure functions: no side
// effects, no dependency on any other Nexus package beyond what's needed to
// read a generic result map.
package format

import (
	"fmt"
	"strings"
)

// roleAbbrev shortens a UIA ControlTypeName, ported from ROLE_ABBREV.
var roleAbbrev = map[string]string{
	"ButtonControl": "Btn", "EditControl": "Edit", "HyperlinkControl": "Link",
	"MenuItemControl": "Menu", "CheckBoxControl": "Check", "RadioButtonControl": "Radio",
	"ComboBoxControl": "Combo", "TabItemControl": "Tab", "ListItemControl": "Item",
	"TreeItemControl": "Tree", "TextControl": "Text", "ImageControl": "Img",
	"GroupControl": "Group", "PaneControl": "Pane", "WindowControl": "Win",
	"ToolBarControl": "Toolbar", "StatusBarControl": "Status", "MenuBarControl": "MenuBar",
	"HeaderControl": "Header", "DataItemControl": "Data", "DocumentControl": "Doc",
	"ScrollBarControl": "Scroll", "SliderControl": "Slider", "SpinnerControl": "Spin",
	"ProgressBarControl": "Progress", "TableControl": "Table", "ToolTipControl": "Tip",
	"CustomControl": "Custom", "SplitButtonControl": "SplitBtn", "ListControl": "List",
	"TreeControl": "TreeView", "TabControl": "TabCtl", "MenuControl": "MenuCtl",
}

// webRoleAbbrev shortens a web accessibility role, ported from WEB_ROLE_ABBREV.
var webRoleAbbrev = map[string]string{
	"button": "Btn", "link": "Link", "textbox": "Edit", "heading": "H",
	"checkbox": "Check", "radio": "Radio", "combobox": "Combo", "tab": "Tab",
	"menuitem": "Menu", "listitem": "Item", "img": "Img", "search": "Search",
	"navigation": "Nav", "banner": "Banner", "main": "Main", "region": "Region",
	"form": "Form", "list": "List", "table": "Table", "cell": "Cell", "row": "Row",
	"group": "Group", "tree": "Tree", "treeitem": "Tree", "slider": "Slider",
	"spinbutton": "Spin", "dialog": "Dialog", "alert": "Alert", "status": "Status",
}

func abbrevRole(controlType string) string {
	if v, ok := roleAbbrev[controlType]; ok {
		return v
	}
	return strings.ReplaceAll(controlType, "Control", "")
}

func abbrevWebRole(role string) string {
	if v, ok := webRoleAbbrev[role]; ok {
		return v
	}
	if role == "" {
		return "?"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func boundsShort(bounds map[string]any) string {
	if bounds == nil {
		return ""
	}
	cx := numOr(bounds["center_x"], numOr(bounds["x"], 0))
	cy := numOr(bounds["center_y"], numOr(bounds["y"], 0))
	w := numOr(bounds["width"], 0)
	h := numOr(bounds["height"], 0)
	return fmt.Sprintf("(%d,%d) %dx%d", cx, cy, w, h)
}

func numOr(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func strField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func formatUIAElementCompact(el map[string]any) string {
	role := abbrevRole(strField(el, "type"))
	name := strings.TrimSpace(strField(el, "name"))
	bounds, _ := el["bounds"].(map[string]any)
	boundsStr := boundsShort(bounds)
	parts := []string{fmt.Sprintf("[%s] %s", role, name)}
	if boundsStr != "" {
		parts = append(parts, boundsStr)
	}
	if enabled, ok := el["is_enabled"].(bool); ok && !enabled {
		parts = append(parts, "*disabled*")
	}
	return strings.Join(parts, " | ")
}

func formatUIAElementMinimal(el map[string]any) string {
	role := abbrevRole(strField(el, "type"))
	name := strings.TrimSpace(strField(el, "name"))
	return fmt.Sprintf("[%s] %s", role, name)
}

func formatWebNodeCompact(node map[string]any) string {
	role := abbrevWebRole(strField(node, "role"))
	name := strings.TrimSpace(strField(node, "name"))
	var flags []string
	if v, _ := node["focused"].(bool); v {
		flags = append(flags, "*focused*")
	}
	if v, _ := node["disabled"].(bool); v {
		flags = append(flags, "*disabled*")
	}
	if v, ok := node["checked"].(bool); ok && v {
		flags = append(flags, "*checked*")
	}
	if v, ok := node["expanded"].(bool); ok && v {
		flags = append(flags, "*expanded*")
	}
	line := fmt.Sprintf("[%s] %s", role, name)
	if len(flags) > 0 {
		line += " " + strings.Join(flags, " ")
	}
	return line
}

func sliceOfMaps(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func countField(m map[string]any, key string) int {
	return numOr(m[key], 0)
}

// FormatCompact renders a command result as one line per element plus a
// trailing count, matching format_compact. Summary and diff modes are
// handled generically across every command that can produce them.
func FormatCompact(result map[string]any) string {
	if mode, _ := result["mode"].(string); mode == "summary" {
		return formatSummary(result)
	}
	if mode, _ := result["mode"].(string); mode == "diff" {
		return formatDiff(result)
	}

	cmd := strField(result, "command")
	var lines []string

	switch cmd {
	case "describe":
		win, _ := result["window"].(map[string]any)
		lines = append(lines, fmt.Sprintf("# %s", strField(win, "title")))
		for _, el := range sliceOfMaps(result["elements"]) {
			lines = append(lines, formatUIAElementCompact(el))
		}
		lines = append(lines, fmt.Sprintf("(%d elements)", countField(result, "element_count")))
	case "windows":
		for _, win := range sliceOfMaps(result["windows"]) {
			fg := ""
			if v, _ := win["is_foreground"].(bool); v {
				fg = "*fg*"
			}
			bounds, _ := win["bounds"].(map[string]any)
			parts := []string{fmt.Sprintf("[Win] %s", strField(win, "title"))}
			if b := boundsShort(bounds); b != "" {
				parts = append(parts, b)
			}
			if fg != "" {
				parts = append(parts, fg)
			}
			lines = append(lines, strings.Join(parts, " | "))
		}
		lines = append(lines, fmt.Sprintf("(%d windows)", countField(result, "count")))
	case "find":
		lines = append(lines, fmt.Sprintf("# find '%s'", strField(result, "query")))
		for _, el := range sliceOfMaps(result["matches"]) {
			lines = append(lines, formatUIAElementCompact(el))
		}
		lines = append(lines, fmt.Sprintf("(%d matches)", countField(result, "count")))
	case "focused":
		el, _ := result["element"].(map[string]any)
		if el != nil {
			lines = append(lines, formatUIAElementCompact(el))
		} else {
			lines = append(lines, "(no focused element)")
		}
	case "web-describe":
		lines = append(lines, fmt.Sprintf("# %s", strField(result, "title")))
		lines = append(lines, fmt.Sprintf("URL: %s", strField(result, "url")))
		if h := strField(result, "heading"); h != "" {
			lines = append(lines, fmt.Sprintf("H1: %s", h))
		}
	case "web-ax":
		lines = append(lines, fmt.Sprintf("# %s", strField(result, "title")))
		for _, node := range sliceOfMaps(result["nodes"]) {
			lines = append(lines, formatWebNodeCompact(node))
		}
		lines = append(lines, fmt.Sprintf("(%d nodes)", countField(result, "count")))
	case "web-find":
		lines = append(lines, fmt.Sprintf("# web-find '%s'", strField(result, "query")))
		for _, el := range sliceOfMaps(result["matches"]) {
			lines = append(lines, formatWebNodeCompact(el))
		}
		lines = append(lines, fmt.Sprintf("(%d matches)", countField(result, "count")))
	case "web-links":
		lines = append(lines, fmt.Sprintf("URL: %s", strField(result, "url")))
		for _, lnk := range sliceOfMaps(result["links"]) {
			lines = append(lines, fmt.Sprintf("[Link] %s | %s", strField(lnk, "text"), strField(lnk, "href")))
		}
		lines = append(lines, fmt.Sprintf("(%d links)", countField(result, "count")))
	default:
		return ""
	}

	return strings.Join(lines, "\n")
}

func formatSummary(result map[string]any) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("SUMMARY: %s", strField(result, "summary_line")))
	if url := strField(result, "url"); url != "" {
		lines = append(lines, fmt.Sprintf("URL: %s", url))
	}
	if pt := strField(result, "page_type"); pt != "" {
		lines = append(lines, fmt.Sprintf("Page type: %s", pt))
	}
	groups, _ := result["groups"].(map[string][]string)
	if groups != nil {
		if top := groups["top"]; len(top) > 0 {
			lines = append(lines, fmt.Sprintf("TOP: %s", joinUpTo(top, 8)))
		}
		if main := groups["main"]; len(main) > 0 {
			if len(main) > 10 {
				lines = append(lines, fmt.Sprintf("MAIN: %s... (+%d more)", joinUpTo(main, 8), len(main)-8))
			} else {
				lines = append(lines, fmt.Sprintf("MAIN: %s", strings.Join(main, ", ")))
			}
		}
		if bottom := groups["bottom"]; len(bottom) > 0 {
			lines = append(lines, fmt.Sprintf("BOTTOM: %s", joinUpTo(bottom, 5)))
		}
	}
	return strings.Join(lines, "\n")
}

func joinUpTo(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}

func formatDiff(result map[string]any) string {
	var lines []string
	win := result["window"]
	winTitle := "?"
	switch w := win.(type) {
	case string:
		winTitle = w
	case map[string]any:
		winTitle = strField(w, "title")
	}
	lines = append(lines, fmt.Sprintf("DIFF %s (%d unchanged)", winTitle, countField(result, "unchanged_count")))
	lines = append(lines, strField(result, "summary"))
	for _, el := range sliceOfMaps(result["added"]) {
		lines = append(lines, "+ "+describeDiffElement(el))
	}
	for _, el := range sliceOfMaps(result["removed"]) {
		lines = append(lines, "- "+describeDiffElement(el))
	}
	for _, ch := range sliceOfMaps(result["changed"]) {
		lines = append(lines, "~ "+describeDiffElement(ch))
	}
	return strings.Join(lines, "\n")
}

func describeDiffElement(el map[string]any) string {
	if _, ok := el["role"]; ok {
		return formatWebNodeCompact(el)
	}
	return formatUIAElementCompact(el)
}

// FormatMinimal renders a command result with names and types only, no
// coordinates, matching format_minimal.
func FormatMinimal(result map[string]any) string {
	cmd := strField(result, "command")
	var lines []string

	switch cmd {
	case "describe":
		win, _ := result["window"].(map[string]any)
		lines = append(lines, fmt.Sprintf("# %s", strField(win, "title")))
		for _, el := range sliceOfMaps(result["elements"]) {
			lines = append(lines, formatUIAElementMinimal(el))
		}
		lines = append(lines, fmt.Sprintf("(%d elements)", countField(result, "element_count")))
	case "windows":
		for _, win := range sliceOfMaps(result["windows"]) {
			line := strField(win, "title")
			if v, _ := win["is_foreground"].(bool); v {
				line += " *fg*"
			}
			lines = append(lines, line)
		}
	case "find":
		for _, el := range sliceOfMaps(result["matches"]) {
			lines = append(lines, formatUIAElementMinimal(el))
		}
		lines = append(lines, fmt.Sprintf("(%d matches)", countField(result, "count")))
	case "focused":
		el, _ := result["element"].(map[string]any)
		if el != nil {
			lines = append(lines, formatUIAElementMinimal(el))
		} else {
			lines = append(lines, "(none)")
		}
	case "web-ax":
		for _, node := range sliceOfMaps(result["nodes"]) {
			role := abbrevWebRole(strField(node, "role"))
			name := strings.TrimSpace(strField(node, "name"))
			lines = append(lines, fmt.Sprintf("[%s] %s", role, name))
		}
		lines = append(lines, fmt.Sprintf("(%d nodes)", countField(result, "count")))
	case "web-links":
		for _, lnk := range sliceOfMaps(result["links"]) {
			lines = append(lines, fmt.Sprintf("%s | %s", strField(lnk, "text"), strField(lnk, "href")))
		}
	default:
		return ""
	}

	return strings.Join(lines, "\n")
}
