// Package summarize condenses a raw element/node list into counts, groups,
// and a one-line description, mirroring cortex/summarize.py.
package summarize

import (
	"fmt"
	"strings"

	"github.com/nexusdaemon/nexus/internal/providers"
)

var uiaCategories = map[string]map[string]bool{
	"button":   {"ButtonControl": true, "SplitButtonControl": true},
	"input":    {"EditControl": true},
	"checkbox": {"CheckBoxControl": true, "RadioButtonControl": true},
	"link":     {"HyperlinkControl": true},
	"tab":      {"TabItemControl": true},
	"menu":     {"MenuItemControl": true, "MenuControl": true},
	"tree":     {"TreeItemControl": true, "TreeControl": true},
	"list":     {"ListItemControl": true, "ListControl": true},
	"text":     {"TextControl": true},
}

var webCategories = map[string]map[string]bool{
	"button":     {"button": true},
	"input":      {"textbox": true, "searchbox": true, "combobox": true, "spinbutton": true},
	"checkbox":   {"checkbox": true, "radio": true},
	"link":       {"link": true},
	"heading":    {"heading": true},
	"tab":        {"tab": true},
	"menu":       {"menuitem": true},
	"navigation": {"navigation": true},
	"form":       {"form": true},
}

// UIASummary is the summarized form of an element tree.
type UIASummary struct {
	App           string
	ElementCounts map[string]int
	TotalElements int
	Focused       string
	Errors        []string
	Dialogs       []string
	Groups        map[string][]string
	SummaryLine   string
}

// SummarizeUIA counts elements by category, flags errors/dialogs, and bands
// element names into top/main/bottom spatial groups.
func SummarizeUIA(win providers.Window, elements []providers.Element) UIASummary {
	counts := map[string]int{}
	var errs, dialogs []string

	for _, el := range elements {
		for cat, types := range uiaCategories {
			if types[el.Role] {
				counts[cat]++
			}
		}
		lower := strings.ToLower(el.Name)
		for _, kw := range []string{"error", "warning", "alert", "fail"} {
			if strings.Contains(lower, kw) {
				errs = append(errs, el.Name)
				break
			}
		}
		if (el.Role == "WindowControl" || el.Role == "PaneControl") && el.Name != win.Title {
			dialogs = append(dialogs, el.Name)
		}
	}

	focused := ""
	for _, el := range elements {
		if el.Focused {
			focused = el.Name
			break
		}
	}

	groups := spatialGroupsUIA(elements, win)
	summary := UIASummary{
		App:           win.Title,
		ElementCounts: counts,
		TotalElements: len(elements),
		Focused:       focused,
		Errors:        errs,
		Dialogs:       dialogs,
		Groups:        groups,
	}
	summary.SummaryLine = fmt.Sprintf("%s: %d elements, %d errors, %d dialogs", win.Title, len(elements), len(errs), len(dialogs))
	return summary
}

func spatialGroupsUIA(elements []providers.Element, win providers.Window) map[string][]string {
	groups := map[string][]string{"top": {}, "main": {}, "bottom": {}}
	if win.Bounds.Height == 0 {
		return groups
	}
	topBand := win.Bounds.Y + int(float64(win.Bounds.Height)*0.12)
	bottomBand := win.Bounds.Y + int(float64(win.Bounds.Height)*0.88)

	for _, el := range elements {
		if el.Name == "" {
			continue
		}
		name := el.Name
		if len(name) > 60 {
			name = name[:60]
		}
		cy := el.Bounds.CenterY()
		switch {
		case cy < topBand:
			groups["top"] = append(groups["top"], name)
		case cy > bottomBand:
			groups["bottom"] = append(groups["bottom"], name)
		default:
			groups["main"] = append(groups["main"], name)
		}
	}
	for k, v := range groups {
		if len(v) == 0 {
			delete(groups, k)
		}
	}
	return groups
}

// WebSummary is the summarized form of a browser accessibility tree.
type WebSummary struct {
	URL           string
	ElementCounts map[string]int
	TotalElements int
	PageType      string
	SummaryLine   string
}

// SummarizeWeb counts web nodes by category and classifies the page type.
func SummarizeWeb(url string, nodes []providers.WebNode) WebSummary {
	counts := map[string]int{}
	for _, n := range nodes {
		for cat, roles := range webCategories {
			if roles[n.Role] {
				counts[cat]++
			}
		}
	}
	pageType := DetectPageType(nodes, url)
	return WebSummary{
		URL:           url,
		ElementCounts: counts,
		TotalElements: len(nodes),
		PageType:      pageType,
		SummaryLine:   fmt.Sprintf("%s (%s): %d elements", url, pageType, len(nodes)),
	}
}

// DetectPageType applies the original's ordered heuristic set: login,
// search-results, form, article, dashboard, else "unknown".
func DetectPageType(nodes []providers.WebNode, url string) string {
	inputCount, headingCount, tabCount := 0, 0, 0
	hasButton, hasSearchbox, hasPassword, linkCount := false, false, false, 0
	for _, n := range nodes {
		switch n.Role {
		case "textbox", "combobox":
			inputCount++
		case "searchbox":
			inputCount++
			hasSearchbox = true
		case "heading":
			headingCount++
		case "tab":
			tabCount++
		case "button":
			hasButton = true
		case "link":
			linkCount++
		}
		if strings.Contains(strings.ToLower(n.Name), "password") {
			hasPassword = true
		}
	}
	lowerURL := strings.ToLower(url)
	hasSearchKeyword := strings.Contains(lowerURL, "search") || strings.Contains(lowerURL, "results") ||
		strings.Contains(lowerURL, "q=")

	switch {
	case hasPassword || strings.Contains(lowerURL, "login") || strings.Contains(lowerURL, "sign-in") || strings.Contains(lowerURL, "log-in"):
		return "login"
	case hasSearchKeyword && hasSearchbox && linkCount > 5:
		return "search-results"
	case inputCount >= 3:
		return "form"
	case headingCount >= 2 && inputCount <= 1:
		return "article"
	case tabCount >= 3 && hasButton:
		return "dashboard"
	default:
		return "unknown"
	}
}

// FormatSummary renders a compact multi-line text view of a UIA summary.
func FormatSummary(s UIASummary, includeGroups bool) string {
	var b strings.Builder
	b.WriteString(s.SummaryLine)
	b.WriteString("\n")
	if !includeGroups {
		return b.String()
	}
	for _, band := range []string{"top", "main", "bottom"} {
		names := s.Groups[band]
		if len(names) == 0 {
			continue
		}
		shown := names
		more := 0
		if len(shown) > 8 {
			more = len(shown) - 8
			shown = shown[:8]
		}
		line := fmt.Sprintf("%s: %s", strings.ToUpper(band), strings.Join(shown, ", "))
		if more > 0 {
			line += fmt.Sprintf(" +%d more", more)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
