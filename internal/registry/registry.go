// Package registry is the single source of truth mapping a command name to
// its implementation and argument extractor, mirroring run.py's
// _build_commands/_build_daemon_commands dispatch tables. Every client
// surface — the daemon loop, the one-shot CLI, the batch interpreter, the
// MCP tool list — executes commands only through this table.
package registry

import (
	"context"
	"fmt"

	"github.com/nexusdaemon/nexus/internal/element"
	"github.com/nexusdaemon/nexus/internal/filters"
	"github.com/nexusdaemon/nexus/internal/providers"
)

// Annotations are semantic hints for orchestrators, ported from
// tools_schema.py's TOOL_ANNOTATIONS.
type Annotations struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
}

// Param describes one argument a command accepts, used both for daemon
// extraction validation and for tool-schema generation.
type Param struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean"
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// Command is one registered entry: its metadata plus the function that runs
// it against a daemon-style kwargs map (already extracted from a JSON
// request or a batch step).
type Command struct {
	Name        string
	Description string
	Category    string
	Annotations Annotations
	Params      []Param
	Run         func(ctx context.Context, kwargs map[string]any) (map[string]any, error)
}

// Registry holds every command, in registration order, keyed by name.
type Registry struct {
	commands map[string]Command
	order    []string
}

func newRegistry() *Registry {
	return &Registry{commands: map[string]Command{}}
}

func (r *Registry) add(cmd Command) {
	r.commands[cmd.Name] = cmd
	r.order = append(r.order, cmd.Name)
}

// Known reports whether name is a registered command.
func (r *Registry) Known(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// List returns every command in registration order.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// Execute runs a registered command, satisfying batch.Executor.
func (r *Registry) Execute(name string, kwargs map[string]any) (map[string]any, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("unknown command: %q", name)
	}
	return cmd.Run(context.Background(), kwargs)
}

// Deps are the provider backends every command function is built on.
type Deps struct {
	AX      providers.AccessibilityProvider
	Browser providers.BrowserProvider
	Screen  providers.ScreenProvider
	Clicker *element.Clicker
}

// BuildRegistry constructs every command entry, wiring each to deps. It is
// built once at startup and shared by the daemon loop, the CLI, and batch
// execution.
func BuildRegistry(deps Deps) *Registry {
	r := newRegistry()

	r.add(Command{
		Name: "describe", Category: "UIA Awareness (Native Apps)",
		Description: "Describe the active window's UI elements, cursor position, and focused element.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params: []Param{
			{Name: "max_depth", Type: "integer", Description: "Max tree depth for fallback traversal (default 6)"},
			{Name: "focus", Type: "string", Description: "Filter preset or free text"},
			{Name: "match", Type: "string", Description: "Glob or regex pattern to match element names"},
			{Name: "region", Type: "string", Description: "Spatial filter: top/bottom/left/right/center or X,Y,W,H"},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdDescribe(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "windows", Category: "UIA Awareness (Native Apps)",
		Description: "List all open windows with titles, positions, and process info.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWindows(ctx, deps)
		},
	})

	r.add(Command{
		Name: "find", Category: "UIA Awareness (Native Apps)",
		Description: "Search for a UI element by name in the active window.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params: []Param{
			{Name: "query", Type: "string", Required: true, Description: "Text to search for in element names"},
			{Name: "focus", Type: "string", Description: "Optional filter preset"},
			{Name: "region", Type: "string", Description: "Optional spatial filter"},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdFind(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "focused", Category: "UIA Awareness (Native Apps)",
		Description: "Report which UI element currently has keyboard focus.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdFocused(ctx, deps)
		},
	})

	r.add(Command{
		Name: "web-describe", Category: "Web Awareness (Chrome/CDP)",
		Description: "Get page title, URL, and accessibility summary from Chrome.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params:      []Param{{Name: "tab", Type: "integer", Default: 0}, {Name: "port", Type: "integer", Default: 9222}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebDescribe(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-ax", Category: "Web Awareness (Chrome/CDP)",
		Description: "Chrome accessibility tree via CDP — semantic structure with roles, names, and states.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params: []Param{
			{Name: "tab", Type: "integer", Default: 0}, {Name: "port", Type: "integer", Default: 9222},
			{Name: "focus", Type: "string"}, {Name: "match", Type: "string"},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebAX(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-find", Category: "Web Awareness (Chrome/CDP)",
		Description: "Find elements on the current browser page by visible text.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params: []Param{
			{Name: "query", Type: "string", Required: true}, {Name: "tab", Type: "integer", Default: 0},
			{Name: "port", Type: "integer", Default: 9222},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebFind(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-links", Category: "Web Awareness (Chrome/CDP)",
		Description: "List all hyperlinks on the current browser page with their URLs and text.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Params:      []Param{{Name: "tab", Type: "integer", Default: 0}, {Name: "port", Type: "integer", Default: 9222}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebLinks(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "click", Category: "Screen Input",
		Description: "Click at exact pixel coordinates.",
		Annotations: Annotations{},
		Params: []Param{
			{Name: "x", Type: "integer", Required: true}, {Name: "y", Type: "integer", Required: true},
			{Name: "right", Type: "boolean"}, {Name: "double", Type: "boolean"},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdClick(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "move", Category: "Screen Input",
		Description: "Move cursor to pixel coordinates without clicking.",
		Params:      []Param{{Name: "x", Type: "integer", Required: true}, {Name: "y", Type: "integer", Required: true}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdMove(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "type", Category: "Screen Input",
		Description: "Type text at the current cursor/focus position.",
		Params:      []Param{{Name: "text", Type: "string", Required: true}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdType(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "key", Category: "Screen Input",
		Description: "Press a key or keyboard shortcut, e.g. 'ctrl+s'.",
		Params:      []Param{{Name: "keyname", Type: "string", Required: true}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdKey(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "scroll", Category: "Screen Input",
		Description: "Scroll the mouse wheel at the current cursor position.",
		Params:      []Param{{Name: "amount", Type: "integer", Required: true}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdScroll(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "drag", Category: "Screen Input",
		Description: "Drag from one screen coordinate to another.",
		Params: []Param{
			{Name: "start_x", Type: "integer", Required: true}, {Name: "start_y", Type: "integer", Required: true},
			{Name: "end_x", Type: "integer", Required: true}, {Name: "end_y", Type: "integer", Required: true},
			{Name: "duration", Type: "number", Default: 0.5},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdDrag(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "info", Category: "Screen Input",
		Description: "Get screen resolution and current cursor position.",
		Annotations: Annotations{ReadOnly: true, Idempotent: true},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdInfo(ctx, deps)
		},
	})

	r.add(Command{
		Name: "click-element", Category: "Element Interaction",
		Description: "Find a UI element by name and click it. Survives window moves; set heal=true for auto-recovery.",
		Params: []Param{
			{Name: "name", Type: "string", Required: true}, {Name: "right", Type: "boolean"},
			{Name: "double", Type: "boolean"}, {Name: "role", Type: "string"},
			{Name: "index", Type: "integer", Default: 0}, {Name: "verify", Type: "boolean"},
			{Name: "heal", Type: "boolean"},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdClickElement(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-click", Category: "Web Actions",
		Description: "Click a browser element by its visible text.",
		Params:      []Param{{Name: "text", Type: "string", Required: true}, {Name: "port", Type: "integer", Default: 9222}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebClick(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-navigate", Category: "Web Actions",
		Description: "Navigate Chrome to a URL.",
		Params:      []Param{{Name: "url", Type: "string", Required: true}, {Name: "port", Type: "integer", Default: 9222}},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebNavigate(ctx, deps, kwargs)
		},
	})

	r.add(Command{
		Name: "web-input", Category: "Web Actions",
		Description: "Fill an input field in the browser by CSS selector.",
		Params: []Param{
			{Name: "selector", Type: "string", Required: true}, {Name: "value", Type: "string", Required: true},
			{Name: "port", Type: "integer", Default: 9222},
		},
		Run: func(ctx context.Context, kwargs map[string]any) (map[string]any, error) {
			return cmdWebInput(ctx, deps, kwargs)
		},
	})

	return r
}

// --- UIA commands ---

func cmdDescribe(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	win, err := deps.AX.ForegroundWindow(ctx)
	if err != nil {
		return nil, err
	}
	maxDepth := intKwarg(kwargs, "max_depth", 6)
	elements, err := deps.AX.Elements(ctx, maxDepth)
	if err != nil {
		return nil, err
	}

	focus := strKwarg(kwargs, "focus")
	match := strKwarg(kwargs, "match")
	region := strKwarg(kwargs, "region")
	if focus != "" || match != "" || region != "" {
		sw, sh, _ := deps.Screen.ScreenSize(ctx)
		elements = filters.FilterElements(elements, focus, match, region, sw, sh)
	}

	focusedEl, hasFocus, _ := deps.AX.FocusedElement(ctx)
	cx, cy, _ := deps.Screen.CursorPosition(ctx)

	result := map[string]any{
		"command": "describe",
		"window":  windowToMap(win),
		"cursor":  map[string]any{"x": cx, "y": cy},
		"elements":      elementsToMaps(elements),
		"element_count": len(elements),
	}
	if hasFocus {
		result["focused_element"] = elementToMap(focusedEl)
	}
	if len(elements) == 0 {
		hint := "Window has no named UIA elements — try web-describe instead"
		if focus != "" || match != "" || region != "" {
			hint = fmt.Sprintf("No elements matched filters (focus=%s, match=%s, region=%s) — try without filters", focus, match, region)
		}
		result["suggestions"] = []string{hint}
	}
	return result, nil
}

func cmdWindows(ctx context.Context, deps Deps) (map[string]any, error) {
	wins, err := deps.AX.Windows(ctx)
	if err != nil {
		return nil, err
	}
	fg, _ := deps.AX.ForegroundWindow(ctx)
	out := make([]map[string]any, 0, len(wins))
	for _, w := range wins {
		m := windowToMap(w)
		m["is_foreground"] = w.Title == fg.Title
		out = append(out, m)
	}
	return map[string]any{"command": "windows", "windows": toAnySlice(out), "count": len(out)}, nil
}

func cmdFind(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	query, ok := kwargs["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("find requires a query")
	}
	win, err := deps.AX.ForegroundWindow(ctx)
	if err != nil {
		return nil, err
	}
	all, err := deps.AX.Elements(ctx, 6)
	if err != nil {
		return nil, err
	}
	var matches []providers.Element
	for _, el := range all {
		if filters.MatchName(el.Name, query) {
			matches = append(matches, el)
		}
	}
	focus := strKwarg(kwargs, "focus")
	region := strKwarg(kwargs, "region")
	if focus != "" || region != "" {
		sw, sh, _ := deps.Screen.ScreenSize(ctx)
		matches = filters.FilterElements(matches, focus, "", region, sw, sh)
	}
	return map[string]any{
		"command": "find", "query": query, "window": win.Title,
		"matches": toAnySlice(elementsToMaps(matches)), "count": len(matches),
	}, nil
}

func cmdFocused(ctx context.Context, deps Deps) (map[string]any, error) {
	el, ok, err := deps.AX.FocusedElement(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{"command": "focused", "element": nil, "parent_chain": []any{}}, nil
	}
	return map[string]any{"command": "focused", "element": elementToMap(el), "parent_chain": []any{}}, nil
}

// --- Web commands ---

func cmdWebDescribe(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	tab := intKwarg(kwargs, "tab", 0)
	port := intKwarg(kwargs, "port", 9222)
	url, title, err := deps.Browser.PageInfo(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	return map[string]any{"command": "web-describe", "url": url, "title": title}, nil
}

func cmdWebAX(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	tab := intKwarg(kwargs, "tab", 0)
	port := intKwarg(kwargs, "port", 9222)
	url, title, err := deps.Browser.PageInfo(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	nodes, err := deps.Browser.AXTree(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	focus := strKwarg(kwargs, "focus")
	match := strKwarg(kwargs, "match")
	if focus != "" || match != "" {
		nodes = filters.FilterWebNodes(nodes, focus, match)
	}
	return map[string]any{
		"command": "web-ax", "url": url, "title": title,
		"nodes": toAnySlice(webNodesToMaps(nodes)), "count": len(nodes),
	}, nil
}

func cmdWebFind(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	query, ok := kwargs["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("web-find requires a query")
	}
	tab := intKwarg(kwargs, "tab", 0)
	port := intKwarg(kwargs, "port", 9222)
	nodes, err := deps.Browser.AXTree(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	var matches []providers.WebNode
	for _, n := range nodes {
		if filters.MatchName(n.Name, query) {
			matches = append(matches, n)
		}
	}
	return map[string]any{
		"command": "web-find", "query": query,
		"matches": toAnySlice(webNodesToMaps(matches)), "count": len(matches),
	}, nil
}

func cmdWebLinks(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	tab := intKwarg(kwargs, "tab", 0)
	port := intKwarg(kwargs, "port", 9222)
	url, _, err := deps.Browser.PageInfo(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	nodes, err := deps.Browser.AXTree(ctx, tab, port)
	if err != nil {
		return nil, err
	}
	var links []map[string]any
	for _, n := range nodes {
		if n.Role == "link" {
			links = append(links, map[string]any{"text": n.Name, "href": ""})
		}
	}
	return map[string]any{"command": "web-links", "url": url, "links": toAnySlice(links), "count": len(links)}, nil
}

// --- Screen input commands ---

func cmdClick(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	x, y := intKwarg(kwargs, "x", 0), intKwarg(kwargs, "y", 0)
	right, _ := kwargs["right"].(bool)
	double, _ := kwargs["double"].(bool)
	if err := deps.Screen.Click(ctx, x, y, right, double); err != nil {
		return nil, err
	}
	return map[string]any{"command": "click", "ok": true, "x": x, "y": y}, nil
}

func cmdMove(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	x, y := intKwarg(kwargs, "x", 0), intKwarg(kwargs, "y", 0)
	if err := deps.Screen.Move(ctx, x, y); err != nil {
		return nil, err
	}
	return map[string]any{"command": "move", "ok": true, "x": x, "y": y}, nil
}

func cmdType(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	text := strKwarg(kwargs, "text")
	if err := deps.Screen.Type(ctx, text); err != nil {
		return nil, err
	}
	return map[string]any{"command": "type", "ok": true, "length": len(text)}, nil
}

func cmdKey(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	keyname := strKwarg(kwargs, "keyname")
	if err := deps.Screen.Key(ctx, keyname); err != nil {
		return nil, err
	}
	return map[string]any{"command": "key", "ok": true, "keyname": keyname}, nil
}

func cmdScroll(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	amount := intKwarg(kwargs, "amount", 0)
	if err := deps.Screen.Scroll(ctx, amount); err != nil {
		return nil, err
	}
	return map[string]any{"command": "scroll", "ok": true, "amount": amount}, nil
}

func cmdDrag(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	sx, sy := intKwarg(kwargs, "start_x", 0), intKwarg(kwargs, "start_y", 0)
	ex, ey := intKwarg(kwargs, "end_x", 0), intKwarg(kwargs, "end_y", 0)
	duration := floatKwarg(kwargs, "duration", 0.5)
	if err := deps.Screen.Drag(ctx, sx, sy, ex, ey, duration); err != nil {
		return nil, err
	}
	return map[string]any{"command": "drag", "ok": true, "start": []int{sx, sy}, "end": []int{ex, ey}}, nil
}

func cmdInfo(ctx context.Context, deps Deps) (map[string]any, error) {
	w, h, err := deps.Screen.ScreenSize(ctx)
	if err != nil {
		return nil, err
	}
	x, y, err := deps.Screen.CursorPosition(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"command": "info", "screen": map[string]any{"width": w, "height": h},
		"cursor": map[string]any{"x": x, "y": y},
	}, nil
}

// --- Element & web-action commands ---

func cmdClickElement(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	if deps.Clicker == nil {
		return nil, fmt.Errorf("click-element unavailable: no clicker configured")
	}
	name := strKwarg(kwargs, "name")
	right, _ := kwargs["right"].(bool)
	double, _ := kwargs["double"].(bool)
	role := strKwarg(kwargs, "role")
	index := intKwarg(kwargs, "index", 0)
	verify, _ := kwargs["verify"].(bool)
	heal, _ := kwargs["heal"].(bool)
	return map[string]any(deps.Clicker.ClickElement(ctx, name, right, double, role, index, verify, heal)), nil
}

func cmdWebClick(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	text := strKwarg(kwargs, "text")
	port := intKwarg(kwargs, "port", 9222)
	if err := deps.Browser.ClickText(ctx, text, 0, port); err != nil {
		return map[string]any{"command": "web-click", "success": false, "error": err.Error()}, nil
	}
	return map[string]any{"command": "web-click", "success": true, "clicked": text}, nil
}

func cmdWebNavigate(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	url := strKwarg(kwargs, "url")
	port := intKwarg(kwargs, "port", 9222)
	if err := deps.Browser.Navigate(ctx, url, 0, port); err != nil {
		return map[string]any{"command": "web-navigate", "success": false, "error": err.Error()}, nil
	}
	return map[string]any{"command": "web-navigate", "success": true, "url": url}, nil
}

func cmdWebInput(ctx context.Context, deps Deps, kwargs map[string]any) (map[string]any, error) {
	selector := strKwarg(kwargs, "selector")
	value := strKwarg(kwargs, "value")
	port := intKwarg(kwargs, "port", 9222)
	if err := deps.Browser.InputValue(ctx, selector, value, 0, port); err != nil {
		return map[string]any{"command": "web-input", "success": false, "error": err.Error()}, nil
	}
	return map[string]any{"command": "web-input", "success": true, "selector": selector}, nil
}

// --- shared helpers ---

func windowToMap(w providers.Window) map[string]any {
	return map[string]any{
		"title": w.Title, "process_name": w.ProcessName, "pid": w.PID,
		"bounds": boundsToMap(w.Bounds),
	}
}

func elementToMap(el providers.Element) map[string]any {
	return map[string]any{
		"name": el.Name, "type": el.Role, "bounds": boundsToMap(el.Bounds),
		"is_enabled": el.Enabled, "focused": el.Focused,
	}
}

func elementsToMaps(elements []providers.Element) []any {
	out := make([]any, len(elements))
	for i, el := range elements {
		out[i] = elementToMap(el)
	}
	return out
}

func webNodeToMap(n providers.WebNode) map[string]any {
	m := map[string]any{"name": n.Name, "role": n.Role, "focused": n.Focused, "disabled": n.Disabled}
	if n.Checked != nil {
		m["checked"] = *n.Checked
	}
	if n.Expanded != nil {
		m["expanded"] = *n.Expanded
	}
	return m
}

func webNodesToMaps(nodes []providers.WebNode) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = webNodeToMap(n)
	}
	return out
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

func boundsToMap(b providers.Bounds) map[string]any {
	return map[string]any{
		"x": b.X, "y": b.Y, "width": b.Width, "height": b.Height,
		"center_x": b.CenterX(), "center_y": b.CenterY(),
	}
}

func strKwarg(kwargs map[string]any, key string) string {
	if v, ok := kwargs[key].(string); ok {
		return v
	}
	return ""
}

func intKwarg(kwargs map[string]any, key string, fallback int) int {
	switch v := kwargs[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatKwarg(kwargs map[string]any, key string, fallback float64) float64 {
	switch v := kwargs[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
