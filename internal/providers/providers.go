// Package providers defines the perception/action backends Nexus commands
// are built on: accessibility (UIA-equivalent), browser (CDP-equivalent),
// screen input, OCR/vision, and Windows office/COM integrations. Wiring a
// real OS-level binding behind these interfaces is out of scope for this
// module; StubXxx implementations back local tests and the simulated mode
// the daemon falls back to when a capability probe fails.
package providers

import "context"

// Element mirrors a single accessibility-tree node.
type Element struct {
	Name        string  `json:"name"`
	Role        string  `json:"type"`
	ControlType int     `json:"control_type_id,omitempty"`
	Bounds      Bounds  `json:"bounds"`
	Enabled     bool    `json:"is_enabled"`
	Focused     bool    `json:"focused"`
	Expanded    *bool   `json:"expanded,omitempty"`
	Checked     *bool   `json:"checked,omitempty"`
	Value       string  `json:"value,omitempty"`
}

// Bounds is an element's screen rectangle.
type Bounds struct {
	X, Y, Width, Height int
}

// CenterX returns the horizontal midpoint of the bounds.
func (b Bounds) CenterX() int { return b.X + b.Width/2 }

// CenterY returns the vertical midpoint of the bounds.
func (b Bounds) CenterY() int { return b.Y + b.Height/2 }

// Window describes one top-level OS window.
type Window struct {
	Title       string `json:"title"`
	ProcessName string `json:"process_name"`
	PID         int    `json:"pid"`
	Foreground  bool   `json:"foreground"`
	Bounds      Bounds `json:"bounds"`
}

// AccessibilityProvider is the native UI-tree backend (UIA on Windows).
type AccessibilityProvider interface {
	ForegroundWindow(ctx context.Context) (Window, error)
	Windows(ctx context.Context) ([]Window, error)
	Elements(ctx context.Context, maxDepth int) ([]Element, error)
	FocusedElement(ctx context.Context) (Element, bool, error)
	ElementAtPoint(ctx context.Context, x, y int) (Element, bool, error)
	SetForeground(ctx context.Context, title string) error
}

// WebNode mirrors one accessibility-tree node of a browser page.
type WebNode struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Checked  *bool  `json:"checked,omitempty"`
	Expanded *bool  `json:"expanded,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Focused  bool   `json:"focused,omitempty"`
}

// BrowserProvider is the Chromium DevTools Protocol backend.
type BrowserProvider interface {
	PageInfo(ctx context.Context, tab, port int) (url, title string, err error)
	AXTree(ctx context.Context, tab, port int) ([]WebNode, error)
	ClickText(ctx context.Context, text string, tab, port int) error
	Navigate(ctx context.Context, url string, tab, port int) error
	InputValue(ctx context.Context, selector, value string, tab, port int) error
}

// ScreenProvider is the raw pixel/input-injection backend.
type ScreenProvider interface {
	Click(ctx context.Context, x, y int, right, double bool) error
	Move(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string) error
	Key(ctx context.Context, keyname string) error
	Scroll(ctx context.Context, amount int) error
	Drag(ctx context.Context, startX, startY, endX, endY int, durationSec float64) error
	ScreenSize(ctx context.Context) (w, h int, err error)
	CursorPosition(ctx context.Context) (x, y int, err error)
}

// VisionProvider wraps an OCR/vision microservice.
type VisionProvider interface {
	Healthy(ctx context.Context) bool
}

// OfficeProvider wraps the Windows COM office integrations.
type OfficeProvider interface {
	Healthy(ctx context.Context) bool
}
