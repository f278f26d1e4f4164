package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/providers"
)

type fakeAX struct {
	win      providers.Window
	wins     []providers.Window
	elements []providers.Element
	focused  providers.Element
	hasFocus bool
}

func (f *fakeAX) ForegroundWindow(ctx context.Context) (providers.Window, error) { return f.win, nil }
func (f *fakeAX) Windows(ctx context.Context) ([]providers.Window, error)       { return f.wins, nil }
func (f *fakeAX) Elements(ctx context.Context, maxDepth int) ([]providers.Element, error) {
	return f.elements, nil
}
func (f *fakeAX) FocusedElement(ctx context.Context) (providers.Element, bool, error) {
	return f.focused, f.hasFocus, nil
}
func (f *fakeAX) ElementAtPoint(ctx context.Context, x, y int) (providers.Element, bool, error) {
	return providers.Element{}, false, nil
}
func (f *fakeAX) SetForeground(ctx context.Context, title string) error { return nil }

type fakeScreen struct {
	clicks  []struct{ x, y int }
	scrolls []int
}

func (s *fakeScreen) Click(ctx context.Context, x, y int, right, double bool) error {
	s.clicks = append(s.clicks, struct{ x, y int }{x, y})
	return nil
}
func (s *fakeScreen) Move(ctx context.Context, x, y int) error     { return nil }
func (s *fakeScreen) Type(ctx context.Context, text string) error  { return nil }
func (s *fakeScreen) Key(ctx context.Context, keyname string) error { return nil }
func (s *fakeScreen) Scroll(ctx context.Context, amount int) error {
	s.scrolls = append(s.scrolls, amount)
	return nil
}
func (s *fakeScreen) Drag(ctx context.Context, startX, startY, endX, endY int, durationSec float64) error {
	return nil
}
func (s *fakeScreen) ScreenSize(ctx context.Context) (int, int, error)     { return 1920, 1080, nil }
func (s *fakeScreen) CursorPosition(ctx context.Context) (int, int, error) { return 5, 5, nil }

type fakeBrowser struct {
	url, title string
	nodes      []providers.WebNode
	lastClick  string
	lastNav    string
}

func (b *fakeBrowser) PageInfo(ctx context.Context, tab, port int) (string, string, error) {
	return b.url, b.title, nil
}
func (b *fakeBrowser) AXTree(ctx context.Context, tab, port int) ([]providers.WebNode, error) {
	return b.nodes, nil
}
func (b *fakeBrowser) ClickText(ctx context.Context, text string, tab, port int) error {
	b.lastClick = text
	return nil
}
func (b *fakeBrowser) Navigate(ctx context.Context, url string, tab, port int) error {
	b.lastNav = url
	return nil
}
func (b *fakeBrowser) InputValue(ctx context.Context, selector, value string, tab, port int) error {
	return nil
}

func testDeps() (Deps, *fakeAX, *fakeScreen, *fakeBrowser) {
	ax := &fakeAX{
		win: providers.Window{Title: "Notepad"},
		elements: []providers.Element{
			{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 10, Y: 10, Width: 20, Height: 10}},
		},
	}
	screen := &fakeScreen{}
	browser := &fakeBrowser{url: "https://example.com", title: "Example", nodes: []providers.WebNode{
		{Name: "Home", Role: "link"},
		{Name: "Submit", Role: "button"},
	}}
	return Deps{AX: ax, Screen: screen, Browser: browser}, ax, screen, browser
}

func TestBuildRegistryKnownCommands(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	assert.True(t, r.Known("describe"))
	assert.True(t, r.Known("click-element"))
	assert.False(t, r.Known("nonexistent"))
	assert.Len(t, r.List(), 19)
}

func TestDescribeReturnsElements(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("describe", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, result["element_count"])
}

func TestWindowsMarksForeground(t *testing.T) {
	deps, ax, _, _ := testDeps()
	ax.wins = []providers.Window{{Title: "Notepad"}, {Title: "Explorer"}}
	r := BuildRegistry(deps)
	result, err := r.Execute("windows", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 2, result["count"])
	wins := result["windows"].([]any)
	assert.Equal(t, true, wins[0].(map[string]any)["is_foreground"])
	assert.Equal(t, false, wins[1].(map[string]any)["is_foreground"])
}

func TestFindRequiresQuery(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	_, err := r.Execute("find", map[string]any{})
	assert.Error(t, err)
}

func TestFindMatchesByName(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("find", map[string]any{"query": "Save"})
	require.NoError(t, err)
	assert.Equal(t, 1, result["count"])
}

func TestClickDelegatesToScreen(t *testing.T) {
	deps, _, screen, _ := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("click", map[string]any{"x": 15, "y": 25})
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
	require.Len(t, screen.clicks, 1)
	assert.Equal(t, 15, screen.clicks[0].x)
}

func TestScrollPassesAmount(t *testing.T) {
	deps, _, screen, _ := testDeps()
	r := BuildRegistry(deps)
	_, err := r.Execute("scroll", map[string]any{"amount": -3})
	require.NoError(t, err)
	require.Len(t, screen.scrolls, 1)
	assert.Equal(t, -3, screen.scrolls[0])
}

func TestWebDescribeReturnsPageInfo(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("web-describe", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Example", result["title"])
}

func TestWebLinksFiltersLinkRole(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("web-links", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, result["count"])
}

func TestWebClickDelegatesToBrowser(t *testing.T) {
	deps, _, _, browser := testDeps()
	r := BuildRegistry(deps)
	result, err := r.Execute("web-click", map[string]any{"text": "Submit"})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "Submit", browser.lastClick)
}

func TestWebNavigateDelegatesToBrowser(t *testing.T) {
	deps, _, _, browser := testDeps()
	r := BuildRegistry(deps)
	_, err := r.Execute("web-navigate", map[string]any{"url": "https://nexus.test"})
	require.NoError(t, err)
	assert.Equal(t, "https://nexus.test", browser.lastNav)
}

func TestClickElementUnavailableWithoutClicker(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	_, err := r.Execute("click-element", map[string]any{"name": "Save"})
	assert.Error(t, err)
}

func TestUnknownCommandErrors(t *testing.T) {
	deps, _, _, _ := testDeps()
	r := BuildRegistry(deps)
	_, err := r.Execute("does-not-exist", map[string]any{})
	assert.Error(t, err)
}
