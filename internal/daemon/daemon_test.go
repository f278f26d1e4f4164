package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/cache"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/registry"
	"github.com/nexusdaemon/nexus/internal/trajectory"
)

type fakeAX struct {
	win      providers.Window
	elements []providers.Element
}

func (f *fakeAX) ForegroundWindow(ctx context.Context) (providers.Window, error) { return f.win, nil }
func (f *fakeAX) Windows(ctx context.Context) ([]providers.Window, error)       { return nil, nil }
func (f *fakeAX) Elements(ctx context.Context, maxDepth int) ([]providers.Element, error) {
	return f.elements, nil
}
func (f *fakeAX) FocusedElement(ctx context.Context) (providers.Element, bool, error) {
	return providers.Element{}, false, nil
}
func (f *fakeAX) ElementAtPoint(ctx context.Context, x, y int) (providers.Element, bool, error) {
	return providers.Element{}, false, nil
}
func (f *fakeAX) SetForeground(ctx context.Context, title string) error { return nil }

type fakeScreen struct{}

func (s *fakeScreen) Click(ctx context.Context, x, y int, right, double bool) error { return nil }
func (s *fakeScreen) Move(ctx context.Context, x, y int) error                      { return nil }
func (s *fakeScreen) Type(ctx context.Context, text string) error                   { return nil }
func (s *fakeScreen) Key(ctx context.Context, keyname string) error                 { return nil }
func (s *fakeScreen) Scroll(ctx context.Context, amount int) error                  { return nil }
func (s *fakeScreen) Drag(ctx context.Context, startX, startY, endX, endY int, durationSec float64) error {
	return nil
}
func (s *fakeScreen) ScreenSize(ctx context.Context) (int, int, error)     { return 1920, 1080, nil }
func (s *fakeScreen) CursorPosition(ctx context.Context) (int, int, error) { return 0, 0, nil }

type fakeBrowser struct{}

func (b *fakeBrowser) PageInfo(ctx context.Context, tab, port int) (string, string, error) {
	return "https://example.com", "Example", nil
}
func (b *fakeBrowser) AXTree(ctx context.Context, tab, port int) ([]providers.WebNode, error) {
	return nil, nil
}
func (b *fakeBrowser) ClickText(ctx context.Context, text string, tab, port int) error { return nil }
func (b *fakeBrowser) Navigate(ctx context.Context, url string, tab, port int) error   { return nil }
func (b *fakeBrowser) InputValue(ctx context.Context, selector, value string, tab, port int) error {
	return nil
}

func testServer() *Server {
	reg := registry.BuildRegistry(registry.Deps{
		AX: &fakeAX{win: providers.Window{Title: "Notepad"}, elements: []providers.Element{
			{Name: "Save", Role: "ButtonControl"},
		}},
		Screen:  &fakeScreen{},
		Browser: &fakeBrowser{},
	})
	return New(Server{Registry: reg, Cache: cache.NewMemoryCache()})
}

func runLine(t *testing.T, s *Server, line string) map[string]any {
	t.Helper()
	var out bytes.Buffer
	s.out = &out
	s.startTime = time.Now()
	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &req))
	s.handleRequest(context.Background(), req)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	return resp
}

func TestPingReturnsUptime(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"ping"}`)
	assert.Equal(t, true, resp["ok"])
	assert.Contains(t, resp, "uptime")
}

func TestUnknownCommandErrors(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"bogus"}`)
	assert.Equal(t, false, resp["ok"])
	assert.Contains(t, resp["error"], "Unknown command")
}

func TestCommandsListsBuiltins(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"commands"}`)
	cmds, ok := resp["commands"].([]any)
	require.True(t, ok)
	var names []string
	for _, c := range cmds {
		names = append(names, c.(string))
	}
	assert.Contains(t, names, "describe")
	assert.Contains(t, names, "ping")
	assert.Contains(t, names, "batch")
}

func TestDescribeExecutesThroughRegistry(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"describe","auto":false}`)
	assert.Equal(t, float64(1), resp["element_count"])
}

func TestDescribeAutoPruneSuggestsCompactFormat(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"describe"}`)
	assert.Equal(t, true, resp["ok"])
	assert.Contains(t, resp, "text")
}

func TestCacheHitOnSecondCall(t *testing.T) {
	s := testServer()
	first := runLine(t, s, `{"command":"windows"}`)
	assert.NotContains(t, first, "cached")

	second := runLine(t, s, `{"command":"windows"}`)
	assert.Equal(t, true, second["cached"])
}

func TestBatchBuiltinRunsSteps(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"batch","steps":"describe"}`)
	assert.NotNil(t, resp)
}

func TestTaskWithoutTrajectoryErrors(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"task","action":"status"}`)
	assert.Equal(t, false, resp["ok"])
}

func TestTaskLifecycleWithTrajectory(t *testing.T) {
	s := testServer()
	s.Trajectory = trajectory.New(t.TempDir(), nil)

	start := runLine(t, s, `{"command":"task","action":"start","name":"demo"}`)
	assert.Equal(t, true, start["ok"])

	status := runLine(t, s, `{"command":"task","action":"status"}`)
	assert.Equal(t, true, status["ok"])
}

func TestRecallWithoutMemoryErrors(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"recall"}`)
	assert.Equal(t, false, resp["ok"])
}

func TestWatchWithoutWatcherErrors(t *testing.T) {
	s := testServer()
	resp := runLine(t, s, `{"command":"watch","action":"status"}`)
	assert.Equal(t, false, resp["ok"])
}

func TestQuitStopsServe(t *testing.T) {
	s := testServer()
	in := strings.NewReader("{\"command\":\"ping\"}\n{\"command\":\"quit\"}\n{\"command\":\"ping\"}\n")
	var out bytes.Buffer
	err := s.Serve(context.Background(), in, &out)
	require.NoError(t, err)

	scanner := bufio.NewScanner(&out)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &last))
	assert.Equal(t, "Nexus daemon shutting down", last["message"])
}

func TestNewDefaultsConcurrencyBound(t *testing.T) {
	s := testServer()
	require.NotNil(t, s.sem)
	assert.Equal(t, defaultMaxConcurrentRequests, s.MaxConcurrentRequests)
}

func TestConcurrencyBoundIsConfigurable(t *testing.T) {
	s := New(Server{Registry: testServer().Registry, MaxConcurrentRequests: 2})
	require.True(t, s.sem.TryAcquire(2))
	assert.False(t, s.sem.TryAcquire(1))
	s.sem.Release(2)
	assert.True(t, s.sem.TryAcquire(1))
}

func TestInvalidJSONReturnsError(t *testing.T) {
	s := testServer()
	in := strings.NewReader("not json\n")
	var out bytes.Buffer
	err := s.Serve(context.Background(), in, &out)
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, false, resp["ok"])
}
