package toolschema

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/providers"
	"github.com/nexusdaemon/nexus/internal/registry"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.Default()
}

type fakeAX struct{ win providers.Window }

func (f *fakeAX) ForegroundWindow(ctx context.Context) (providers.Window, error) { return f.win, nil }
func (f *fakeAX) Windows(ctx context.Context) ([]providers.Window, error)       { return nil, nil }
func (f *fakeAX) Elements(ctx context.Context, maxDepth int) ([]providers.Element, error) {
	return nil, nil
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

func testRegistry() *registry.Registry {
	return registry.BuildRegistry(registry.Deps{
		AX: &fakeAX{win: providers.Window{Title: "Notepad"}}, Screen: &fakeScreen{}, Browser: &fakeBrowser{},
	})
}

func TestGenerateSchemasCoversEveryCommand(t *testing.T) {
	r := testRegistry()
	schemas := GenerateSchemas(r)
	assert.Len(t, schemas, len(r.List()))
}

func TestGenerateSchemasMarksRequiredParams(t *testing.T) {
	r := testRegistry()
	schemas := GenerateSchemas(r)
	var find *Schema
	for i := range schemas {
		if schemas[i].Name == "find" {
			find = &schemas[i]
		}
	}
	require.NotNil(t, find)
	assert.Contains(t, find.Parameters.Required, "query")
	assert.Equal(t, "string", find.Parameters.Properties["query"].Type)
}

func TestGenerateSchemasMapsIntegerType(t *testing.T) {
	r := testRegistry()
	schemas := GenerateSchemas(r)
	var click *Schema
	for i := range schemas {
		if schemas[i].Name == "click" {
			click = &schemas[i]
		}
	}
	require.NotNil(t, click)
	assert.Equal(t, "integer", click.Parameters.Properties["x"].Type)
}

func TestGenerateMarkdownGroupsByCategory(t *testing.T) {
	r := testRegistry()
	md := GenerateMarkdown(r)
	assert.Contains(t, md, "# Nexus Tool Reference")
	assert.Contains(t, md, "## UIA Awareness (Native Apps)")
	assert.Contains(t, md, "### `describe`")
	assert.True(t, strings.Contains(md, "**(required)**"))
}

func TestBuildMCPServerRegistersAllTools(t *testing.T) {
	r := testRegistry()
	s := BuildMCPServer(r, testLogger(t))
	assert.NotNil(t, s)
}
