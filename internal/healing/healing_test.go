package healing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/providers"
)

type fakeAX struct {
	mu         sync.Mutex
	foreground providers.Window
	elements   []providers.Element
	overAt     map[[2]int]providers.Element
}

func (f *fakeAX) ForegroundWindow(ctx context.Context) (providers.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.foreground, nil
}
func (f *fakeAX) Windows(ctx context.Context) ([]providers.Window, error) { return nil, nil }
func (f *fakeAX) Elements(ctx context.Context, maxDepth int) ([]providers.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.Element{}, f.elements...), nil
}
func (f *fakeAX) FocusedElement(ctx context.Context) (providers.Element, bool, error) {
	return providers.Element{}, false, nil
}
func (f *fakeAX) ElementAtPoint(ctx context.Context, x, y int) (providers.Element, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.overAt[[2]int{x, y}]
	return el, ok, nil
}
func (f *fakeAX) SetForeground(ctx context.Context, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.foreground.Title = title
	return nil
}

type fakeScreen struct {
	mu      sync.Mutex
	clicks  [][2]int
	keys    []string
}

func (s *fakeScreen) Click(ctx context.Context, x, y int, right, double bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, [2]int{x, y})
	return nil
}
func (s *fakeScreen) Move(ctx context.Context, x, y int) error { return nil }
func (s *fakeScreen) Type(ctx context.Context, text string) error { return nil }
func (s *fakeScreen) Key(ctx context.Context, keyname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keyname)
	return nil
}
func (s *fakeScreen) Scroll(ctx context.Context, amount int) error { return nil }
func (s *fakeScreen) Drag(ctx context.Context, startX, startY, endX, endY int, durationSec float64) error {
	return nil
}
func (s *fakeScreen) ScreenSize(ctx context.Context) (int, int, error)       { return 1920, 1080, nil }
func (s *fakeScreen) CursorPosition(ctx context.Context) (int, int, error) { return 0, 0, nil }

func TestHealClickRelocatesMovedElement(t *testing.T) {
	ax := &fakeAX{
		foreground: providers.Window{Title: "Notepad"},
		elements: []providers.Element{
			{Name: "Save", Role: "ButtonControl", Enabled: true, Bounds: providers.Bounds{X: 200, Y: 200, Width: 10, Height: 10}},
		},
	}
	screen := &fakeScreen{}
	h := New(ax, screen)

	result := h.HealClick(context.Background(), "Save", 0, 0, false, false, "")
	require.True(t, result.Healed)
	assert.Equal(t, RecoveryRelocate, result.Diagnosis.Recovery)
	assert.Len(t, screen.clicks, 1)
}

func TestHealClickNotFoundReturnsSuggestions(t *testing.T) {
	ax := &fakeAX{
		foreground: providers.Window{Title: "Notepad"},
		elements: []providers.Element{
			{Name: "Save As", Role: "ButtonControl", Enabled: true},
		},
	}
	screen := &fakeScreen{}
	h := New(ax, screen)

	result := h.HealClick(context.Background(), "Save", 0, 0, false, false, "")
	assert.False(t, result.Healed)
	assert.Equal(t, FailureElementNotFound, result.Diagnosis.FailureType)
}

func TestDiagnoseClickFailureDetectsBlockingDialog(t *testing.T) {
	ax := &fakeAX{
		foreground: providers.Window{Title: "Notepad"},
		overAt: map[[2]int]providers.Element{
			{5, 5}: {Name: "Confirm", Role: "WindowControl"},
		},
		elements: []providers.Element{
			{Name: "Cancel", Role: "ButtonControl", Enabled: true},
		},
	}
	screen := &fakeScreen{}
	h := New(ax, screen)

	diagnosis := h.diagnoseClickFailure(context.Background(), "Save", 5, 5, "")
	assert.Equal(t, FailureDialogBlocking, diagnosis.FailureType)
	assert.True(t, diagnosis.Recoverable)
}
