package providers

import (
	"context"
	"sync"
)

// StubAccessibility is an in-memory AccessibilityProvider used by tests and
// by the daemon's simulated mode when no real UIA binding is present.
type StubAccessibility struct {
	mu         sync.Mutex
	Foreground Window
	WindowList []Window
	Tree       []Element
	Focused    *Element
}

func NewStubAccessibility() *StubAccessibility {
	return &StubAccessibility{}
}

func (s *StubAccessibility) ForegroundWindow(ctx context.Context) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Foreground, nil
}

func (s *StubAccessibility) Windows(ctx context.Context) ([]Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Window, len(s.WindowList))
	copy(out, s.WindowList)
	return out, nil
}

func (s *StubAccessibility) Elements(ctx context.Context, maxDepth int) ([]Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Element, len(s.Tree))
	copy(out, s.Tree)
	return out, nil
}

func (s *StubAccessibility) FocusedElement(ctx context.Context) (Element, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Focused == nil {
		return Element{}, false, nil
	}
	return *s.Focused, true, nil
}

func (s *StubAccessibility) ElementAtPoint(ctx context.Context, x, y int) (Element, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range s.Tree {
		b := el.Bounds
		if x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height {
			return el, true, nil
		}
	}
	return Element{}, false, nil
}

func (s *StubAccessibility) SetForeground(ctx context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.WindowList {
		if w.Title == title {
			s.Foreground = w
			return nil
		}
	}
	return nil
}

// StubScreen is a no-op ScreenProvider recording the last action taken.
type StubScreen struct {
	mu         sync.Mutex
	LastX      int
	LastY      int
	LastText   string
	LastKey    string
	LastScroll int
	Width      int
	Height     int
}

func NewStubScreen() *StubScreen {
	return &StubScreen{Width: 1920, Height: 1080}
}

func (s *StubScreen) Click(ctx context.Context, x, y int, right, double bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastX, s.LastY = x, y
	return nil
}

func (s *StubScreen) Move(ctx context.Context, x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastX, s.LastY = x, y
	return nil
}

func (s *StubScreen) Type(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastText = text
	return nil
}

func (s *StubScreen) Key(ctx context.Context, keyname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastKey = keyname
	return nil
}

func (s *StubScreen) Scroll(ctx context.Context, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastScroll = amount
	return nil
}

func (s *StubScreen) Drag(ctx context.Context, startX, startY, endX, endY int, durationSec float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastX, s.LastY = endX, endY
	return nil
}

func (s *StubScreen) ScreenSize(ctx context.Context) (int, int, error) {
	return s.Width, s.Height, nil
}

func (s *StubScreen) CursorPosition(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastX, s.LastY, nil
}

// StubBrowser is an in-memory BrowserProvider used by tests and by the
// daemon's simulated mode when no real CDP connection is present.
type StubBrowser struct {
	mu          sync.Mutex
	URL         string
	Title       string
	Tree        []WebNode
	LastClick   string
	LastNav     string
	LastInput   [2]string // selector, value
}

func NewStubBrowser() *StubBrowser {
	return &StubBrowser{}
}

func (b *StubBrowser) PageInfo(ctx context.Context, tab, port int) (string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.URL, b.Title, nil
}

func (b *StubBrowser) AXTree(ctx context.Context, tab, port int) ([]WebNode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]WebNode, len(b.Tree))
	copy(out, b.Tree)
	return out, nil
}

func (b *StubBrowser) ClickText(ctx context.Context, text string, tab, port int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastClick = text
	return nil
}

func (b *StubBrowser) Navigate(ctx context.Context, url string, tab, port int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastNav = url
	b.URL = url
	return nil
}

func (b *StubBrowser) InputValue(ctx context.Context, selector, value string, tab, port int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LastInput = [2]string{selector, value}
	return nil
}
