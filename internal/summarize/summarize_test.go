package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusdaemon/nexus/internal/providers"
)

func TestSummarizeUIACountsAndDialogs(t *testing.T) {
	win := providers.Window{Title: "Notepad", Bounds: providers.Bounds{X: 0, Y: 0, Width: 800, Height: 600}}
	elements := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 10, Y: 10, Width: 5, Height: 5}},
		{Name: "Unsaved Changes", Role: "WindowControl", Bounds: providers.Bounds{X: 300, Y: 300, Width: 5, Height: 5}},
		{Name: "Error: disk full", Role: "TextControl", Bounds: providers.Bounds{X: 300, Y: 500, Width: 5, Height: 5}},
	}
	s := SummarizeUIA(win, elements)
	assert.Equal(t, 1, s.ElementCounts["button"])
	assert.Equal(t, 3, s.TotalElements)
	assert.Len(t, s.Dialogs, 1)
	assert.Len(t, s.Errors, 1)
}

func TestDetectPageTypeLogin(t *testing.T) {
	nodes := []providers.WebNode{{Name: "Password", Role: "textbox"}}
	assert.Equal(t, "login", DetectPageType(nodes, "https://example.com/login"))
}

func TestDetectPageTypeForm(t *testing.T) {
	nodes := []providers.WebNode{
		{Role: "textbox"}, {Role: "textbox"}, {Role: "combobox"},
	}
	assert.Equal(t, "form", DetectPageType(nodes, "https://example.com/signup"))
}
