package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCompactDescribe(t *testing.T) {
	result := map[string]any{
		"command": "describe",
		"window":  map[string]any{"title": "Notepad"},
		"elements": []any{
			map[string]any{"name": "Save", "type": "ButtonControl", "bounds": map[string]any{"x": 10.0, "y": 10.0, "width": 20.0, "height": 10.0}, "is_enabled": true},
		},
		"element_count": 1,
	}
	out := FormatCompact(result)
	assert.True(t, strings.HasPrefix(out, "# Notepad"))
	assert.Contains(t, out, "[Btn] Save")
	assert.Contains(t, out, "(1 elements)")
}

func TestFormatCompactDisabledElementFlag(t *testing.T) {
	result := map[string]any{
		"command": "find",
		"query":   "Save",
		"matches": []any{
			map[string]any{"name": "Save", "type": "ButtonControl", "is_enabled": false},
		},
		"count": 1,
	}
	out := FormatCompact(result)
	assert.Contains(t, out, "*disabled*")
}

func TestFormatCompactSummaryMode(t *testing.T) {
	result := map[string]any{
		"mode":         "summary",
		"summary_line": "Notepad: 5 elements, 0 errors, 0 dialogs",
		"groups":       map[string][]string{"top": {"File", "Edit"}, "main": {"Body"}},
	}
	out := FormatCompact(result)
	assert.Contains(t, out, "SUMMARY: Notepad")
	assert.Contains(t, out, "TOP: File, Edit")
	assert.Contains(t, out, "MAIN: Body")
}

func TestFormatCompactDiffMode(t *testing.T) {
	result := map[string]any{
		"mode":            "diff",
		"window":          "Notepad",
		"unchanged_count": 3,
		"summary":         "1 added",
		"added": []any{
			map[string]any{"name": "OK", "type": "ButtonControl"},
		},
	}
	out := FormatCompact(result)
	assert.Contains(t, out, "DIFF Notepad")
	assert.Contains(t, out, "+ [Btn] OK")
}

func TestFormatCompactUnknownCommandReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatCompact(map[string]any{"command": "click"}))
}

func TestFormatMinimalFindOmitsBounds(t *testing.T) {
	result := map[string]any{
		"command": "find",
		"matches": []any{
			map[string]any{"name": "Save", "type": "ButtonControl", "bounds": map[string]any{"x": 1.0, "y": 2.0}},
		},
		"count": 1,
	}
	out := FormatMinimal(result)
	assert.Equal(t, "[Btn] Save\n(1 matches)", out)
}

func TestFormatMinimalWindowsMarksForeground(t *testing.T) {
	result := map[string]any{
		"command": "windows",
		"windows": []any{
			map[string]any{"title": "Notepad", "is_foreground": true},
			map[string]any{"title": "Explorer", "is_foreground": false},
		},
	}
	out := FormatMinimal(result)
	assert.Equal(t, "Notepad *fg*\nExplorer", out)
}
