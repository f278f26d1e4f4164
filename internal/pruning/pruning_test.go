package pruning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusdaemon/nexus/internal/cache"
)

func TestNeverPruneCommandsPassThrough(t *testing.T) {
	result := map[string]any{"x": 1}
	out := ApplyPolicy(nil, "click", result, nil)
	assert.Equal(t, result, out)
}

func TestApplyPolicyAddsPreferredFormatHint(t *testing.T) {
	out := ApplyPolicy(nil, "web-describe", map[string]any{"url": "https://a"}, nil)
	assert.Equal(t, "compact", out["_suggested_format"])
}

func TestApplyPolicyAutoDiffOnSecondCall(t *testing.T) {
	c := cache.NewMemoryCache()
	kwargs := map[string]any{}

	first := map[string]any{
		"focused":  map[string]any{"name": "Save"},
		"elements": []any{map[string]any{"name": "Save", "type": "ButtonControl", "is_enabled": true}},
	}
	out1 := ApplyPolicy(c, "describe", first, kwargs)
	assert.NotEqual(t, "diff", out1["mode"])

	second := map[string]any{
		"focused":  map[string]any{"name": "Cancel"},
		"elements": []any{map[string]any{"name": "Cancel", "type": "ButtonControl", "is_enabled": true}},
	}
	out2 := ApplyPolicy(c, "describe", second, kwargs)
	require.Equal(t, "diff", out2["mode"])
	assert.Equal(t, "describe", out2["command"])
}

func TestApplyPolicyAutoSummarizeOnOverflow(t *testing.T) {
	elements := make([]any, 0, 90)
	for i := 0; i < 90; i++ {
		elements = append(elements, map[string]any{"name": "e", "type": "TextControl"})
	}
	out := ApplyPolicy(nil, "describe", map[string]any{
		"window":   map[string]any{"title": "Notepad"},
		"elements": elements,
	}, nil)
	assert.Equal(t, "summary", out["mode"])
	assert.Equal(t, true, out["auto_pruned"])
}

func TestSoftTrimTextKeepsHeadAndTail(t *testing.T) {
	lines := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		lines = append(lines, "line")
	}
	text := ""
	for i, l := range lines {
		if i > 0 {
			text += "\n"
		}
		text += l
	}
	trimmed := SoftTrimText(text, 10, 5, 5)
	assert.Contains(t, trimmed, "lines omitted")
}
