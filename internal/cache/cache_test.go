package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCachePutGetHit(t *testing.T) {
	c := NewMemoryCache()
	kwargs := map[string]any{"max_depth": 3}
	c.Put("describe", kwargs, map[string]any{"ok": true})

	hit, ok := c.Get("describe", kwargs, time.Second)
	require.True(t, ok)
	assert.Equal(t, "describe", hit.Command)
	assert.False(t, hit.Changed)
}

func TestMemoryCacheExpiresAfterTTL(t *testing.T) {
	c := NewMemoryCache()
	kwargs := map[string]any{}
	c.Put("windows", kwargs, map[string]any{"ok": true})

	_, ok := c.Get("windows", kwargs, -time.Second)
	assert.False(t, ok)
}

func TestMemoryCacheClearByPrefix(t *testing.T) {
	c := NewMemoryCache()
	c.Put("describe", map[string]any{"a": 1}, map[string]any{})
	c.Put("windows", map[string]any{}, map[string]any{})

	c.Clear("describe")

	_, ok := c.Get("describe", map[string]any{"a": 1}, time.Hour)
	assert.False(t, ok)
	_, ok = c.Get("windows", map[string]any{}, time.Hour)
	assert.True(t, ok)
}

func TestFileCachePutGetAndPrefixClear(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache(dir)

	require.NoError(t, fc.Put("describe", map[string]any{"x": 1}, map[string]any{"ok": true}))
	require.NoError(t, fc.Put("windows", map[string]any{}, map[string]any{"ok": true}))

	_, ok := fc.Get("describe", map[string]any{"x": 1}, time.Hour)
	assert.True(t, ok)

	require.NoError(t, fc.Clear("describe"))

	_, ok = fc.Get("describe", map[string]any{"x": 1}, time.Hour)
	assert.False(t, ok)
	_, ok = fc.Get("windows", map[string]any{}, time.Hour)
	assert.True(t, ok)
}

func TestContentHashDescribeSignature(t *testing.T) {
	h1 := ContentHash("describe", map[string]any{
		"window":   map[string]any{"title": "Notepad"},
		"focused":  map[string]any{"name": "Save"},
		"elements": []any{1, 2, 3},
	})
	h2 := ContentHash("describe", map[string]any{
		"window":   map[string]any{"title": "Notepad"},
		"focused":  map[string]any{"name": "Save"},
		"elements": []any{1, 2},
	})
	assert.NotEqual(t, h1, h2)
}
