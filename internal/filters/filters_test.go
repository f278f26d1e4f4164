package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusdaemon/nexus/internal/providers"
)

func TestParseFocusPreset(t *testing.T) {
	spec := ParseFocus("buttons")
	assert.True(t, spec.UIATypeIDs[50000])
	assert.Empty(t, spec.NamePattern)
}

func TestParseFocusFreeText(t *testing.T) {
	spec := ParseFocus("Save As")
	assert.Equal(t, "Save As", spec.NamePattern)
	assert.Nil(t, spec.UIATypeIDs)
}

func TestParseRegionPreset(t *testing.T) {
	r := ParseRegion("top", 1920, 1080)
	assert.True(t, r.Set)
	assert.Equal(t, 0, r.Y)
	assert.Equal(t, 1080/5, r.H)
}

func TestParseRegionExplicit(t *testing.T) {
	r := ParseRegion("10,20,300,400", 1920, 1080)
	assert.Equal(t, RegionSpec{X: 10, Y: 20, W: 300, H: 400, Set: true}, r)
}

func TestMatchNameFallbackChain(t *testing.T) {
	assert.True(t, MatchName("Save Document", "Save*"))
	assert.True(t, MatchName("Save Document", "^Save"))
	assert.True(t, MatchName("Save Document", "document"))
	assert.False(t, MatchName("Save Document", "Cancel"))
}

func TestFilterElementsByFocusAndRegion(t *testing.T) {
	elements := []providers.Element{
		{Name: "OK", ControlType: 50000, Bounds: providers.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
		{Name: "Notes", ControlType: 50002, Bounds: providers.Bounds{X: 1000, Y: 900, Width: 10, Height: 10}},
	}
	out := FilterElements(elements, "buttons", "", "", 1920, 1080)
	assert.Len(t, out, 1)
	assert.Equal(t, "OK", out[0].Name)
}
