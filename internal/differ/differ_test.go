package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusdaemon/nexus/internal/providers"
)

func TestComputeDiffAddedRemovedChanged(t *testing.T) {
	old := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Enabled: true, Bounds: providers.Bounds{X: 0, Y: 0}},
		{Name: "Cancel", Role: "ButtonControl", Bounds: providers.Bounds{X: 100, Y: 0}},
	}
	newEls := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Enabled: false, Bounds: providers.Bounds{X: 0, Y: 0}},
		{Name: "Retry", Role: "ButtonControl", Bounds: providers.Bounds{X: 200, Y: 0}},
	}
	diff := ComputeDiff("", old, "", newEls)
	assert.Len(t, diff.Added, 1)
	assert.Equal(t, "Retry", diff.Added[0].Name)
	assert.Len(t, diff.Removed, 1)
	assert.Equal(t, "Cancel", diff.Removed[0].Name)
	assert.Len(t, diff.Changed, 1)
	assert.Contains(t, diff.Changed[0].Fields, "is_enabled")
}

func TestComputeDiffDetectsFocusChangeEvent(t *testing.T) {
	diff := ComputeDiff("Save", nil, "Cancel", nil)
	assert.Contains(t, diff.Events, "Focus: Save -> Cancel")
}

func TestComputeDiffDetectsDialogAppeared(t *testing.T) {
	newEls := []providers.Element{{Name: "Confirm Exit", Role: "WindowControl"}}
	diff := ComputeDiff("", nil, "", newEls)
	assert.Contains(t, diff.Events, "Dialog appeared: Confirm Exit")
}

func TestComputeDiffSuppressesFocusLostEvent(t *testing.T) {
	diff := ComputeDiff("Save", nil, "", nil)
	for _, evt := range diff.Events {
		assert.NotContains(t, evt, "Focus:")
	}
}

func TestComputeDiffMovedIsPerAxis(t *testing.T) {
	old := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
	}
	newEls := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 15, Y: 15, Width: 10, Height: 10}},
	}
	diff := ComputeDiff("", old, "", newEls)
	require := assert.New(t)
	require.Empty(diff.Changed, "a (15,15) move is within the 20px per-axis threshold on both axes")
	require.Equal(1, diff.UnchangedCount)
}

func TestComputeDiffMovedTripsOnSingleAxis(t *testing.T) {
	old := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 0, Y: 0, Width: 10, Height: 10}},
	}
	newEls := []providers.Element{
		{Name: "Save", Role: "ButtonControl", Bounds: providers.Bounds{X: 25, Y: 0, Width: 10, Height: 10}},
	}
	diff := ComputeDiff("", old, "", newEls)
	assert.True(t, diff.Changed[0].Moved)
}
