package routepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

func TestBuildSingleRoute(t *testing.T) {
	b := NewBuilder()
	d := b.Build(geo.Pixel{X: 100, Y: 200}, geo.Pixel{X: 300, Y: 120}, 0, 1)
	assert.Equal(t, "M 100 200 Q 200 70 300 120", d)

	// Negative index also selects the single curve.
	assert.Equal(t, d, b.Build(geo.Pixel{X: 100, Y: 200}, geo.Pixel{X: 300, Y: 120}, -1, 3))
}

func TestBuildKeepsEndpointsVerbatim(t *testing.T) {
	start := geo.Pixel{X: 12.3456, Y: 98.7654}
	end := geo.Pixel{X: 412.5, Y: 33.25}
	c, err := Parse(NewBuilder().Build(start, end, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, start, c.Start)
	assert.Equal(t, end, c.End)
}

func TestBundleSymmetry(t *testing.T) {
	b := NewBuilder()
	start := geo.Pixel{X: 100, Y: 100}
	end := geo.Pixel{X: 300, Y: 100}
	mid := geo.Pixel{X: 200, Y: 100}

	c0 := b.ControlPoint(start, end, 0, 3)
	c1 := b.ControlPoint(start, end, 1, 3)
	c2 := b.ControlPoint(start, end, 2, 3)

	assert.Equal(t, mid, c1)
	assert.InDelta(t, 8, c0.Sub(mid).Len(), 1e-9)
	assert.InDelta(t, 8, c2.Sub(mid).Len(), 1e-9)
	assert.InDelta(t, 0, c0.Add(c2).Scale(0.5).Sub(mid).Len(), 1e-9)
	// Perpendicular to a horizontal chord.
	assert.Equal(t, 200.0, c0.X)
	assert.Equal(t, -8.0, c0.Y-100)
	assert.Equal(t, 8.0, c2.Y-100)
}

func TestBundleOfTwoStraddlesChord(t *testing.T) {
	b := NewBuilder()
	start := geo.Pixel{X: 0, Y: 0}
	end := geo.Pixel{X: 0, Y: 100}
	c0 := b.ControlPoint(start, end, 0, 2)
	c1 := b.ControlPoint(start, end, 1, 2)
	assert.InDelta(t, 4, c0.X, 1e-9)
	assert.InDelta(t, -4, c1.X, 1e-9)
}

func TestDegenerateChordFallsBack(t *testing.T) {
	b := NewBuilder()
	p := geo.Pixel{X: 50, Y: 60}
	assert.Equal(t, "M 50 60 Q 50 10 50 60", b.Build(p, p, 1, 3))
}

func TestParseRejectsForeignPaths(t *testing.T) {
	_, err := Parse("M 0 0 L 1 1")
	assert.Error(t, err)
}
