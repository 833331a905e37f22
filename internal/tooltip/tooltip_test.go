package tooltip

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

var screen = Rect{Width: 1280, Height: 720}

func TestPlaceNaturalBelowRight(t *testing.T) {
	anchor := AnchorAt(geo.Pixel{X: 100, Y: 100})
	p := Place(anchor, screen, Size{Width: 300, Height: 200})

	assert.Equal(t, anchor.Right()+Spacing, p.Left)
	assert.Equal(t, anchor.Bottom()+Spacing, p.Top)
	assert.False(t, p.Flipped)
	assert.True(t, screen.Contains(p.Rect()))
}

func TestPlaceFlipsHorizontally(t *testing.T) {
	anchor := AnchorAt(geo.Pixel{X: 1200, Y: 100})
	p := Place(anchor, screen, Size{Width: 300, Height: 200})

	assert.True(t, p.FlippedX)
	assert.False(t, p.FlippedY)
	assert.Equal(t, anchor.Left-Spacing-300, p.Left)
	assert.True(t, screen.Contains(p.Rect()))
}

func TestPlaceFlipsVertically(t *testing.T) {
	anchor := AnchorAt(geo.Pixel{X: 200, Y: 650})
	p := Place(anchor, screen, Size{Width: 300, Height: 200})

	assert.True(t, p.FlippedY)
	assert.True(t, p.Flipped)
	assert.Equal(t, anchor.Top-Spacing-200, p.Top)
	assert.True(t, screen.Contains(p.Rect()))
}

func TestPlaceClampsWhenNeitherSideFits(t *testing.T) {
	bounds := Rect{Left: 0, Top: 0, Width: 400, Height: 300}
	anchor := AnchorAt(geo.Pixel{X: 200, Y: 150})
	p := Place(anchor, bounds, Size{Width: 300, Height: 200})

	assert.Equal(t, 300.0, p.Width)
	assert.Equal(t, 200.0, p.Height)
	assert.True(t, bounds.Contains(p.Rect()))
}

func TestPlaceShrinksOnlyWhenBoundsAreSmaller(t *testing.T) {
	bounds := Rect{Left: 10, Top: 10, Width: 200, Height: 120}
	p := Place(AnchorAt(geo.Pixel{X: 50, Y: 50}), bounds, Size{Width: 260, Height: 180})

	assert.Equal(t, 200.0, p.Width)
	assert.Equal(t, 120.0, p.Height)
	assert.Equal(t, Rect{Left: 10, Top: 10, Width: 200, Height: 120}, p.Rect())
}

func TestContainerBounds(t *testing.T) {
	viewport := Rect{Width: 1000, Height: 800}
	container := Rect{Left: -50, Top: 100, Width: 600, Height: 400}
	assert.Equal(t, Rect{Left: 12, Top: 112, Width: 526, Height: 376}, ContainerBounds(viewport, container, Padding))

	offscreen := Rect{Left: 2000, Top: 2000, Width: 100, Height: 100}
	assert.Equal(t, viewport.Inset(Padding), ContainerBounds(viewport, offscreen, Padding))
}

func TestSizeFor(t *testing.T) {
	assert.Equal(t, Size{Width: 420, Height: 360}, SizeFor(Rect{Width: 1600, Height: 900}))
	assert.Equal(t, Size{Width: 276, Height: 180}, SizeFor(Rect{Width: 300, Height: 250}))
	assert.Equal(t, Size{Width: 260, Height: 180}, SizeFor(Rect{Width: 50, Height: 50}))
}
