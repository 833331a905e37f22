// Package tooltip places hover cards next to markers without leaving the
// visible area.
package tooltip

import (
	"math"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Layout constants in CSS pixels.
const (
	Spacing    = 12.0
	Padding    = 12.0
	AnchorSize = 16.0

	minAvailable = 120.0
	minWidth     = 260.0
	maxWidth     = 420.0
	minHeight    = 180.0
	maxHeight    = 360.0
)

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{Left: r.Left + d, Top: r.Top + d, Width: r.Width - 2*d, Height: r.Height - 2*d}
}

// Intersect returns the overlap of r and s, which may be empty.
func (r Rect) Intersect(s Rect) Rect {
	left := math.Max(r.Left, s.Left)
	top := math.Max(r.Top, s.Top)
	right := math.Min(r.Right(), s.Right())
	bottom := math.Min(r.Bottom(), s.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Contains reports whether s lies inside r.
func (r Rect) Contains(s Rect) bool {
	const eps = 1e-9
	return s.Left >= r.Left-eps && s.Top >= r.Top-eps &&
		s.Right() <= r.Right()+eps && s.Bottom() <= r.Bottom()+eps
}

// AnchorAt returns the hit box of a marker drawn at p.
func AnchorAt(p geo.Pixel) Rect {
	return Rect{Left: p.X - AnchorSize/2, Top: p.Y - AnchorSize/2, Width: AnchorSize, Height: AnchorSize}
}

// Size is a tooltip size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement is where a tooltip goes.
type Placement struct {
	Left     float64 `json:"left" doc:"Left edge in CSS pixels"`
	Top      float64 `json:"top" doc:"Top edge in CSS pixels"`
	Width    float64 `json:"width" doc:"Width in CSS pixels"`
	Height   float64 `json:"height" doc:"Height in CSS pixels"`
	Flipped  bool    `json:"flipped" doc:"Placed on the opposite side of the anchor on at least one axis"`
	FlippedX bool    `json:"flippedX" doc:"Placed left of the anchor"`
	FlippedY bool    `json:"flippedY" doc:"Placed above the anchor"`
}

// Rect returns the placed rectangle.
func (p Placement) Rect() Rect {
	return Rect{Left: p.Left, Top: p.Top, Width: p.Width, Height: p.Height}
}

// ContainerBounds clamps the padded container to the padded viewport. When
// they do not overlap the padded viewport is used.
func ContainerBounds(viewport, container Rect, padding float64) Rect {
	vp := viewport.Inset(padding)
	b := vp.Intersect(container.Inset(padding))
	if b.Empty() {
		return vp
	}
	return b
}

// SizeFor returns the preferred tooltip size inside bounds.
func SizeFor(bounds Rect) Size {
	availW := math.Max(minAvailable, bounds.Width)
	availH := math.Max(minAvailable, bounds.Height)
	return Size{
		Width:  math.Min(maxWidth, math.Max(minWidth, math.Floor(availW*0.92))),
		Height: math.Min(maxHeight, math.Max(minHeight, math.Floor(availH*0.6))),
	}
}

// Place puts a tooltip of the desired size below and to the right of anchor.
// Each axis that would overflow bounds flips to the other side of the anchor
// when that side fits, and the result is clamped into bounds. The size only
// shrinks when bounds are smaller than it.
func Place(anchor, bounds Rect, desired Size) Placement {
	w := math.Max(0, math.Min(desired.Width, bounds.Width))
	h := math.Max(0, math.Min(desired.Height, bounds.Height))
	p := Placement{Width: w, Height: h}

	p.Left = anchor.Right() + Spacing
	if p.Left+w > bounds.Right() {
		if alt := anchor.Left - Spacing - w; alt >= bounds.Left {
			p.Left = alt
			p.FlippedX = true
		}
	}
	p.Top = anchor.Bottom() + Spacing
	if p.Top+h > bounds.Bottom() {
		if alt := anchor.Top - Spacing - h; alt >= bounds.Top {
			p.Top = alt
			p.FlippedY = true
		}
	}

	p.Left = clamp(p.Left, bounds.Left, bounds.Right()-w)
	p.Top = clamp(p.Top, bounds.Top, bounds.Bottom()-h)
	p.Flipped = p.FlippedX || p.FlippedY
	return p
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
