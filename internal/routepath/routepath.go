// Package routepath builds the SVG path commands for route curves.
package routepath

import (
	"math"
	"strings"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Defaults for Builder.
const (
	DefaultOffsetPixels = 8.0
	DefaultLift         = 50.0

	degenerateChord = 1e-6
)

// Builder turns a pair of marker pixels into a quadratic curve. Routes that
// share both endpoints fan out symmetrically around the chord.
type Builder struct {
	// OffsetPixels separates neighbouring curves of a bundle.
	OffsetPixels float64
	// Lift raises the control point of a lone curve above the higher endpoint.
	Lift float64
}

// NewBuilder returns a Builder with the default spacing.
func NewBuilder() Builder {
	return Builder{OffsetPixels: DefaultOffsetPixels, Lift: DefaultLift}
}

// ControlPoint returns the quadratic control point for the route at index
// within a bundle of size routes.
func (b Builder) ControlPoint(start, end geo.Pixel, index, size int) geo.Pixel {
	if size > 1 && index >= 0 {
		chord := end.Sub(start)
		length := chord.Len()
		if length >= degenerateChord {
			mid := start.Add(end).Scale(0.5)
			normal := geo.Pixel{X: -chord.Y / length, Y: chord.X / length}
			offset := (float64(index) - float64(size-1)/2) * b.offset()
			return mid.Add(normal.Scale(offset))
		}
	}
	return geo.Pixel{
		X: (start.X + end.X) / 2,
		Y: math.Min(start.Y, end.Y) - b.lift(),
	}
}

// Build returns "M sx sy Q cx cy ex ey" for the route at index within a
// bundle of size routes. The endpoints are used verbatim.
func (b Builder) Build(start, end geo.Pixel, index, size int) string {
	c := b.ControlPoint(start, end, index, size)
	var sb strings.Builder
	sb.Grow(64)
	sb.WriteString("M ")
	writePair(&sb, start)
	sb.WriteString(" Q ")
	writePair(&sb, c)
	sb.WriteByte(' ')
	writePair(&sb, end)
	return sb.String()
}

func (b Builder) offset() float64 {
	if b.OffsetPixels == 0 {
		return DefaultOffsetPixels
	}
	return b.OffsetPixels
}

func (b Builder) lift() float64 {
	if b.Lift == 0 {
		return DefaultLift
	}
	return b.Lift
}

func writePair(sb *strings.Builder, p geo.Pixel) {
	sb.WriteString(geo.FormatFloat(p.X))
	sb.WriteByte(' ')
	sb.WriteString(geo.FormatFloat(p.Y))
}
