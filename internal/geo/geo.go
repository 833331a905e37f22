// Package geo holds the coordinate and pixel primitives shared by the overlay engine.
package geo

import (
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" doc:"Latitude in degrees" example:"43.6532"`
	Longitude float64 `json:"longitude" yaml:"longitude" doc:"Longitude in degrees" example:"-79.3832"`
}

// Valid reports whether c can be placed on the map. Both components must be
// finite and the pair must not be the (0, 0) placeholder.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return !(c.Latitude == 0 && c.Longitude == 0)
}

// Point returns c as an orb point in [lng, lat] order.
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// FromPoint converts an orb point in [lng, lat] order.
func FromPoint(p orb.Point) Coordinates {
	return Coordinates{Latitude: p.Lat(), Longitude: p.Lon()}
}

// ValidPtr is Valid for optional coordinates.
func ValidPtr(c *Coordinates) bool {
	return c != nil && c.Valid()
}

// Bound returns the bounding box of the valid coordinates in cs.
// ok is false when none are valid.
func Bound(cs ...Coordinates) (b orb.Bound, ok bool) {
	for _, c := range cs {
		if !c.Valid() {
			continue
		}
		if !ok {
			b = c.Point().Bound()
			ok = true
			continue
		}
		b = b.Extend(c.Point())
	}
	return b, ok
}

// Pixel is a screen position in CSS pixels relative to the map container.
type Pixel struct {
	X float64 `json:"x" doc:"Horizontal pixel offset"`
	Y float64 `json:"y" doc:"Vertical pixel offset"`
}

// Add returns p translated by q.
func (p Pixel) Add(q Pixel) Pixel { return Pixel{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Pixel) Sub(q Pixel) Pixel { return Pixel{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p multiplied by k.
func (p Pixel) Scale(k float64) Pixel { return Pixel{X: p.X * k, Y: p.Y * k} }

// Len returns the distance of p from the origin.
func (p Pixel) Len() float64 { return math.Hypot(p.X, p.Y) }

// Finite reports whether both components are finite numbers.
func (p Pixel) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Round4 rounds v to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// FormatFloat renders v with at most four decimals and no trailing zeros.
func FormatFloat(v float64) string {
	r := Round4(v)
	if r == 0 {
		r = 0 // normalise -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
