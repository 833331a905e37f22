package projection

import (
	"math"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Reference frame of the static war-room projection.
const (
	BaseWidth       = 950.0
	BaseHeight      = 550.0
	CentralMeridian = 11.5
	millerMaxLat    = 85.0
)

// ViewBox is the rectangle the static projection is mapped into.
type ViewBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BaseViewBox is the reference frame at scale 1.
var BaseViewBox = ViewBox{Width: BaseWidth, Height: BaseHeight}

// Normalized returns the Miller cylindrical position of c in [0, 1]²,
// with the map split on the antimeridian of CentralMeridian.
func Normalized(c geo.Coordinates) geo.Pixel {
	lng := c.Longitude - CentralMeridian
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	lat := math.Max(-millerMaxLat, math.Min(millerMaxLat, c.Latitude))

	x := (lng + 180) / 360
	maxY := miller(millerMaxLat)
	y := (maxY - miller(lat)) / (2 * maxY)
	return geo.Pixel{X: x, Y: y}
}

// ProjectViewBox maps c into vb. The result scales exactly with the view
// box size and translates exactly with its offset.
func ProjectViewBox(c geo.Coordinates, vb ViewBox) geo.Pixel {
	n := Normalized(c)
	return geo.Pixel{
		X: vb.X + n.X*vb.Width,
		Y: vb.Y + n.Y*vb.Height,
	}
}

func miller(latDeg float64) float64 {
	phi := latDeg * math.Pi / 180
	return 1.25 * math.Log(math.Tan(math.Pi/4+0.4*phi))
}
