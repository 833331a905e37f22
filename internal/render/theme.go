package render

import (
	"image"
	"image/color"
	"math"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/raster"
)

// Theme is the base map style.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme maps anything but "dark" to ThemeLight.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

type palette struct {
	background color.Color
	graticule  color.Color
}

var palettes = map[Theme]palette{
	ThemeLight: {
		background: color.RGBA{R: 0xee, G: 0xf2, B: 0xf6, A: 0xff},
		graticule:  color.RGBA{R: 0xc9, G: 0xd3, B: 0xde, A: 0xff},
	},
	ThemeDark: {
		background: color.RGBA{R: 0x0b, G: 0x12, B: 0x20, A: 0xff},
		graticule:  color.RGBA{R: 0x1f, G: 0x2a, B: 0x3a, A: 0xff},
	},
}

const graticuleStep = 15.0

// drawBase paints the background and a graticule into a fresh buffer.
func drawBase(m *Map, vp Viewport, theme Theme) *image.RGBA {
	pal, ok := palettes[theme]
	if !ok {
		pal = palettes[ThemeLight]
	}
	c := raster.NewCanvas(vp.Width, vp.Height, vp.Ratio())
	c.Fill(pal.background)

	for lng := -180.0; lng <= 180; lng += graticuleStep {
		var line []orb.Point
		for lat := -80.0; lat <= 80; lat += 5 {
			line = append(line, orb.Point{lng, lat})
		}
		strokeRuns(c, m, vp, line, pal.graticule)
	}
	for lat := -75.0; lat <= 75; lat += graticuleStep {
		var line []orb.Point
		for lng := -180.0; lng <= 180; lng += 5 {
			line = append(line, orb.Point{lng, lat})
		}
		strokeRuns(c, m, vp, line, pal.graticule)
	}
	return c.Img
}

// strokeRuns projects line and strokes it, breaking where the projection
// wraps around the antimeridian.
func strokeRuns(c *raster.Canvas, m *Map, vp Viewport, line []orb.Point, col color.Color) {
	var run []geo.Pixel
	for _, ll := range line {
		p := m.Project(ll)
		if n := len(run); n > 0 && math.Abs(p.X-run[n-1].X) > vp.Width {
			c.Segments(run, 1, col)
			run = run[:0]
		}
		run = append(run, p)
	}
	c.Segments(run, 1, col)
}
