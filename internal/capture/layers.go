package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/raster"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/routepath"
)

// errEmptyLayer marks a layer with nothing to draw on.
var errEmptyLayer = errors.New("empty layer")

const (
	curveSteps     = 48
	markerRadius   = 14.0
	labelSize      = 12.0
	highlightScale = 1.6
)

var (
	fallbackStroke = color.RGBA{R: 0x0e, G: 0xa5, B: 0xe9, A: 0xff}
	markerFill     = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	markerBorder   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	labelColor     = color.RGBA{R: 0xf8, G: 0xfa, B: 0xfc, A: 0xff}
	selectColor    = color.RGBA{R: 0xfa, G: 0xcc, B: 0x15, A: 0xff}
)

func newLayer(vp render.Viewport) (*raster.Canvas, error) {
	if vp.Empty() {
		return nil, errEmptyLayer
	}
	c := raster.NewCanvas(vp.Width, vp.Height, vp.Ratio())
	if c.Empty() {
		return nil, errEmptyLayer
	}
	return c, nil
}

func (c *Compositor) drawRoutes(vp render.Viewport, snap *overlay.Snapshot) (*image.RGBA, error) {
	canvas, err := newLayer(vp)
	if err != nil {
		return nil, err
	}
	for _, r := range snap.Routes {
		curve, err := routepath.Parse(r.Path)
		if err != nil {
			c.opts.Log.Debug().Err(err).Str("route", r.ID).Msg("route skipped")
			continue
		}
		pts := curve.Flatten(curveSteps)
		if !finite(pts) {
			continue
		}
		width := r.StrokeWidth
		if r.Highlighted {
			width *= highlightScale
		}
		col := raster.ParseColor(r.StrokeColor, fallbackStroke)
		if !r.Highlighted && snapHasHighlight(snap) {
			col = raster.WithAlpha(col, 0.35)
		}
		if pattern := dashPattern(r.DashArray); len(pattern) > 0 {
			canvas.Dashed(pts, pattern, width, col)
			continue
		}
		canvas.Polyline(pts, width, col)
	}
	return canvas.Img, nil
}

func (c *Compositor) drawMarkers(vp render.Viewport, snap *overlay.Snapshot) (*image.RGBA, error) {
	canvas, err := newLayer(vp)
	if err != nil {
		return nil, err
	}
	for _, m := range snap.Markers {
		if !m.Pixel.Finite() {
			continue
		}
		r := markerRadius * m.Scale / 0.56
		if r <= 0 {
			r = markerRadius
		}
		status := raster.ParseColor(m.StatusColor, fallbackStroke)
		canvas.Disc(m.Pixel, r*1.4, raster.WithAlpha(status, 0.3))
		canvas.Disc(m.Pixel, r, markerFill)
		canvas.Ring(m.Pixel, r, 1.5, status)
		if m.IsSelected || m.IsPinned {
			canvas.Ring(m.Pixel, r+4, 2, selectColor)
		}
		if err := canvas.Text(m.Initials, m.Pixel, labelSize*0.9, markerBorder); err != nil {
			return nil, fmt.Errorf("marker %s: %w", m.ID, err)
		}
		if m.ShowPinLabel {
			label := m.ShortName
			if m.LOD.FullDetail {
				label = m.DisplayName
			}
			at := geo.Pixel{X: m.Pixel.X, Y: m.Pixel.Y + r + labelSize}
			if err := canvas.Text(label, at, labelSize, labelColor); err != nil {
				return nil, fmt.Errorf("marker %s: %w", m.ID, err)
			}
		}
	}
	return canvas.Img, nil
}

func snapHasHighlight(snap *overlay.Snapshot) bool {
	for _, r := range snap.Routes {
		if r.Highlighted {
			return true
		}
	}
	return false
}

// dashPattern parses an SVG dash array such as "6 4" or "6,4".
func dashPattern(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	var out []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v < 0 {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func finite(pts []geo.Pixel) bool {
	if len(pts) < 2 {
		return false
	}
	for _, p := range pts {
		if !p.Finite() {
			return false
		}
	}
	return true
}
