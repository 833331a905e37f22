// Package raster draws anti-aliased strokes, discs and labels onto RGBA buffers.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/vector"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

const circleSegments = 32

// Canvas is an RGBA buffer addressed in CSS pixels. Every coordinate is
// multiplied by Scale (the device pixel ratio) before it is rasterized.
type Canvas struct {
	Img   *image.RGBA
	Scale float64

	faces map[float64]font.Face
}

// NewCanvas allocates a transparent canvas of w×h CSS pixels at scale.
func NewCanvas(w, h, scale float64) *Canvas {
	if scale <= 0 {
		scale = 1
	}
	pw := int(math.Round(w * scale))
	ph := int(math.Round(h * scale))
	if pw < 0 {
		pw = 0
	}
	if ph < 0 {
		ph = 0
	}
	return &Canvas{Img: image.NewRGBA(image.Rect(0, 0, pw, ph)), Scale: scale}
}

// Empty reports whether the canvas has no pixels.
func (c *Canvas) Empty() bool {
	return c.Img == nil || c.Img.Bounds().Empty()
}

// Fill paints the whole canvas with col.
func (c *Canvas) Fill(col color.Color) {
	r, g, b, a := col.RGBA()
	px := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	bounds := c.Img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c.Img.SetRGBA(x, y, px)
		}
	}
}

// Polyline strokes pts with round joins and caps.
func (c *Canvas) Polyline(pts []geo.Pixel, width float64, col color.Color) {
	if len(pts) == 0 || width <= 0 {
		return
	}
	h := width * c.Scale / 2
	dev := c.device(pts)
	s := newShape(c.Img.Bounds(), dev, h)
	if s == nil {
		return
	}
	for i := 0; i+1 < len(dev); i++ {
		s.segment(dev[i], dev[i+1], h)
	}
	for _, p := range dev {
		s.disc(p, h)
	}
	s.draw(c.Img, col)
}

// Segments strokes each segment of pts on its own, without joins. It is
// cheaper than Polyline for long hairlines.
func (c *Canvas) Segments(pts []geo.Pixel, width float64, col color.Color) {
	if width <= 0 {
		return
	}
	h := width * c.Scale / 2
	dev := c.device(pts)
	for i := 0; i+1 < len(dev); i++ {
		s := newShape(c.Img.Bounds(), dev[i:i+2], h)
		if s == nil {
			continue
		}
		s.segment(dev[i], dev[i+1], h)
		s.draw(c.Img, col)
	}
}

// Dashed strokes pts split into on/off runs of the given pattern (CSS px).
func (c *Canvas) Dashed(pts []geo.Pixel, pattern []float64, width float64, col color.Color) {
	for _, run := range Dash(pts, pattern) {
		c.Polyline(run, width, col)
	}
}

// Disc fills a circle of radius r.
func (c *Canvas) Disc(center geo.Pixel, r float64, col color.Color) {
	if r <= 0 {
		return
	}
	dev := c.device([]geo.Pixel{center})
	s := newShape(c.Img.Bounds(), dev, r*c.Scale)
	if s == nil {
		return
	}
	s.disc(dev[0], r*c.Scale)
	s.draw(c.Img, col)
}

// Ring strokes a circle of radius r.
func (c *Canvas) Ring(center geo.Pixel, r, width float64, col color.Color) {
	pts := make([]geo.Pixel, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, geo.Pixel{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)})
	}
	c.Polyline(pts, width, col)
}

func (c *Canvas) device(pts []geo.Pixel) []geo.Pixel {
	out := make([]geo.Pixel, len(pts))
	for i, p := range pts {
		out[i] = p.Scale(c.Scale)
	}
	return out
}

// shape accumulates polygons with a consistent winding into one rasterizer
// sized to their bounding box.
type shape struct {
	z      *vector.Rasterizer
	rect   image.Rectangle
	origin geo.Pixel
}

func newShape(clip image.Rectangle, pts []geo.Pixel, pad float64) *shape {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		if !p.Finite() {
			return nil
		}
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	r := image.Rect(
		int(math.Floor(minX-pad-1)), int(math.Floor(minY-pad-1)),
		int(math.Ceil(maxX+pad+1)), int(math.Ceil(maxY+pad+1)),
	).Intersect(clip)
	if r.Empty() {
		return nil
	}
	return &shape{
		z:      vector.NewRasterizer(r.Dx(), r.Dy()),
		rect:   r,
		origin: geo.Pixel{X: float64(r.Min.X), Y: float64(r.Min.Y)},
	}
}

func (s *shape) moveTo(p geo.Pixel) {
	q := p.Sub(s.origin)
	s.z.MoveTo(float32(q.X), float32(q.Y))
}

func (s *shape) lineTo(p geo.Pixel) {
	q := p.Sub(s.origin)
	s.z.LineTo(float32(q.X), float32(q.Y))
}

// segment adds the rectangle around a-b with half-width h.
func (s *shape) segment(a, b geo.Pixel, h float64) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return
	}
	n := geo.Pixel{X: -d.Y / l * h, Y: d.X / l * h}
	s.moveTo(a.Add(n))
	s.lineTo(b.Add(n))
	s.lineTo(b.Sub(n))
	s.lineTo(a.Sub(n))
	s.z.ClosePath()
}

// disc adds a polygonal circle wound the same way as segment.
func (s *shape) disc(c geo.Pixel, r float64) {
	for i := 0; i <= circleSegments; i++ {
		a := -2 * math.Pi * float64(i) / circleSegments
		p := geo.Pixel{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
		if i == 0 {
			s.moveTo(p)
			continue
		}
		s.lineTo(p)
	}
	s.z.ClosePath()
}

func (s *shape) draw(dst *image.RGBA, col color.Color) {
	s.z.Draw(dst, s.rect, image.NewUniform(col), image.Point{})
}

// Dash splits pts into visible runs following an on/off pattern.
// An empty pattern returns pts unchanged.
func Dash(pts []geo.Pixel, pattern []float64) [][]geo.Pixel {
	total := 0.0
	for _, v := range pattern {
		total += v
	}
	if len(pattern) == 0 || total <= 0 || len(pts) < 2 {
		return [][]geo.Pixel{pts}
	}

	var runs [][]geo.Pixel
	idx, left, on := 0, pattern[0], true
	cur := []geo.Pixel{pts[0]}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		seg := b.Sub(a).Len()
		pos := 0.0
		for seg-pos > left {
			pos += left
			p := a.Add(b.Sub(a).Scale(pos / seg))
			if on {
				cur = append(cur, p)
				runs = append(runs, cur)
				cur = nil
			} else {
				cur = []geo.Pixel{p}
			}
			on = !on
			idx = (idx + 1) % len(pattern)
			left = pattern[idx]
		}
		left -= seg - pos
		if on {
			cur = append(cur, b)
		}
	}
	if on && len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs
}

// ParseColor reads "#rgb" or "#rrggbb", returning fallback when s is not a
// hex colour.
func ParseColor(s string, fallback color.Color) color.Color {
	c, err := colorful.Hex(expandHex(s))
	if err != nil {
		return fallback
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// WithAlpha returns col with its alpha replaced, premultiplied.
func WithAlpha(col color.Color, alpha float64) color.Color {
	r, g, b, _ := col.RGBA()
	a := math.Max(0, math.Min(1, alpha))
	return color.RGBA{
		R: uint8(float64(r>>8) * a),
		G: uint8(float64(g>>8) * a),
		B: uint8(float64(b>>8) * a),
		A: uint8(255 * a),
	}
}

func expandHex(s string) string {
	if len(s) == 4 && s[0] == '#' {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}
