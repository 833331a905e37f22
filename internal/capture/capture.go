// Package capture composites the base map and the overlay into one image.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/metrics"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/render"
)

// ErrNoBaseSnapshot is returned when the base map cannot be read.
var ErrNoBaseSnapshot = errors.New("capture: base map snapshot unavailable")

// Overlay is the part of the synchronizer a capture drives.
type Overlay interface {
	SetScreenshotMode(on bool)
	Schedule(ensureCoords bool)
	Snapshot() *overlay.Snapshot
	WaitPass(ctx context.Context, after uint64) (*overlay.Snapshot, error)
}

// Leg is a pair of locations the capture must frame.
type Leg struct {
	From geo.Coordinates `json:"from"`
	To   geo.Coordinates `json:"to"`
}

// Image is an encoded capture.
type Image struct {
	Width       int
	Height      int
	ContentType string
	Data        []byte
}

// Options tune a Compositor.
type Options struct {
	Padding     float64
	MaxZoom     float64
	IdleTimeout time.Duration
	PassTimeout time.Duration
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Padding:     80,
		MaxZoom:     10,
		IdleTimeout: 1800 * time.Millisecond,
		PassTimeout: 2 * time.Second,
		Log:         zerolog.Nop(),
	}
}

// Compositor captures the map and its overlay.
type Compositor struct {
	base    render.BaseMap
	overlay Overlay
	opts    Options
}

// New returns a Compositor.
func New(base render.BaseMap, ov Overlay, opts Options) *Compositor {
	d := DefaultOptions()
	if opts.Padding <= 0 {
		opts.Padding = d.Padding
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = d.MaxZoom
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = d.IdleTimeout
	}
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = d.PassTimeout
	}
	return &Compositor{base: base, overlay: ov, opts: opts}
}

// Capture frames legs (or every marker when legs is empty), waits for the
// map and the overlay to settle and returns a PNG of base, routes and
// markers. Only a missing base snapshot is fatal; an overlay that does not
// settle is drawn from its latest snapshot.
func (c *Compositor) Capture(ctx context.Context, legs []Leg) (img *Image, err error) {
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.opts.Metrics.ObserveCapture(result, time.Since(start))
	}()

	c.overlay.SetScreenshotMode(true)
	defer c.overlay.SetScreenshotMode(false)

	if b, ok := c.bounds(legs); ok {
		idle := make(chan struct{})
		off := c.base.Once(render.EventIdle, func(render.Event) { close(idle) })
		c.base.FitBounds(b, c.opts.Padding, c.opts.MaxZoom)
		timer := time.NewTimer(c.opts.IdleTimeout)
		select {
		case <-idle:
		case <-timer.C:
			off()
			c.opts.Log.Warn().Dur("timeout", c.opts.IdleTimeout).Msg("map did not become idle")
		case <-ctx.Done():
			timer.Stop()
			off()
			return nil, ctx.Err()
		}
		timer.Stop()
	}

	snap, err := c.settle(ctx)
	if err != nil {
		return nil, err
	}

	base, err := c.base.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBaseSnapshot, err)
	}
	if base == nil || base.Bounds().Empty() {
		return nil, ErrNoBaseSnapshot
	}

	vp := c.base.Viewport()
	var layers []*image.RGBA
	if snap == nil {
		c.skip("overlay", "no overlay snapshot")
	} else {
		for _, l := range []struct {
			name string
			draw func(render.Viewport, *overlay.Snapshot) (*image.RGBA, error)
		}{
			{"routes", c.drawRoutes},
			{"markers", c.drawMarkers},
		} {
			layer, err := l.draw(vp, snap)
			if err != nil {
				c.skip(l.name, err.Error())
				continue
			}
			layers = append(layers, layer)
		}
	}

	out := Composite(base, layers...)
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("capture: encode: %w", err)
	}
	return &Image{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}

// settle waits for a pass that reflects the current camera.
func (c *Compositor) settle(ctx context.Context) (*overlay.Snapshot, error) {
	var after uint64
	if cur := c.overlay.Snapshot(); cur != nil {
		after = cur.Generation
	}
	c.overlay.Schedule(false)

	wctx, cancel := context.WithTimeout(ctx, c.opts.PassTimeout)
	defer cancel()
	cam := c.base.Camera()
	for {
		snap, err := c.overlay.WaitPass(wctx, after)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.opts.Log.Warn().Err(err).Msg("overlay did not settle, using latest snapshot")
			return c.overlay.Snapshot(), nil
		}
		if snap.Camera == cam {
			return snap, nil
		}
		after = snap.Generation
	}
}

func (c *Compositor) bounds(legs []Leg) (orb.Bound, bool) {
	var pts []geo.Coordinates
	for _, l := range legs {
		pts = append(pts, l.From, l.To)
	}
	if len(pts) == 0 {
		if snap := c.overlay.Snapshot(); snap != nil {
			for _, m := range snap.Markers {
				pts = append(pts, m.Coordinates)
			}
		}
	}
	return geo.Bound(pts...)
}

func (c *Compositor) skip(layer, reason string) {
	c.opts.Metrics.IncLayerSkipped(layer)
	c.opts.Log.Warn().Str("layer", layer).Str("reason", reason).Msg("capture layer skipped")
}

// Composite draws layers over a copy of base. Layers of a different size
// are scaled to the base.
func Composite(base *image.RGBA, layers ...*image.RGBA) *image.RGBA {
	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)
	for _, l := range layers {
		if l == nil || l.Bounds().Empty() {
			continue
		}
		if l.Bounds().Size() == out.Bounds().Size() {
			draw.Draw(out, out.Bounds(), l, l.Bounds().Min, draw.Over)
			continue
		}
		draw.BiLinear.Scale(out, out.Bounds(), l, l.Bounds(), draw.Over, nil)
	}
	return out
}
