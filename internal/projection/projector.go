// Package projection turns geographic coordinates into overlay pixels.
package projection

import (
	"errors"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// ErrNotReady is returned while the base renderer has not finished loading.
var ErrNotReady = errors.New("projection: renderer not loaded")

// ErrInvalidCoordinates is returned for coordinates that cannot be placed.
var ErrInvalidCoordinates = errors.New("projection: invalid coordinates")

// Renderer is the part of the base map the projector needs.
type Renderer interface {
	Loaded() bool
	Project(ll orb.Point) geo.Pixel
	OnLoad(fn func()) (off func())
}

// Projector delegates to the base renderer's projection under its current
// camera. Results are never cached: every call reflects the camera at the
// moment of the call.
type Projector struct {
	r Renderer

	mu         sync.Mutex
	deferred   []func()
	registered bool
	off        func()
}

// New returns a projector over r.
func New(r Renderer) *Projector {
	return &Projector{r: r}
}

// Ready reports whether the renderer can project.
func (p *Projector) Ready() bool {
	return p.r.Loaded()
}

// Project returns the pixel for c. Before the renderer has loaded it returns
// ErrNotReady instead of a stale position.
func (p *Projector) Project(c geo.Coordinates) (geo.Pixel, error) {
	if !c.Valid() {
		return geo.Pixel{}, ErrInvalidCoordinates
	}
	if !p.r.Loaded() {
		return geo.Pixel{}, ErrNotReady
	}
	return p.r.Project(c.Point()), nil
}

// Defer runs fn once the renderer has loaded. If it already has, fn runs
// immediately on the calling goroutine. Deferred calls run in order.
func (p *Projector) Defer(fn func()) {
	if p.r.Loaded() {
		fn()
		return
	}
	p.mu.Lock()
	p.deferred = append(p.deferred, fn)
	register := !p.registered
	p.registered = true
	p.mu.Unlock()

	if register {
		// OnLoad may call flush before it returns, so p.mu must not be held.
		off := p.r.OnLoad(p.flush)
		p.mu.Lock()
		if p.registered && p.off == nil {
			p.off, off = off, nil
		}
		p.mu.Unlock()
		if off != nil {
			off()
		}
	}

	// Load may have completed between the check and the registration.
	if p.r.Loaded() {
		p.flush()
	}
}

// Pending returns the number of deferred calls.
func (p *Projector) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deferred)
}

// Close drops deferred calls and detaches from the renderer.
func (p *Projector) Close() {
	p.mu.Lock()
	off := p.off
	p.off = nil
	p.registered = false
	p.deferred = nil
	p.mu.Unlock()
	if off != nil {
		off()
	}
}

func (p *Projector) flush() {
	p.mu.Lock()
	queue := p.deferred
	p.deferred = nil
	off := p.off
	p.off = nil
	p.registered = false
	p.mu.Unlock()

	if off != nil {
		off()
	}
	for _, fn := range queue {
		fn()
	}
}
