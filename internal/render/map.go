package render

import (
	"image"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/projection"
)

// TileSize is the width in pixels of the world at zoom 0 under Mercator.
const TileSize = 512.0

// Projection selects the map projection of a Map.
type Projection string

const (
	Mercator Projection = "mercator"
	Miller   Projection = "miller"
)

// Zoom limits applied to every camera change.
const (
	DefaultMinZoom = 0.5
	DefaultMaxZoom = 14.0
)

// Map is a software base map. Camera transitions complete immediately and
// emit move, zoom and idle in that order.
type Map struct {
	mu       sync.RWMutex
	vp       Viewport
	cam      Camera
	loaded   bool
	theme    Theme
	proj     Projection
	minZoom  float64
	maxZoom  float64
	nextID   uint64
	handlers map[EventType][]handler

	log zerolog.Logger
}

type handler struct {
	id   uint64
	fn   func(Event)
	once bool
}

// Option configures a Map.
type Option func(*Map)

// WithProjection selects the projection.
func WithProjection(p Projection) Option {
	return func(m *Map) { m.proj = p }
}

// WithZoomRange overrides the zoom limits.
func WithZoomRange(min, max float64) Option {
	return func(m *Map) {
		m.minZoom = min
		m.maxZoom = max
	}
}

// WithCamera sets the initial camera.
func WithCamera(c Camera) Option {
	return func(m *Map) { m.cam = c }
}

// WithTheme sets the initial theme.
func WithTheme(t Theme) Option {
	return func(m *Map) { m.theme = t }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Map) { m.log = l }
}

// NewMap creates an unloaded map for the viewport.
func NewMap(vp Viewport, opts ...Option) *Map {
	m := &Map{
		vp:       vp,
		cam:      DefaultCamera,
		theme:    ThemeLight,
		proj:     Mercator,
		minZoom:  DefaultMinZoom,
		maxZoom:  DefaultMaxZoom,
		handlers: make(map[EventType][]handler),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cam.Zoom = m.clampZoom(m.cam.Zoom)
	return m
}

// Load finishes initialisation and emits load followed by idle.
func (m *Map) Load() error {
	m.mu.Lock()
	if m.vp.Empty() {
		m.mu.Unlock()
		return ErrZeroSize
	}
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	m.loaded = true
	cam := m.cam
	m.mu.Unlock()

	m.log.Debug().Float64("width", m.vp.Width).Float64("height", m.vp.Height).Msg("map loaded")
	m.emit(Event{Type: EventLoad, Camera: cam})
	m.emit(Event{Type: EventIdle, Camera: cam})
	return nil
}

// Loaded implements BaseMap.
func (m *Map) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Camera implements BaseMap.
func (m *Map) Camera() Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cam
}

// Viewport implements BaseMap.
func (m *Map) Viewport() Viewport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vp
}

// Theme returns the current theme.
func (m *Map) Theme() Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.theme
}

// Projection returns the projection in use.
func (m *Map) Projection() Projection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.proj == Miller {
		return Miller
	}
	return Mercator
}

// SetTheme switches the style and emits idle once redrawn.
func (m *Map) SetTheme(t Theme) {
	m.mu.Lock()
	changed := m.theme != t
	m.theme = t
	loaded := m.loaded
	cam := m.cam
	m.mu.Unlock()
	if changed && loaded {
		m.emit(Event{Type: EventIdle, Camera: cam})
	}
}

// Resize changes the container size.
func (m *Map) Resize(vp Viewport) {
	m.mu.Lock()
	m.vp = vp
	loaded := m.loaded
	cam := m.cam
	m.mu.Unlock()
	if loaded {
		m.emit(Event{Type: EventMove, Camera: cam})
		m.emit(Event{Type: EventIdle, Camera: cam})
	}
}

// ReportError emits an error event, for example after a lost context.
func (m *Map) ReportError(err error) {
	m.emit(Event{Type: EventError, Camera: m.Camera(), Err: err})
}

// Project implements BaseMap.
func (m *Map) Project(ll orb.Point) geo.Pixel {
	m.mu.RLock()
	vp, cam, proj := m.vp, m.cam, m.proj
	m.mu.RUnlock()

	if proj == Miller {
		return projectMiller(ll, cam, vp)
	}
	return projectMercator(ll, cam, vp)
}

func projectMercator(ll orb.Point, cam Camera, vp Viewport) geo.Pixel {
	scale := TileSize * math.Exp2(cam.Zoom)
	p := maptile.Fraction(ll, 0)
	c := maptile.Fraction(cam.Center, 0)

	dx := p[0] - c[0]
	// Nearest world copy.
	if dx > 0.5 {
		dx--
	} else if dx < -0.5 {
		dx++
	}
	d := geo.Pixel{X: dx * scale, Y: (p[1] - c[1]) * scale}
	if cam.Bearing != 0 {
		th := -cam.Bearing * math.Pi / 180
		d = geo.Pixel{
			X: d.X*math.Cos(th) - d.Y*math.Sin(th),
			Y: d.X*math.Sin(th) + d.Y*math.Cos(th),
		}
	}
	return geo.Pixel{
		X: vp.OffsetX + vp.Width/2 + d.X,
		Y: vp.OffsetY + vp.Height/2 + d.Y,
	}
}

// millerViewBox places the static projection so that the camera center sits
// in the middle of the viewport. The frame is linear in the viewport size.
func millerViewBox(cam Camera, vp Viewport) projection.ViewBox {
	k := math.Exp2(cam.Zoom)
	w := vp.Width * k
	h := vp.Width * k * projection.BaseHeight / projection.BaseWidth
	c := projection.Normalized(geo.FromPoint(cam.Center))
	return projection.ViewBox{
		X:      vp.OffsetX + vp.Width/2 - c.X*w,
		Y:      vp.OffsetY + vp.Height/2 - c.Y*h,
		Width:  w,
		Height: h,
	}
}

func projectMiller(ll orb.Point, cam Camera, vp Viewport) geo.Pixel {
	return projection.ProjectViewBox(geo.FromPoint(ll), millerViewBox(cam, vp))
}

// FlyTo implements BaseMap.
func (m *Map) FlyTo(center orb.Point, zoom float64) {
	m.update(func(c *Camera) {
		c.Center = center
		c.Zoom = zoom
	})
}

// EaseTo implements BaseMap.
func (m *Map) EaseTo(cam Camera) {
	m.update(func(c *Camera) { *c = cam })
}

// ZoomTo implements BaseMap.
func (m *Map) ZoomTo(zoom float64) {
	m.update(func(c *Camera) { c.Zoom = zoom })
}

// FitBounds implements BaseMap. The camera is centred on b at the largest
// zoom, capped by maxZoom, that keeps b inside the padded viewport.
func (m *Map) FitBounds(b orb.Bound, padding, maxZoom float64) {
	m.mu.RLock()
	vp, proj := m.vp, m.proj
	m.mu.RUnlock()

	availW := math.Max(1, vp.Width-2*padding)
	availH := math.Max(1, vp.Height-2*padding)

	var spanX, spanY, worldW, worldH float64
	var center orb.Point
	if proj == Miller {
		lo := projection.Normalized(geo.FromPoint(b.Min))
		hi := projection.Normalized(geo.FromPoint(b.Max))
		spanX, spanY = math.Abs(hi.X-lo.X), math.Abs(hi.Y-lo.Y)
		worldW = vp.Width
		worldH = vp.Width * projection.BaseHeight / projection.BaseWidth
		center = b.Center()
	} else {
		lo := maptile.Fraction(b.Min, 0)
		hi := maptile.Fraction(b.Max, 0)
		spanX, spanY = math.Abs(hi[0]-lo[0]), math.Abs(hi[1]-lo[1])
		worldW, worldH = TileSize, TileSize
		center = unfraction(orb.Point{(lo[0] + hi[0]) / 2, (lo[1] + hi[1]) / 2})
	}

	zoom := maxZoom
	if spanX > 0 {
		zoom = math.Min(zoom, math.Log2(availW/(spanX*worldW)))
	}
	if spanY > 0 {
		zoom = math.Min(zoom, math.Log2(availH/(spanY*worldH)))
	}
	m.update(func(c *Camera) {
		c.Center = center
		c.Zoom = zoom
	})
}

// unfraction inverts maptile.Fraction at zoom 0.
func unfraction(f orb.Point) orb.Point {
	lng := f[0]*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*f[1]))) * 180 / math.Pi
	return orb.Point{lng, lat}
}

func (m *Map) update(fn func(*Camera)) {
	m.mu.Lock()
	prev := m.cam
	next := prev
	fn(&next)
	next.Zoom = m.clampZoom(next.Zoom)
	m.cam = next
	loaded := m.loaded
	m.mu.Unlock()

	if !loaded {
		return
	}
	m.emit(Event{Type: EventMove, Camera: next})
	if next.Zoom != prev.Zoom {
		m.emit(Event{Type: EventZoom, Camera: next})
	}
	m.emit(Event{Type: EventIdle, Camera: next})
}

func (m *Map) clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return m.minZoom
	}
	return math.Max(m.minZoom, math.Min(m.maxZoom, z))
}

// On implements BaseMap.
func (m *Map) On(t EventType, fn func(Event)) func() {
	return m.register(t, fn, false)
}

// Once implements BaseMap.
func (m *Map) Once(t EventType, fn func(Event)) func() {
	return m.register(t, fn, true)
}

// OnLoad implements BaseMap. fn runs immediately when the map is loaded.
func (m *Map) OnLoad(fn func()) func() {
	m.mu.Lock()
	if m.loaded {
		m.mu.Unlock()
		fn()
		return func() {}
	}
	off := m.registerLocked(EventLoad, func(Event) { fn() }, true)
	m.mu.Unlock()
	return off
}

func (m *Map) register(t EventType, fn func(Event), once bool) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerLocked(t, fn, once)
}

func (m *Map) registerLocked(t EventType, fn func(Event), once bool) func() {
	m.nextID++
	id := m.nextID
	m.handlers[t] = append(m.handlers[t], handler{id: id, fn: fn, once: once})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		hs := m.handlers[t]
		for i, h := range hs {
			if h.id == id {
				m.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

func (m *Map) emit(ev Event) {
	m.mu.Lock()
	hs := m.handlers[ev.Type]
	keep := hs[:0:0]
	for _, h := range hs {
		if !h.once {
			keep = append(keep, h)
		}
	}
	m.handlers[ev.Type] = keep
	m.mu.Unlock()

	for _, h := range hs {
		h.fn(ev)
	}
}

// Snapshot implements BaseMap.
func (m *Map) Snapshot() (*image.RGBA, error) {
	m.mu.RLock()
	loaded, vp, theme := m.loaded, m.vp, m.theme
	m.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}
	if vp.Empty() {
		return nil, ErrZeroSize
	}
	return drawBase(m, vp, theme), nil
}
