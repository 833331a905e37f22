// Package overlay keeps entity markers and route curves aligned with a
// moving base map.
//
// Every trigger (camera events, scene changes, logo failures) funnels into
// Schedule. At most one frame is pending at a time and passes never overlap,
// so a pass always reads the latest scene and camera when it starts. Each
// pass publishes an immutable Snapshot.
package overlay

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-warroom/internal/assets"
	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/geocode"
	"github.com/joeblew999/plat-warroom/internal/metrics"
	"github.com/joeblew999/plat-warroom/internal/projection"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
)

// Source provides the scene and accepts interaction events.
type Source interface {
	Scene() service.Scene
	Select(sel *service.Selection)
	Hover(sel *service.Selection)
	Pin(nodeID string)
}

// Geocoder resolves a place label to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, label string) (geo.Coordinates, error)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(s *Synchronizer) { s.cfg = c.withDefaults() }
}

// WithGeocoder enables coordinate resolution for nodes without coordinates.
func WithGeocoder(g Geocoder) Option {
	return func(s *Synchronizer) { s.geocoder = g }
}

// WithFrames replaces the frame scheduler.
func WithFrames(f FrameScheduler) Option {
	return func(s *Synchronizer) { s.frames = f }
}

// WithBus subscribes to scene change events and announces finished passes.
func WithBus(b *service.EventBus) Option {
	return func(s *Synchronizer) { s.bus = b }
}

// WithLogoFailures shares a logo failure cache.
func WithLogoFailures(l *assets.LogoFailures) Option {
	return func(s *Synchronizer) { s.logos = l }
}

// WithMetrics records pass metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

// WithFailureHandler is called with a *Failure whenever a pass or camera
// operation does not complete.
func WithFailureHandler(fn func(error)) Option {
	return func(s *Synchronizer) { s.onFailure = fn }
}

type zoomRequest struct {
	id   string
	zoom float64
}

// Synchronizer recomputes the overlay whenever the camera or scene changes.
type Synchronizer struct {
	base      render.BaseMap
	source    Source
	projector *projection.Projector
	cfg       Config
	geocoder  Geocoder
	frames    FrameScheduler
	bus       *service.EventBus
	logos     *assets.LogoFailures
	metrics   *metrics.Metrics
	log       zerolog.Logger
	onFailure func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	pending       bool
	ensureCoords  bool
	cancelFrame   func()
	closed        bool
	screenshot    bool
	lastSelection string
	debounce      *time.Timer
	pendingZoom   *zoomRequest
	previous      *render.Camera
	offs          []func()
	busCh         chan service.Event
	waiters       []chan *Snapshot

	passMu sync.Mutex

	resolvedMu sync.RWMutex
	resolved   map[string]geo.Coordinates
	resolving  map[string]struct{}
	lookups    chan struct{}

	generation atomic.Uint64
	snapshot   atomic.Pointer[Snapshot]
	wg         sync.WaitGroup
}

// New returns a Synchronizer over base and source. Call Start to attach it.
func New(base render.BaseMap, source Source, opts ...Option) *Synchronizer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		base:      base,
		source:    source,
		projector: projection.New(base),
		cfg:       DefaultConfig(),
		frames:    TimerFrames{},
		logos:     assets.NewLogoFailures(),
		log:       zerolog.Nop(),
		ctx:       ctx,
		cancel:    cancel,
		resolved:  make(map[string]geo.Coordinates),
		resolving: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lookups = make(chan struct{}, s.cfg.GeocodeConcurrency)
	return s
}

// Start registers the base map listeners, subscribes to the bus and
// schedules the first pass.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	if s.closed || s.offs != nil {
		s.mu.Unlock()
		return
	}
	s.offs = []func(){
		s.base.On(render.EventLoad, func(render.Event) { s.Schedule(true) }),
		s.base.On(render.EventMove, func(render.Event) { s.Schedule(false) }),
		s.base.On(render.EventZoom, func(render.Event) { s.Schedule(false) }),
		s.base.On(render.EventIdle, func(render.Event) { s.Schedule(false) }),
		s.base.On(render.EventError, func(ev render.Event) {
			s.log.Warn().Err(ev.Err).Msg("base map error")
		}),
	}
	if sel := s.source.Scene().Selected; sel != nil {
		s.lastSelection = sel.ID
	}
	if s.bus != nil {
		s.busCh = s.bus.Subscribe()
		s.wg.Add(1)
		go s.watch(s.busCh)
	}
	s.mu.Unlock()

	s.Schedule(true)
}

func (s *Synchronizer) watch(ch chan service.Event) {
	defer s.wg.Done()
	for ev := range ch {
		switch ev.Resource {
		case service.ResourceOverlay:
			continue
		case service.ResourceNodes:
			s.Schedule(true)
		case service.ResourceSelection:
			s.selectionChanged()
			s.Schedule(false)
		default:
			s.Schedule(false)
		}
	}
}

// Schedule requests a pass on the next frame. Requests made while a frame is
// pending are coalesced into it. ensureCoords asks the pass to resolve
// missing coordinates first.
func (s *Synchronizer) Schedule(ensureCoords bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ensureCoords {
		s.ensureCoords = true
	}
	if s.pending {
		s.metrics.IncCoalesced()
		return
	}
	s.pending = true
	s.cancelFrame = s.frames.RequestFrame(s.frame)
}

func (s *Synchronizer) frame() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.cancelFrame = nil
	ensure := s.ensureCoords
	s.ensureCoords = false
	s.mu.Unlock()

	if !s.projector.Ready() {
		if ensure {
			s.mu.Lock()
			s.ensureCoords = true
			s.mu.Unlock()
		}
		// The load listener schedules the next pass.
		return
	}

	s.passMu.Lock()
	defer s.passMu.Unlock()
	s.run(ensure)
}

func (s *Synchronizer) run(ensure bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.fail("sync", fmt.Errorf("panic: %v", r))
		}
	}()

	scene := s.source.Scene()
	if ensure {
		s.ensureCoordinates(scene.Nodes)
	}
	if s.ctx.Err() != nil {
		return
	}

	s.resolvedMu.RLock()
	resolved := make(map[string]geo.Coordinates, len(s.resolved))
	for k, v := range s.resolved {
		resolved[k] = v
	}
	s.resolvedMu.RUnlock()

	s.mu.Lock()
	screenshot := s.screenshot
	s.mu.Unlock()

	cam := s.base.Camera()
	p := &pass{
		scene:      scene,
		resolved:   resolved,
		project:    s.projector.Project,
		zoom:       cam.Zoom,
		cfg:        s.cfg,
		logos:      s.logos,
		screenshot: screenshot,
	}
	markers, routes, err := p.run()
	if err != nil {
		s.fail("sync", err)
		return
	}

	snap := &Snapshot{
		Generation: s.generation.Add(1),
		Zoom:       cam.Zoom,
		ZoomFactor: p.zoomFactor(),
		Camera:     cam,
		Viewport:   s.base.Viewport(),
		Markers:    markers,
		Routes:     routes,
		CreatedAt:  time.Now().UTC(),
	}
	s.publish(snap)
	s.metrics.ObserveSyncPass(time.Since(start), len(markers), len(routes))
	s.log.Debug().
		Uint64("generation", snap.Generation).
		Int("markers", len(markers)).
		Int("routes", len(routes)).
		Dur("took", time.Since(start)).
		Msg("overlay synced")
}

func (s *Synchronizer) publish(snap *Snapshot) {
	s.snapshot.Store(snap)

	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()
	for _, w := range waiters {
		w <- snap
	}
	if s.bus != nil {
		s.bus.Publish(service.Event{Resource: service.ResourceOverlay, Action: service.ActionSynced, ID: fmt.Sprint(snap.Generation)})
	}
}

func (s *Synchronizer) fail(op string, err error) {
	f := &Failure{Op: op, Err: err}
	s.metrics.IncSyncFailure()
	s.log.Error().Err(err).Str("op", op).Msg("overlay pass failed")
	if s.onFailure != nil {
		s.onFailure(f)
	}
}

// ensureCoordinates starts lookups for nodes that lack coordinates and
// returns without waiting. Each success is kept in the resolved table and
// schedules another pass. Failures are logged and the node stays hidden.
func (s *Synchronizer) ensureCoordinates(nodes []service.Node) {
	if s.geocoder == nil {
		return
	}
	for _, n := range nodes {
		if n.HasCoordinates() {
			continue
		}
		label := geocode.Label(n.City, n.Country)
		if label == "" {
			continue
		}
		s.resolvedMu.Lock()
		_, done := s.resolved[n.ID]
		_, busy := s.resolving[n.ID]
		if !done && !busy {
			s.resolving[n.ID] = struct{}{}
		}
		s.resolvedMu.Unlock()
		if done || busy {
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.resolve(n.ID, label)
	}
}

func (s *Synchronizer) resolve(id, label string) {
	defer s.wg.Done()
	defer func() {
		s.resolvedMu.Lock()
		delete(s.resolving, id)
		s.resolvedMu.Unlock()
	}()

	select {
	case s.lookups <- struct{}{}:
	case <-s.ctx.Done():
		return
	}
	c, err := s.geocoder.Resolve(s.ctx, label)
	<-s.lookups
	if err != nil {
		if s.ctx.Err() == nil {
			s.log.Warn().Err(err).Str("node", id).Str("label", label).Msg("coordinates unresolved")
		}
		return
	}

	s.resolvedMu.Lock()
	s.resolved[id] = c
	s.resolvedMu.Unlock()
	s.Schedule(false)
}

// Snapshot returns the latest published snapshot, or nil before the first
// pass.
func (s *Synchronizer) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// NextPass waits for the next snapshot published after the call.
func (s *Synchronizer) NextPass(ctx context.Context) (*Snapshot, error) {
	var after uint64
	if cur := s.Snapshot(); cur != nil {
		after = cur.Generation
	}
	return s.WaitPass(ctx, after)
}

// WaitPass returns the first snapshot whose generation is greater than
// after, waiting for a pass when none has been published yet.
func (s *Synchronizer) WaitPass(ctx context.Context, after uint64) (*Snapshot, error) {
	ch := make(chan *Snapshot, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	// publish stores before it collects waiters, so a snapshot that is not
	// visible here is delivered on ch.
	if cur := s.Snapshot(); cur != nil && cur.Generation > after {
		return cur, nil
	}
	select {
	case snap := <-ch:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, ErrClosed
	}
}

// Resolved returns the coordinates resolved for a node, if any.
func (s *Synchronizer) Resolved(nodeID string) (geo.Coordinates, bool) {
	s.resolvedMu.RLock()
	defer s.resolvedMu.RUnlock()
	c, ok := s.resolved[nodeID]
	return c, ok
}

// SetScreenshotMode forces pin labels on for captures.
func (s *Synchronizer) SetScreenshotMode(on bool) {
	s.mu.Lock()
	changed := s.screenshot != on
	s.screenshot = on
	s.mu.Unlock()
	if changed {
		s.Schedule(false)
	}
}

// ReportLogoFailure records that a logo location failed to load and returns
// the next location to try.
func (s *Synchronizer) ReportLogoFailure(nodeID, path string) string {
	n, ok := s.source.Scene().Node(nodeID)
	if !ok {
		return assets.FallbackLogo
	}
	if s.logos.Mark(path) {
		s.Schedule(false)
	}
	return s.logos.Next(n.Logo, s.cfg.AssetBaseURL, path)
}

// Close detaches every listener and cancels pending frames, timers and
// geocode waits. The last snapshot stays readable.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
	if s.debounce != nil {
		s.debounce.Stop()
	}
	offs := s.offs
	s.offs = nil
	ch := s.busCh
	s.mu.Unlock()

	s.cancel()
	for _, off := range offs {
		off()
	}
	s.projector.Close()
	if ch != nil {
		s.bus.Unsubscribe(ch)
	}
	s.wg.Wait()
}
