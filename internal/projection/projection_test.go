package projection

import (
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

var toronto = geo.Coordinates{Latitude: 43.6532, Longitude: -79.3832}

func TestViewBoxLinearity(t *testing.T) {
	base := ProjectViewBox(toronto, ViewBox{Width: 950, Height: 550})
	double := ProjectViewBox(toronto, ViewBox{Width: 1900, Height: 1100})
	assert.Equal(t, base.Scale(2), double)

	shifted := ProjectViewBox(toronto, ViewBox{X: -100, Y: -50, Width: 950, Height: 550})
	assert.InDelta(t, base.X-100, shifted.X, 1e-9)
	assert.InDelta(t, base.Y-50, shifted.Y, 1e-9)
}

func TestNormalizedCentralMeridian(t *testing.T) {
	n := Normalized(geo.Coordinates{Latitude: 0, Longitude: CentralMeridian})
	assert.InDelta(t, 0.5, n.X, 1e-12)
	assert.InDelta(t, 0.5, n.Y, 1e-12)

	north := Normalized(geo.Coordinates{Latitude: 60, Longitude: 0})
	assert.Less(t, north.Y, 0.5)
}

type fakeRenderer struct {
	mu     sync.Mutex
	loaded bool
	onLoad []func()
	// loadOnRegister completes the load inside the next OnLoad call.
	loadOnRegister bool
}

func (f *fakeRenderer) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeRenderer) Project(ll orb.Point) geo.Pixel {
	return geo.Pixel{X: ll.Lon() * 2, Y: ll.Lat() * 2}
}

func (f *fakeRenderer) OnLoad(fn func()) func() {
	f.mu.Lock()
	if f.loadOnRegister {
		f.loaded = true
	}
	if f.loaded {
		f.mu.Unlock()
		fn()
		return func() {}
	}
	f.onLoad = append(f.onLoad, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeRenderer) load() {
	f.mu.Lock()
	f.loaded = true
	fns := f.onLoad
	f.onLoad = nil
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func TestProjectorDefersUntilLoad(t *testing.T) {
	r := &fakeRenderer{}
	p := New(r)

	_, err := p.Project(toronto)
	require.ErrorIs(t, err, ErrNotReady)

	var order []int
	p.Defer(func() { order = append(order, 1) })
	p.Defer(func() { order = append(order, 2) })
	assert.Equal(t, 2, p.Pending())
	assert.Empty(t, order)

	r.load()
	assert.Equal(t, []int{1, 2}, order)
	assert.Zero(t, p.Pending())

	px, err := p.Project(toronto)
	require.NoError(t, err)
	assert.Equal(t, geo.Pixel{X: toronto.Longitude * 2, Y: toronto.Latitude * 2}, px)

	p.Defer(func() { order = append(order, 3) })
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestProjectorRejectsInvalid(t *testing.T) {
	p := New(&fakeRenderer{loaded: true})
	_, err := p.Project(geo.Coordinates{})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestProjectorDeferWhenLoadCompletesDuringRegistration(t *testing.T) {
	r := &fakeRenderer{loadOnRegister: true}
	p := New(r)

	ran := make(chan struct{})
	go func() {
		p.Defer(func() { close(ran) })
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("deferred call did not run")
	}
	assert.Zero(t, p.Pending())

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked")
	}
}
