package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/metrics"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
)

var (
	toronto = geo.Coordinates{Latitude: 43.6532, Longitude: -79.3832}
	ottawa  = geo.Coordinates{Latitude: 45.4215, Longitude: -75.6972}
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestCompositeOrdersAndScalesLayers(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	out := Composite(solid(4, 4, red), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.Equal(t, red, out.RGBAAt(1, 1))

	out = Composite(solid(4, 4, red), solid(2, 2, blue))
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	assert.Equal(t, blue, out.RGBAAt(2, 2))
}

func TestDashPattern(t *testing.T) {
	assert.Equal(t, []float64{6, 4}, dashPattern("6 4"))
	assert.Equal(t, []float64{6, 4}, dashPattern("6,4"))
	assert.Nil(t, dashPattern(""))
	assert.Nil(t, dashPattern("6 x"))
}

type harness struct {
	base  *render.Map
	sync  *overlay.Synchronizer
	scene *service.SceneService
}

func newHarness(t *testing.T, load bool) *harness {
	t.Helper()
	bus := service.NewEventBus()
	scene := service.NewSceneService("", bus)
	tor, ott := toronto, ottawa
	require.NoError(t, scene.Import(service.Scene{
		Nodes: []service.Node{
			{ID: "toronto", Name: "Toronto Works", City: "Toronto", Coordinates: &tor, Level: service.LevelFactory},
			{ID: "ottawa", Name: "Ottawa Transit", City: "Ottawa", Coordinates: &ott, Level: service.LevelClient},
		},
		TransitRoutes: []service.TransitRoute{{ID: "t1", From: "toronto", To: "ottawa", DashArray: "6 4"}},
	}))
	base := render.NewMap(render.Viewport{Width: 320, Height: 200, PixelRatio: 2})
	if load {
		require.NoError(t, base.Load())
	}
	s := overlay.New(base, scene, overlay.WithBus(bus), overlay.WithFrames(overlay.TimerFrames{Interval: time.Millisecond}))
	s.Start()
	t.Cleanup(s.Close)
	return &harness{base: base, sync: s, scene: scene}
}

func TestCaptureFramesLegsAndDrawsOverlay(t *testing.T) {
	h := newHarness(t, true)
	c := New(h.base, h.sync, Options{Metrics: metrics.New()})

	img, err := c.Capture(context.Background(), []Leg{{From: toronto, To: ottawa}})
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, 640, img.Width)
	assert.Equal(t, 400, img.Height)

	cam := h.base.Camera()
	assert.LessOrEqual(t, cam.Zoom, 10.0)
	snap := h.sync.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, cam, snap.Camera)
	for _, m := range snap.Markers {
		assert.GreaterOrEqual(t, m.Pixel.X, 80.0-1e-6, m.ID)
		assert.LessOrEqual(t, m.Pixel.X, 240.0+1e-6, m.ID)
	}

	decoded, err := png.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	base, err := h.base.Snapshot()
	require.NoError(t, err)
	m, _ := snap.Marker("toronto")
	x, y := int(m.Pixel.X*2), int(m.Pixel.Y*2)
	assert.NotEqual(t, base.RGBAAt(x, y), color.RGBAModel.Convert(decoded.At(x, y)))

	// Screenshot mode is switched off again.
	require.Eventually(t, func() bool {
		snap := h.sync.Snapshot()
		m, _ := snap.Marker("toronto")
		return !m.ShowPinLabel
	}, time.Second, 5*time.Millisecond)
}

func TestCaptureWithoutBaseIsFatal(t *testing.T) {
	h := newHarness(t, false)
	c := New(h.base, h.sync, Options{IdleTimeout: 20 * time.Millisecond, PassTimeout: 20 * time.Millisecond})

	_, err := c.Capture(context.Background(), []Leg{{From: toronto, To: ottawa}})
	assert.ErrorIs(t, err, ErrNoBaseSnapshot)
}

// flatViewport reports a zero-size container while still producing a base
// snapshot, so both overlay layers are degenerate.
type flatViewport struct {
	*render.Map
}

func (flatViewport) Viewport() render.Viewport { return render.Viewport{} }

func TestCaptureSkipsDegenerateLayers(t *testing.T) {
	h := newHarness(t, true)
	m := metrics.New()
	c := New(flatViewport{h.base}, h.sync, Options{Metrics: m})

	img, err := c.Capture(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Width)

	n, err := testutil.GatherAndCount(m.Registry(), "warroom_capture_layers_skipped_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCaptureHonoursContext(t *testing.T) {
	h := newHarness(t, false)
	c := New(h.base, h.sync, Options{IdleTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Capture(ctx, []Leg{{From: toronto, To: ottawa}})
	assert.ErrorIs(t, err, context.Canceled)
}
