package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/capture"
	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/geocode"
	"github.com/joeblew999/plat-warroom/internal/humastar"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
)

func coords(lat, lng float64) *geo.Coordinates {
	return &geo.Coordinates{Latitude: lat, Longitude: lng}
}

func testScene() service.Scene {
	return service.Scene{
		Nodes: []service.Node{
			{ID: "toronto-works", Name: "Toronto Works", City: "Toronto", Country: "Canada",
				Coordinates: coords(43.6532, -79.3832), Level: service.LevelFactory, Status: "ACTIVE"},
			{ID: "ottawa-transit", Name: "Ottawa Transit", City: "Ottawa", Country: "Canada",
				Coordinates: coords(45.4215, -75.6972), Level: service.LevelClient, Status: "ACTIVE"},
			{ID: "montreal-depot", Name: "Montreal Depot", City: "Montreal", Country: "Canada",
				Coordinates: coords(45.5019, -73.5674), Level: service.LevelClient, Status: "INACTIVE"},
		},
		ProjectRoutes: []service.ProjectRoute{
			{ID: "p1", ProjectID: "bus-retrofit", FromNodeID: "ottawa-transit", ToNodeID: "toronto-works", Status: service.ProjectOpen},
		},
	}
}

type failingClient struct{}

func (failingClient) Lookup(ctx context.Context, label string) (geo.Coordinates, error) {
	return geo.Coordinates{}, errors.New("upstream down")
}

func newTestAPI(t *testing.T) (humatest.TestAPI, *Services) {
	t.Helper()
	bus := service.NewEventBus()
	scene := service.NewSceneService("", bus)
	require.NoError(t, scene.Import(testScene()))

	m := render.NewMap(render.Viewport{Width: 640, Height: 360, PixelRatio: 1})
	require.NoError(t, m.Load())

	ov := overlay.New(m, scene,
		overlay.WithFrames(overlay.TimerFrames{Interval: time.Millisecond}),
		overlay.WithBus(bus),
	)
	ov.Start()
	t.Cleanup(ov.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ov.WaitPass(ctx, 0)
	require.NoError(t, err)

	svc := &Services{
		Scene:   scene,
		Overlay: ov,
		Map:     m,
		Capture: capture.New(m, ov, capture.Options{IdleTimeout: 200 * time.Millisecond, PassTimeout: 500 * time.Millisecond}),
	}

	cfg := huma.DefaultConfig("warroom test", "1.0.0")
	cfg.Transformers = append(cfg.Transformers, humastar.LinkTransformer(), LinkTransformer())
	_, api := humatest.New(t, cfg)
	huma.AutoRegister(api, NewAPIHandler(svc))
	humastar.AutoLinks(api)
	return api, svc
}

func links(resp http.Header) string {
	return strings.Join(resp.Values("Link"), ", ")
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HealthBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestNodesPagination(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/nodes?offset=1&limit=1")
	require.Equal(t, http.StatusOK, resp.Code)

	var page humastar.PageBody[service.Node]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ottawa-transit", page.Data[0].ID)

	l := links(resp.Header())
	assert.Contains(t, l, `rel="next"`)
	assert.Contains(t, l, `rel="prev"`)
	assert.Contains(t, l, `</api/v1/nodes?offset=2&limit=1>; rel="last"`)
}

func TestNodeActions(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/nodes/toronto-works")
	require.Equal(t, http.StatusOK, resp.Code)
	l := links(resp.Header())
	assert.Contains(t, l, `</api/v1/nodes/toronto-works/click>`)
	assert.Contains(t, l, `</api/v1/nodes/toronto-works>; rel="self"`)

	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/nodes/nowhere").Code)
}

func TestClickNode(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Post("/api/v1/nodes/toronto-works/click")
	require.Equal(t, http.StatusOK, resp.Code)

	var state SceneStateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
	require.NotNil(t, state.Selected)
	assert.Equal(t, "toronto-works", state.Selected.ID)
	assert.Equal(t, "toronto-works", state.PinnedNodeID)
	assert.Equal(t, "toronto-works", svc.Scene.Scene().PinnedNodeID)

	resp = api.Post("/api/v1/nodes/toronto-works/click")
	require.Equal(t, http.StatusOK, resp.Code)
	state = SceneStateBody{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
	assert.Nil(t, state.Selected)
	assert.Empty(t, state.PinnedNodeID)

	assert.Equal(t, http.StatusNotFound, api.Post("/api/v1/nodes/nowhere/click").Code)
}

func TestOverlaySnapshot(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/overlay")
	require.Equal(t, http.StatusOK, resp.Code)

	var snap overlay.Snapshot
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &snap))
	assert.Len(t, snap.Markers, 3)
	require.Len(t, snap.Routes, 1)
	assert.Equal(t, overlay.KindProject, snap.Routes[0].Kind)

	l := links(resp.Header())
	assert.Contains(t, l, `</api/v1/overlay/stream>; rel="stream"`)
	assert.Contains(t, l, `rel="capture"`)
}

func TestTooltip(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/overlay/tooltip/ottawa-transit")
	require.Equal(t, http.StatusOK, resp.Code)

	var tip overlay.Tooltip
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tip))
	assert.Equal(t, "ottawa-transit", tip.NodeID)
	assert.Equal(t, "Ottawa, Canada", tip.Location)

	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/overlay/tooltip/nowhere").Code)
}

func TestFeaturesAndTiles(t *testing.T) {
	api, _ := newTestAPI(t)

	resp := api.Get("/api/v1/overlay/features")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))

	var fc struct {
		Type     string           `json:"type"`
		Features []map[string]any `json:"features"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 4)

	resp = api.Get("/api/v1/overlay/tiles/0/0/0")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
	assert.NotEmpty(t, resp.Body.Bytes())

	// Tokyo.
	assert.Equal(t, http.StatusNoContent, api.Get("/api/v1/overlay/tiles/6/56/25").Code)
	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/overlay/tiles/1/5/0").Code)
}

func TestCapture(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Post("/api/v1/capture", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
	assert.NotNil(t, svc.Overlay.Snapshot())
}

func TestGeocode(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Post("/api/v1/geocode", map[string]any{"label": "Ottawa, Canada"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	svc.Geocoder = geocode.NewResolver(failingClient{}, geocode.Options{Timeout: time.Second})
	resp = api.Post("/api/v1/geocode", map[string]any{"label": "Ottawa, Canada"})
	assert.Equal(t, http.StatusBadGateway, resp.Code)

	resp = api.Post("/api/v1/geocode", map[string]any{"label": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestStateFilter(t *testing.T) {
	api, svc := newTestAPI(t)

	resp := api.Put("/api/v1/state/filter", map[string]any{"filter": "inactive"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, service.FilterInactive, svc.Scene.Scene().Filter)

	resp = api.Put("/api/v1/state/theme", map[string]any{"theme": "dark"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, render.ThemeDark, svc.Map.Theme())
}
