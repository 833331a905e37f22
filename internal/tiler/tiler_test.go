package tiler

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/overlay"
)

func snapshot() *overlay.Snapshot {
	return &overlay.Snapshot{
		Generation: 1,
		Markers: []overlay.Marker{
			{ID: "toronto", Pixel: geo.Pixel{X: 100, Y: 100}, Coordinates: geo.Coordinates{Latitude: 43.6532, Longitude: -79.3832}, StatusKey: "active"},
			{ID: "ottawa", Pixel: geo.Pixel{X: 200, Y: 80}, Coordinates: geo.Coordinates{Latitude: 45.4215, Longitude: -75.6972}, StatusKey: "default"},
		},
		Routes: []overlay.Route{
			{ID: "p1-0", Kind: overlay.KindProject, From: "ottawa", To: "toronto", Start: geo.Pixel{X: 200, Y: 80}, End: geo.Pixel{X: 100, Y: 100}, StrokeColor: "#00C853"},
			{ID: "stray", Kind: overlay.KindTransit, Start: geo.Pixel{X: 1, Y: 1}, End: geo.Pixel{X: 100, Y: 100}},
		},
	}
}

func TestFeatures(t *testing.T) {
	fc := Features(snapshot())
	require.Len(t, fc.Features, 3)

	route := fc.Features[2]
	assert.Equal(t, RouteLayer, route.Properties["layer"])
	assert.Equal(t, "ottawa", route.Properties["from"])
	assert.Equal(t, "toronto", route.Properties["to"])

	ls, ok := route.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, ls, routeSteps+1)
	assert.Equal(t, orb.Point{-75.6972, 45.4215}, ls[0])
	assert.InDelta(t, -79.3832, ls[len(ls)-1][0], 1e-9)
}

func TestFeaturesNilSnapshot(t *testing.T) {
	assert.Empty(t, Features(nil).Features)
}

func TestTile(t *testing.T) {
	fc := Features(snapshot())

	t.Run("covering tile", func(t *testing.T) {
		tile := maptile.At(orb.Point{-77, 44.5}, 4)
		data, err := Tile(fc, tile)
		require.NoError(t, err)
		require.NotEmpty(t, data)

		zr, err := gzip.NewReader(bytes.NewReader(data))
		require.NoError(t, err)
		raw, err := io.ReadAll(zr)
		require.NoError(t, err)

		layers, err := mvt.Unmarshal(raw)
		require.NoError(t, err)
		names := map[string]int{}
		for _, l := range layers {
			names[l.Name] = len(l.Features)
		}
		assert.Equal(t, 2, names[MarkerLayer])
		assert.Equal(t, 1, names[RouteLayer])
	})

	t.Run("empty tile", func(t *testing.T) {
		data, err := Tile(fc, maptile.At(orb.Point{139.69, 35.68}, 6))
		require.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("zoom too deep", func(t *testing.T) {
		_, err := Tile(fc, maptile.New(0, 0, 20))
		assert.Error(t, err)
	})
}
