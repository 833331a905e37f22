// Package tiler exports the overlay as GeoJSON and Mapbox Vector Tiles so
// that other map clients can draw the same markers and routes.
package tiler

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/orb/simplify"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/overlay"
)

// Layer names used in generated tiles.
const (
	MarkerLayer = "markers"
	RouteLayer  = "routes"
)

// MaxZoom is the deepest zoom a tile can be requested at.
const MaxZoom = 14

// routeSteps is the number of segments a route line is split into, so that
// clipping keeps its shape inside each tile.
const routeSteps = 16

// Features converts a snapshot into a FeatureCollection in geographic
// coordinates. Routes whose endpoints have no marker are left out.
func Features(snap *overlay.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if snap == nil {
		return fc
	}

	for _, m := range snap.Markers {
		f := geojson.NewFeature(m.Coordinates.Point())
		f.ID = m.ID
		f.Properties["layer"] = MarkerLayer
		f.Properties["id"] = m.ID
		f.Properties["name"] = m.DisplayName
		f.Properties["level"] = string(m.Level)
		f.Properties["status"] = m.StatusKey
		f.Properties["color"] = m.StatusColor
		f.Properties["selected"] = m.IsSelected
		f.Properties["hub"] = m.IsHub
		fc.Append(f)
	}

	for _, r := range snap.Routes {
		from, ok := snap.Marker(r.From)
		if !ok {
			continue
		}
		to, ok := snap.Marker(r.To)
		if !ok {
			continue
		}
		f := geojson.NewFeature(line(from.Coordinates, to.Coordinates))
		f.ID = r.ID
		f.Properties["layer"] = RouteLayer
		f.Properties["id"] = r.ID
		f.Properties["kind"] = r.Kind
		f.Properties["from"] = from.ID
		f.Properties["to"] = to.ID
		f.Properties["color"] = r.StrokeColor
		f.Properties["width"] = r.StrokeWidth
		f.Properties["highlighted"] = r.Highlighted
		if r.ProjectID != "" {
			f.Properties["project"] = r.ProjectID
		}
		fc.Append(f)
	}
	return fc
}

func line(a, b geo.Coordinates) orb.LineString {
	ls := make(orb.LineString, 0, routeSteps+1)
	for i := 0; i <= routeSteps; i++ {
		t := float64(i) / routeSteps
		ls = append(ls, orb.Point{
			a.Longitude + (b.Longitude-a.Longitude)*t,
			a.Latitude + (b.Latitude-a.Latitude)*t,
		})
	}
	return ls
}

// Tile encodes the features intersecting t as a gzipped MVT with one layer
// for markers and one for routes. An empty tile returns nil data.
func Tile(fc *geojson.FeatureCollection, t maptile.Tile) ([]byte, error) {
	if t.Z > MaxZoom {
		return nil, fmt.Errorf("zoom %d exceeds %d", t.Z, MaxZoom)
	}
	bound := t.Bound()

	groups := map[string]*geojson.FeatureCollection{
		MarkerLayer: geojson.NewFeatureCollection(),
		RouteLayer:  geojson.NewFeatureCollection(),
	}
	for _, f := range fc.Features {
		if !f.Geometry.Bound().Intersects(bound) {
			continue
		}
		if p, ok := f.Geometry.(orb.Point); ok && !bound.Contains(p) {
			continue
		}
		// Clip and ProjectToTile mutate geometry in place.
		clone := geojson.NewFeature(orb.Clone(f.Geometry))
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		name, _ := f.Properties["layer"].(string)
		if g, ok := groups[name]; ok {
			g.Append(clone)
		}
	}

	var layers mvt.Layers
	for _, name := range []string{RouteLayer, MarkerLayer} {
		if len(groups[name].Features) == 0 {
			continue
		}
		layer := mvt.NewLayer(name, groups[name])
		if eps := simplifyEpsilon(t.Z); eps > 0 {
			layer.Simplify(simplify.DouglasPeucker(eps))
		}
		layer.Clip(bound)
		layer.ProjectToTile(t)
		layer.RemoveEmpty(0.5, 0.5)
		if len(layer.Features) > 0 {
			layers = append(layers, layer)
		}
	}
	if len(layers) == 0 {
		return nil, nil
	}
	return mvt.MarshalGzipped(layers)
}

// simplifyEpsilon returns the simplification tolerance in degrees for a
// zoom level.
func simplifyEpsilon(zoom maptile.Zoom) float64 {
	switch {
	case zoom >= 10:
		return 0
	case zoom >= 6:
		return 0.001
	case zoom >= 3:
		return 0.01
	default:
		return 0.05
	}
}
