// Package render defines the base map contract the overlay engine drives and
// ships a software implementation of it.
//
// The base map owns the camera and the drawing surface. The overlay engine
// never projects coordinates itself: it asks the base map, listens to its
// lifecycle events and reads snapshots of its surface for composite capture.
package render

import (
	"errors"
	"image"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// EventType names a base map lifecycle event.
type EventType string

const (
	EventLoad  EventType = "load"
	EventMove  EventType = "move"
	EventZoom  EventType = "zoom"
	EventIdle  EventType = "idle"
	EventError EventType = "error"
)

// Event is delivered to listeners registered with On or Once.
type Event struct {
	Type   EventType
	Camera Camera
	Err    error
}

// Camera is the view onto the map.
type Camera struct {
	Center  orb.Point `json:"center" doc:"Camera center as [lng, lat]"`
	Zoom    float64   `json:"zoom" doc:"Zoom level"`
	Pitch   float64   `json:"pitch" doc:"Pitch in degrees"`
	Bearing float64   `json:"bearing" doc:"Bearing in degrees"`
}

// DefaultCamera is the overview shown when nothing is selected.
var DefaultCamera = Camera{Center: orb.Point{0, 0}, Zoom: 1.8, Pitch: 45, Bearing: 0}

// Viewport is the container size in CSS pixels plus the device pixel ratio.
// OffsetX/OffsetY translate every projected pixel.
type Viewport struct {
	Width      float64 `json:"width" doc:"Container width in CSS pixels" example:"1280"`
	Height     float64 `json:"height" doc:"Container height in CSS pixels" example:"720"`
	PixelRatio float64 `json:"pixelRatio" doc:"Device pixel ratio" example:"2"`
	OffsetX    float64 `json:"offsetX,omitempty" doc:"Horizontal offset applied to projected pixels"`
	OffsetY    float64 `json:"offsetY,omitempty" doc:"Vertical offset applied to projected pixels"`
}

// Ratio returns the pixel ratio, defaulting to 1.
func (v Viewport) Ratio() float64 {
	if v.PixelRatio <= 0 {
		return 1
	}
	return v.PixelRatio
}

// Empty reports whether the viewport has no area.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

var (
	// ErrNotLoaded is returned by operations that need a loaded map.
	ErrNotLoaded = errors.New("render: map not loaded")
	// ErrZeroSize is returned when the container has no area.
	ErrZeroSize = errors.New("render: container has zero size")
)

// BaseMap is the base map renderer driven by the overlay engine.
type BaseMap interface {
	// Loaded reports whether the map can project and snapshot.
	Loaded() bool
	// Project maps [lng, lat] to container pixels under the current camera.
	Project(ll orb.Point) geo.Pixel
	// OnLoad calls fn once when the map finishes loading.
	OnLoad(fn func()) (off func())
	// On registers fn for every event of type t.
	On(t EventType, fn func(Event)) (off func())
	// Once registers fn for the next event of type t.
	Once(t EventType, fn func(Event)) (off func())

	Camera() Camera
	Viewport() Viewport

	FlyTo(center orb.Point, zoom float64)
	EaseTo(cam Camera)
	ZoomTo(zoom float64)
	FitBounds(b orb.Bound, padding, maxZoom float64)

	// Snapshot returns a copy of the drawing surface in device pixels.
	Snapshot() (*image.RGBA, error)
}
