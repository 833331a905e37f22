package overlay

import (
	"time"

	"github.com/joeblew999/plat-warroom/internal/lod"
	"github.com/joeblew999/plat-warroom/internal/routepath"
)

// Config tunes a Synchronizer.
type Config struct {
	// ZoomDivisor converts camera zoom into the LOD zoom factor.
	ZoomDivisor float64
	// SelectionDebounce delays the camera move after a selection.
	SelectionDebounce time.Duration
	// SelectionZoom is the zoom used when flying to a selected entity.
	SelectionZoom float64
	// GeocodeConcurrency caps parallel coordinate lookups.
	GeocodeConcurrency int
	// AssetBaseURL prefixes relative logo paths.
	AssetBaseURL string
	// Paths builds route curves.
	Paths routepath.Builder
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		ZoomDivisor:        lod.DefaultZoomDivisor,
		SelectionDebounce:  200 * time.Millisecond,
		SelectionZoom:      8,
		GeocodeConcurrency: 8,
		Paths:              routepath.NewBuilder(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ZoomDivisor <= 0 {
		c.ZoomDivisor = d.ZoomDivisor
	}
	if c.SelectionDebounce <= 0 {
		c.SelectionDebounce = d.SelectionDebounce
	}
	if c.SelectionZoom <= 0 {
		c.SelectionZoom = d.SelectionZoom
	}
	if c.GeocodeConcurrency <= 0 {
		c.GeocodeConcurrency = d.GeocodeConcurrency
	}
	return c
}
