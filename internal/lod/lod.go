// Package lod decides how much detail a marker shows at a given zoom.
package lod

import (
	"math"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Tier is a marker detail level.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Thresholds on the zoom factor.
const (
	LowBelow      = 1.2
	MediumBelow   = 2.5
	PinLabelAbove = 1.8
	MinZoomFactor = 0.5

	DefaultZoomDivisor = 5.0
	HQScale            = 1.25
	markerBaseScale    = 0.56
)

// State is the outcome of Evaluate.
type State struct {
	Tier        Tier `json:"tier" enum:"low,medium,high" doc:"Detail tier"`
	LogoOnly    bool `json:"logoOnly" doc:"Only the logo is drawn"`
	CompactLogo bool `json:"compactLogo" doc:"Logo with a compact label"`
	FullDetail  bool `json:"fullDetail" doc:"Logo with full labels"`
}

// ZoomFactor converts a camera zoom into the factor used by Evaluate.
// A non-positive divisor falls back to DefaultZoomDivisor.
func ZoomFactor(zoom, divisor float64) float64 {
	if divisor <= 0 {
		divisor = DefaultZoomDivisor
	}
	return math.Max(MinZoomFactor, zoom/divisor)
}

// Evaluate returns the detail state for a zoom factor. A selected marker is
// always shown in full detail.
func Evaluate(zoomFactor float64, selected bool) State {
	if selected {
		return State{Tier: TierHigh, FullDetail: true}
	}
	switch {
	case zoomFactor < LowBelow:
		return State{Tier: TierLow, LogoOnly: true}
	case zoomFactor < MediumBelow:
		return State{Tier: TierMedium, CompactLogo: true}
	default:
		return State{Tier: TierHigh, FullDetail: true}
	}
}

// ShowPinLabel reports whether pin labels are drawn at this zoom factor.
func ShowPinLabel(zoomFactor float64) bool {
	return zoomFactor >= PinLabelAbove
}

// MarkerScale is the counter-scale applied to a marker so it grows slowly
// while the map zooms. HQ markers are drawn larger.
func MarkerScale(zoomFactor float64, hq bool) float64 {
	if zoomFactor <= 0 {
		zoomFactor = MinZoomFactor
	}
	adaptive := 1 + (zoomFactor-1)*0.1
	hqFactor := 1.0
	if hq {
		hqFactor = HQScale
	}
	return geo.Round4(adaptive * hqFactor * (1 / zoomFactor) * markerBaseScale)
}
