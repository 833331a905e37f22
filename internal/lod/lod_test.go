package lod

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		zf       float64
		selected bool
		want     Tier
	}{
		{1.19, false, TierLow},
		{1.2, false, TierMedium},
		{2.49, false, TierMedium},
		{2.5, false, TierHigh},
		{0.5, true, TierHigh},
		{1.5, true, TierHigh},
	}
	for _, tt := range tests {
		got := Evaluate(tt.zf, tt.selected)
		assert.Equal(t, tt.want, got.Tier, "zf=%v selected=%v", tt.zf, tt.selected)
	}
}

func TestEvaluateFlags(t *testing.T) {
	assert.Equal(t, State{Tier: TierLow, LogoOnly: true}, Evaluate(1, false))
	assert.Equal(t, State{Tier: TierMedium, CompactLogo: true}, Evaluate(2, false))
	assert.Equal(t, State{Tier: TierHigh, FullDetail: true}, Evaluate(3, false))
}

func TestZoomFactor(t *testing.T) {
	assert.Equal(t, 0.5, ZoomFactor(0, 5))
	assert.Equal(t, 1.6, ZoomFactor(8, 5))
	assert.Equal(t, 2.0, ZoomFactor(10, 0))
}

func TestShowPinLabel(t *testing.T) {
	assert.False(t, ShowPinLabel(1.79))
	assert.True(t, ShowPinLabel(1.8))
}

func TestMarkerScale(t *testing.T) {
	assert.Equal(t, 0.56, MarkerScale(1, false))
	assert.Equal(t, 0.7, MarkerScale(1, true))
	// zf=2: (1.1 * 1/2) * 0.56 = 0.308
	assert.Equal(t, 0.308, MarkerScale(2, false))
}
