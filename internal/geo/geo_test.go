package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinatesValid(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinates
		want bool
	}{
		{"toronto", Coordinates{Latitude: 43.6532, Longitude: -79.3832}, true},
		{"null island", Coordinates{}, false},
		{"zero latitude only", Coordinates{Latitude: 0, Longitude: 12}, true},
		{"nan", Coordinates{Latitude: math.NaN(), Longitude: 1}, false},
		{"inf", Coordinates{Latitude: 1, Longitude: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Valid())
		})
	}
	assert.False(t, ValidPtr(nil))
}

func TestBoundSkipsInvalid(t *testing.T) {
	b, ok := Bound(
		Coordinates{},
		Coordinates{Latitude: 43.6532, Longitude: -79.3832},
		Coordinates{Latitude: 45.4215, Longitude: -75.6972},
	)
	assert.True(t, ok)
	assert.Equal(t, -79.3832, b.Min.Lon())
	assert.Equal(t, 45.4215, b.Max.Lat())

	_, ok = Bound(Coordinates{})
	assert.False(t, ok)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.3457", FormatFloat(12.345678))
	assert.Equal(t, "10", FormatFloat(10))
	assert.Equal(t, "0", FormatFloat(-0.00001))
}
