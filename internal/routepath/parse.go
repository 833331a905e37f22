package routepath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Curve is a parsed quadratic route path.
type Curve struct {
	Start, Control, End geo.Pixel
}

// Parse reads a path produced by Build.
func Parse(d string) (Curve, error) {
	f := strings.Fields(d)
	if len(f) != 8 || f[0] != "M" || f[3] != "Q" {
		return Curve{}, fmt.Errorf("routepath: unsupported path %q", d)
	}
	var nums [6]float64
	for i, s := range []string{f[1], f[2], f[4], f[5], f[6], f[7]} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Curve{}, fmt.Errorf("routepath: bad number %q: %w", s, err)
		}
		nums[i] = v
	}
	return Curve{
		Start:   geo.Pixel{X: nums[0], Y: nums[1]},
		Control: geo.Pixel{X: nums[2], Y: nums[3]},
		End:     geo.Pixel{X: nums[4], Y: nums[5]},
	}, nil
}

// At evaluates the curve at t in [0, 1].
func (c Curve) At(t float64) geo.Pixel {
	u := 1 - t
	return geo.Pixel{
		X: u*u*c.Start.X + 2*u*t*c.Control.X + t*t*c.End.X,
		Y: u*u*c.Start.Y + 2*u*t*c.Control.Y + t*t*c.End.Y,
	}
}

// Flatten samples the curve into n+1 points.
func (c Curve) Flatten(n int) []geo.Pixel {
	if n < 1 {
		n = 1
	}
	pts := make([]geo.Pixel, 0, n+1)
	for i := 0; i <= n; i++ {
		pts = append(pts, c.At(float64(i)/float64(n)))
	}
	return pts
}
