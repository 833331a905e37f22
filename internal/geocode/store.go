package geocode

import (
	"context"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// Store is a persistent tier for resolved labels.
type Store interface {
	Get(ctx context.Context, label string) (geo.Coordinates, bool, error)
	Put(ctx context.Context, label string, c geo.Coordinates) error
}
