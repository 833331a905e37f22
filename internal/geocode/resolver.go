// Package geocode resolves free-text place labels to coordinates.
//
// Results are cached for the lifetime of the process. Concurrent requests for
// the same label share one network call, and failures are returned to the
// caller without retrying.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/metrics"
)

// DefaultTimeout bounds each network lookup.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is wrapped by failures caused by the lookup deadline.
	ErrTimeout = errors.New("geocode: request timed out")
	// ErrNoResults is returned when the service knows no such place.
	ErrNoResults = errors.New("geocode: no results")
	// ErrEmptyLabel is returned for blank labels.
	ErrEmptyLabel = errors.New("geocode: empty label")
)

// Failure is returned when a label could not be resolved.
type Failure struct {
	Label string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("geocode %q: %v", f.Label, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Client performs a single lookup against a geocoding service.
type Client interface {
	Lookup(ctx context.Context, label string) (geo.Coordinates, error)
}

// Options configures a Resolver.
type Options struct {
	Timeout time.Duration
	// Store is an optional persistent tier consulted before the network.
	Store   Store
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// Resolver caches and de-duplicates lookups.
type Resolver struct {
	client  Client
	store   Store
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu    sync.RWMutex
	cache map[string]geo.Coordinates
	group singleflight.Group
}

// NewResolver returns a resolver over client.
func NewResolver(client Client, opts Options) *Resolver {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		client:  client,
		store:   opts.Store,
		timeout: timeout,
		metrics: opts.Metrics,
		log:     opts.Log,
		cache:   make(map[string]geo.Coordinates),
	}
}

// Resolve returns the coordinates for label. A cached result is returned
// without suspending. Callers asking for a label that is already being
// looked up wait for that lookup. ctx only bounds this caller's wait; the
// shared lookup runs under its own timeout.
func (r *Resolver) Resolve(ctx context.Context, label string) (geo.Coordinates, error) {
	if strings.TrimSpace(label) == "" {
		return geo.Coordinates{}, &Failure{Label: label, Err: ErrEmptyLabel}
	}
	if c, ok := r.Cached(label); ok {
		r.metrics.IncGeocodeCacheHit("memory")
		return c, nil
	}

	ch := r.group.DoChan(label, func() (any, error) {
		return r.fetch(label)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return geo.Coordinates{}, res.Err
		}
		return res.Val.(geo.Coordinates), nil
	case <-ctx.Done():
		return geo.Coordinates{}, &Failure{Label: label, Err: ctx.Err()}
	}
}

// Cached returns the cached coordinates for label.
func (r *Resolver) Cached(label string) (geo.Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[label]
	return c, ok
}

// Len returns the number of cached labels.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// fetch runs inside the single flight for label. The cache is written before
// it returns, so the in-flight entry is only cleared once a later caller can
// hit the cache.
func (r *Resolver) fetch(label string) (geo.Coordinates, error) {
	if c, ok := r.Cached(label); ok {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if r.store != nil {
		c, ok, err := r.store.Get(ctx, label)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Str("label", label).Msg("geocode store read failed")
		case ok && c.Valid():
			r.metrics.IncGeocodeCacheHit("store")
			r.remember(label, c)
			return c, nil
		}
	}

	r.metrics.GeocodeInflight(1)
	defer r.metrics.GeocodeInflight(-1)

	start := time.Now()
	c, err := r.client.Lookup(ctx, label)
	if err == nil && !c.Valid() {
		err = ErrNoResults
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrTimeout, r.timeout, err)
			r.metrics.ObserveGeocode("timeout")
		} else {
			r.metrics.ObserveGeocode("error")
		}
		r.log.Debug().Err(err).Str("label", label).Msg("geocode lookup failed")
		return geo.Coordinates{}, &Failure{Label: label, Err: err}
	}

	r.metrics.ObserveGeocode("ok")
	r.log.Debug().Str("label", label).Dur("took", time.Since(start)).
		Float64("lat", c.Latitude).Float64("lng", c.Longitude).Msg("geocoded")
	r.remember(label, c)

	if r.store != nil {
		if err := r.store.Put(ctx, label, c); err != nil {
			r.log.Warn().Err(err).Str("label", label).Msg("geocode store write failed")
		}
	}
	return c, nil
}

// remember stores c unless label already has an entry.
func (r *Resolver) remember(label string, c geo.Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[label]; !ok {
		r.cache[label] = c
	}
}

// Label builds the lookup label for a place, "City, Country" when both are
// known.
func Label(city, country string) string {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}
