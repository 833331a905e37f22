package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-warroom/internal/geo"
	"github.com/joeblew999/plat-warroom/internal/metrics"
)

var toronto = geo.Coordinates{Latitude: 43.6532, Longitude: -79.3832}

// geocoder is a fake geocoding API that counts requests.
type geocoder struct {
	hits    atomic.Int32
	arrived chan string
	gate    chan struct{}
	status  int
	delay   time.Duration
}

func (g *geocoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.hits.Add(1)
	if g.arrived != nil {
		g.arrived <- r.URL.Query().Get("name")
	}
	if g.gate != nil {
		<-g.gate
	}
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-r.Context().Done():
			return
		}
	}
	if g.status != 0 {
		w.WriteHeader(g.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"results":[{"name":"Toronto","latitude":%v,"longitude":%v,"country":"Canada"}]}`,
		toronto.Latitude, toronto.Longitude)
}

func newResolver(t *testing.T, g *geocoder, opts Options) *Resolver {
	t.Helper()
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return NewResolver(NewHTTPClient(srv.URL), opts)
}

func TestResolveCachesResult(t *testing.T) {
	g := &geocoder{}
	r := newResolver(t, g, Options{Metrics: metrics.New()})

	c, err := r.Resolve(context.Background(), "Toronto, Canada")
	require.NoError(t, err)
	assert.Equal(t, toronto, c)

	c, err = r.Resolve(context.Background(), "Toronto, Canada")
	require.NoError(t, err)
	assert.Equal(t, toronto, c)
	assert.Equal(t, int32(1), g.hits.Load())
	assert.Equal(t, 1, r.Len())
}

func TestConcurrentResolvesShareOneRequest(t *testing.T) {
	g := &geocoder{arrived: make(chan string, 4), gate: make(chan struct{})}
	r := newResolver(t, g, Options{})

	var wg sync.WaitGroup
	results := make([]geo.Coordinates, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.Resolve(context.Background(), "Toronto, Canada")
	}()
	assert.Equal(t, "Toronto, Canada", <-g.arrived)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = r.Resolve(context.Background(), "Toronto, Canada")
	}()
	time.Sleep(20 * time.Millisecond)
	close(g.gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, int32(1), g.hits.Load())
}

func TestLabelsAreKeyedExactly(t *testing.T) {
	g := &geocoder{}
	r := newResolver(t, g, Options{})

	_, err := r.Resolve(context.Background(), "Toronto, Canada")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "toronto, canada")
	require.NoError(t, err)
	assert.Equal(t, int32(2), g.hits.Load())
}

func TestTimeoutIsAFailure(t *testing.T) {
	g := &geocoder{delay: time.Second}
	r := newResolver(t, g, Options{Timeout: 50 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "Atlantis")
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "Atlantis", f.Label)
	assert.ErrorIs(t, err, ErrTimeout)

	_, ok := r.Cached("Atlantis")
	assert.False(t, ok)
}

func TestNonSuccessResponseIsAFailure(t *testing.T) {
	g := &geocoder{status: http.StatusBadGateway}
	r := newResolver(t, g, Options{})

	_, err := r.Resolve(context.Background(), "Ottawa, Canada")
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), g.hits.Load())
}

func TestNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()
	r := NewResolver(NewHTTPClient(srv.URL), Options{})

	_, err := r.Resolve(context.Background(), "Nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestEmptyLabel(t *testing.T) {
	r := NewResolver(nil, Options{})
	_, err := r.Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestCallerContextOnlyBoundsItsOwnWait(t *testing.T) {
	g := &geocoder{gate: make(chan struct{})}
	r := newResolver(t, g, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, "Toronto, Canada")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "Toronto, Canada", f.Label)

	close(g.gate)
	require.Eventually(t, func() bool {
		_, ok := r.Cached("Toronto, Canada")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestStoreIsConsultedBeforeNetwork(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.Put(context.Background(), "Toronto, Canada", toronto))

	g := &geocoder{}
	r := newResolver(t, g, Options{Store: store})
	c, err := r.Resolve(context.Background(), "Toronto, Canada")
	require.NoError(t, err)
	assert.Equal(t, toronto, c)
	assert.Zero(t, g.hits.Load())

	_, err = r.Resolve(context.Background(), "Ottawa, Canada")
	require.NoError(t, err)
	_, ok, err := store.Get(context.Background(), "Ottawa, Canada")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, WithPrefix("test:"), WithTTL(time.Hour))
	defer store.Close()

	ctx := context.Background()
	_, ok, err := store.Get(ctx, "Toronto, Canada")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "Toronto, Canada", toronto))
	assert.True(t, mr.Exists("test:Toronto, Canada"))
	assert.Equal(t, time.Hour, mr.TTL("test:Toronto, Canada"))

	c, ok, err := store.Get(ctx, "Toronto, Canada")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, toronto, c)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Toronto, Canada", Label("Toronto", "Canada"))
	assert.Equal(t, "Toronto", Label(" Toronto ", ""))
	assert.Equal(t, "Canada", Label("", "Canada"))
	assert.Equal(t, "", Label("", ""))
}
