// Package server wires the war-room services into an HTTP server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-warroom/internal/api"
	"github.com/joeblew999/plat-warroom/internal/assets"
	"github.com/joeblew999/plat-warroom/internal/capture"
	"github.com/joeblew999/plat-warroom/internal/db"
	"github.com/joeblew999/plat-warroom/internal/geocode"
	"github.com/joeblew999/plat-warroom/internal/humastar"
	"github.com/joeblew999/plat-warroom/internal/logging"
	"github.com/joeblew999/plat-warroom/internal/metrics"
	"github.com/joeblew999/plat-warroom/internal/overlay"
	"github.com/joeblew999/plat-warroom/internal/render"
	"github.com/joeblew999/plat-warroom/internal/service"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string

	LogLevel string
	// Logger overrides the JSON logger built from LogLevel.
	Logger *zerolog.Logger

	// GeocodeEndpoint is an Open-Meteo compatible search URL.
	GeocodeEndpoint string
	// RedisAddr selects Redis as the persistent geocode cache. When empty
	// the cache lives in DuckDB under DataDir.
	RedisAddr     string
	RedisPassword string

	Width      float64
	Height     float64
	PixelRatio float64
	Projection string

	AssetBaseURL string
}

// Server is the war-room HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	log     zerolog.Logger
	metrics *metrics.Metrics

	db      *sql.DB
	redis   io.Closer
	scene   *service.SceneService
	baseMap *render.Map
	overlay *overlay.Synchronizer
	capture *capture.Compositor
}

// New creates the services, mounts the base map and starts the overlay.
func New(cfg Config) (*Server, error) {
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.PixelRatio <= 0 {
		cfg.PixelRatio = 1
	}

	log := logging.New(cfg.LogLevel)
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	s := &Server{
		config:  cfg,
		mux:     http.NewServeMux(),
		log:     log,
		metrics: metrics.New(),
	}

	bus := service.NewEventBus()
	s.scene = service.NewSceneService(cfg.DataDir, bus)

	theme := render.ParseTheme(s.scene.Scene().Theme)
	container := render.ContainerFunc(func() (float64, float64) { return cfg.Width, cfg.Height })
	m, err := render.Mount(context.Background(), container, func(vp render.Viewport) (*render.Map, error) {
		return render.NewMap(vp,
			render.WithProjection(render.Projection(cfg.Projection)),
			render.WithTheme(theme),
			render.WithLogger(log.With().Str("component", "map").Logger()),
		), nil
	}, cfg.PixelRatio, render.MountOptions{Log: log})
	if err != nil {
		return nil, fmt.Errorf("mount base map: %w", err)
	}
	s.baseMap = m

	store, cache, cacheTier := s.geocodeStore()
	resolver := geocode.NewResolver(geocode.NewHTTPClient(cfg.GeocodeEndpoint), geocode.Options{
		Store:   store,
		Metrics: s.metrics,
		Log:     log.With().Str("component", "geocode").Logger(),
	})

	ovCfg := overlay.DefaultConfig()
	ovCfg.AssetBaseURL = cfg.AssetBaseURL
	s.overlay = overlay.New(m, s.scene,
		overlay.WithConfig(ovCfg),
		overlay.WithGeocoder(resolver),
		overlay.WithBus(bus),
		overlay.WithLogoFailures(assets.NewLogoFailures()),
		overlay.WithMetrics(s.metrics),
		overlay.WithLogger(log.With().Str("component", "overlay").Logger()),
	)
	s.overlay.Start()

	capOpts := capture.DefaultOptions()
	capOpts.Metrics = s.metrics
	capOpts.Log = log.With().Str("component", "capture").Logger()
	s.capture = capture.New(m, s.overlay, capOpts)

	humaConfig := huma.DefaultConfig("plat-warroom API", "1.0.0")
	humaConfig.Info.Description = "War-room map overlay API: entities, routes, interaction state, overlay snapshots and composite captures."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, humastar.LinkTransformer(), api.LinkTransformer())
	s.humaAPI = humago.New(s.mux, humaConfig)

	services := &api.Services{
		Scene:    s.scene,
		Overlay:  s.overlay,
		Map:      m,
		Geocoder: resolver,
		Capture:  s.capture,
		Cache:    cache,
	}
	s.routes(services, cacheTier)

	log.Info().
		Float64("width", cfg.Width).
		Float64("height", cfg.Height).
		Str("projection", cfg.Projection).
		Str("geocode_cache", cacheTier).
		Msg("war-room server ready")
	return s, nil
}

// geocodeStore picks the persistent geocode tier: Redis when configured,
// otherwise DuckDB. A DuckDB failure leaves only the in-memory cache.
func (s *Server) geocodeStore() (geocode.Store, *db.GeocodeStore, string) {
	if s.config.RedisAddr != "" {
		rs := geocode.NewRedisStore(s.config.RedisAddr, s.config.RedisPassword, 0)
		s.redis = rs
		return rs, nil, "redis"
	}

	conn, err := db.Get(db.Config{DataDir: s.config.DataDir, DBName: "warroom"})
	if err != nil {
		s.log.Warn().Err(err).Msg("duckdb unavailable, geocode cache is memory only")
		return nil, nil, "none"
	}
	s.db = conn
	cache, err := db.NewGeocodeStore(context.Background(), conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("geocode table unavailable, geocode cache is memory only")
		return nil, nil, "none"
	}
	return cache, cache, "duckdb"
}

func (s *Server) routes(services *api.Services, cacheTier string) {
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(services))
	api.NewDBHandler(s.db, services.Cache).RegisterRoutes(s.humaAPI)
	api.NewInfoHandler(s.config.DataDir, s.db != nil, string(s.baseMap.Projection()), cacheTier).RegisterRoutes(s.humaAPI)

	// Link headers derived from the OpenAPI document, after every
	// operation is registered.
	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Overlay returns the overlay synchronizer.
func (s *Server) Overlay() *overlay.Synchronizer {
	return s.overlay
}

// Scene returns the scene service.
func (s *Server) Scene() *service.SceneService {
	return s.scene
}

// Capture returns the composite capture service.
func (s *Server) Capture() *capture.Compositor {
	return s.capture
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.log.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}

// Close stops the overlay and closes server resources.
func (s *Server) Close() error {
	s.overlay.Close()
	// Ends open overlay streams.
	s.scene.Bus().Close()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close redis")
		}
	}
	return db.Close()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"service":"plat-warroom","status":"running"}`)
}
