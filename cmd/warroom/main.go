package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-warroom/internal/logging"
	"github.com/joeblew999/plat-warroom/internal/server"
	"github.com/joeblew999/plat-warroom/internal/service"
)

// Options defines all CLI flags and env vars for the war-room server.
// Flags: --host, --port, --data-dir, --log-level, --geocode-endpoint, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_LOG_LEVEL, ...
type Options struct {
	Host            string  `doc:"Host to bind to" default:"0.0.0.0"`
	Port            int     `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir         string  `doc:"Directory for the scene and caches" default:".data"`
	LogLevel        string  `doc:"Log level" default:"info"`
	GeocodeEndpoint string  `doc:"Open-Meteo compatible geocoding search URL"`
	RedisAddr       string  `doc:"Redis address for the geocode cache; DuckDB when empty"`
	RedisPassword   string  `doc:"Redis password"`
	Width           float64 `doc:"Map viewport width in CSS pixels" default:"1280"`
	Height          float64 `doc:"Map viewport height in CSS pixels" default:"720"`
	PixelRatio      float64 `doc:"Device pixel ratio of captures" default:"2"`
	Projection      string  `doc:"Base map projection" enum:"mercator,miller" default:"mercator"`
	AssetBaseURL    string  `doc:"Base URL logo paths are resolved against"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:            opts.Host,
		Port:            fmt.Sprintf("%d", opts.Port),
		DataDir:         opts.DataDir,
		LogLevel:        opts.LogLevel,
		GeocodeEndpoint: opts.GeocodeEndpoint,
		RedisAddr:       opts.RedisAddr,
		RedisPassword:   opts.RedisPassword,
		Width:           opts.Width,
		Height:          opts.Height,
		PixelRatio:      opts.PixelRatio,
		Projection:      opts.Projection,
		AssetBaseURL:    opts.AssetBaseURL,
	})
}

func mustServer(opts *Options) *server.Server {
	srv, err := newServer(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv = mustServer(opts)
			log := logging.NewConsole(opts.LogLevel)

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-warroom API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Overlay: %s/api/v1/overlay\n", baseURL)
			fmt.Printf("  Stream:  %s/api/v1/overlay/stream\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			if httpServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				httpServer.Shutdown(ctx)
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "warroom"
	cli.Root().Short = "War-room map overlay server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// import subcommand: replace the persisted scene with a YAML scenario
	importCmd := &cobra.Command{
		Use:   "import <scenario.yaml>",
		Short: "Replace the stored scene with a YAML scenario",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			sc, err := service.LoadScenario(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
				os.Exit(1)
			}
			scene := service.NewSceneService(opts.DataDir, nil)
			if err := scene.Import(sc); err != nil {
				fmt.Fprintf(os.Stderr, "Error importing scenario: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Imported %d entities, %d transit and %d project routes into %s\n",
				len(sc.Nodes), len(sc.TransitRoutes), len(sc.ProjectRoutes), opts.DataDir)
		}),
	}
	cli.Root().AddCommand(importCmd)

	// capture subcommand: render the scene to a PNG without serving HTTP
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Write a composite PNG of the map and its overlay",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := mustServer(opts)
			defer srv.Close()

			if scenario, _ := cmd.Flags().GetString("scenario"); scenario != "" {
				sc, err := service.LoadScenario(scenario)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error loading scenario: %v\n", err)
					os.Exit(1)
				}
				if err := srv.Scene().Import(sc); err != nil {
					fmt.Fprintf(os.Stderr, "Error importing scenario: %v\n", err)
					os.Exit(1)
				}
			}

			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			// Let a pass resolve place labels before framing.
			ov := srv.Overlay()
			var after uint64
			if snap := ov.Snapshot(); snap != nil {
				after = snap.Generation
			}
			ov.Schedule(true)
			if _, err := ov.WaitPass(ctx, after); err != nil {
				fmt.Fprintf(os.Stderr, "Error waiting for overlay: %v\n", err)
				os.Exit(1)
			}
			img, err := srv.Capture().Capture(ctx, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error capturing: %v\n", err)
				os.Exit(1)
			}

			out, _ := cmd.Flags().GetString("output")
			if err := os.WriteFile(out, img.Data, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
				os.Exit(1)
			}
			fmt.Printf("Captured %dx%d to %s\n", img.Width, img.Height, out)
		}),
	}
	captureCmd.Flags().StringP("output", "o", "warroom.png", "Output PNG file")
	captureCmd.Flags().StringP("scenario", "s", "", "YAML scenario to load before capturing")
	captureCmd.Flags().Duration("timeout", 30*time.Second, "Maximum time to wait for geocoding and capture")
	cli.Root().AddCommand(captureCmd)

	cli.Run()
}
