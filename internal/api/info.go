package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir    string
	dbOK       bool
	projection string
	cacheTier  string
}

func NewInfoHandler(dataDir string, dbOK bool, projection, cacheTier string) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK, projection: projection, cacheTier: cacheTier}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	DataDir    string   `json:"data_dir" doc:"Data directory path"`
	DB         bool     `json:"db" doc:"Whether database is available"`
	Projection string   `json:"projection" doc:"Base map projection" enum:"mercator,miller"`
	CacheTier  string   `json:"cache_tier" doc:"Persistent geocode cache" enum:"none,duckdb,redis"`
	Features   []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:       "plat-warroom",
		Version:    "0.1.0",
		DataDir:    h.dataDir,
		DB:         h.dbOK,
		Projection: h.projection,
		CacheTier:  h.cacheTier,
		Features:   []string{"overlay", "geocode", "capture", "stream", "duckdb"},
	}}, nil
}
