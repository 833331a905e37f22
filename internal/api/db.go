package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-warroom/internal/db"
)

// DBHandler exposes the DuckDB database that backs the geocode cache.
type DBHandler struct {
	db    *sql.DB
	cache *db.GeocodeStore
}

// NewDBHandler creates a new database handler. Either argument may be nil.
func NewDBHandler(conn *sql.DB, cache *db.GeocodeStore) *DBHandler {
	return &DBHandler{db: conn, cache: cache}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("cache"))
	huma.Get(api, "/api/v1/geocode/cache", h.ListCache, huma.OperationTags("cache"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	out := &TablesOutput{}
	out.Body.Tables = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			out.Body.Tables = append(out.Body.Tables, name)
		}
	}
	return out, nil
}

// CacheInput pages through the geocode cache.
type CacheInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Maximum entries"`
}

// CacheOutput lists persisted geocode results.
type CacheOutput struct {
	Body struct {
		Count   int        `json:"count" doc:"Total stored labels"`
		Entries []db.Entry `json:"entries" doc:"Most recently resolved labels first"`
	}
}

// ListCache returns persisted geocode results.
func (h *DBHandler) ListCache(ctx context.Context, input *CacheInput) (*CacheOutput, error) {
	if h.cache == nil {
		return nil, huma.Error503ServiceUnavailable("Geocode cache not stored in DuckDB")
	}
	n, err := h.cache.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to count cache", err)
	}
	entries, err := h.cache.Entries(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to read cache", err)
	}
	out := &CacheOutput{}
	out.Body.Count = n
	out.Body.Entries = entries
	return out, nil
}
