// Package db owns the DuckDB database used for persistent caches.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the singleton DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}

		dbPath := filepath.Join(duckdbDir, cfg.DBName+".duckdb")
		instance, initErr = sql.Open("duckdb", dbPath)
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// GeocodeStore persists resolved place labels in a DuckDB table.
type GeocodeStore struct {
	db *sql.DB
}

// NewGeocodeStore creates the cache table if needed.
func NewGeocodeStore(ctx context.Context, conn *sql.DB) (*GeocodeStore, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS geocode_cache (
		label     VARCHAR PRIMARY KEY,
		latitude  DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		resolved_at TIMESTAMP DEFAULT current_timestamp
	)`
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("failed to create geocode_cache: %w", err)
	}
	return &GeocodeStore{db: conn}, nil
}

// Get returns the stored coordinates for label.
func (s *GeocodeStore) Get(ctx context.Context, label string) (geo.Coordinates, bool, error) {
	var c geo.Coordinates
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM geocode_cache WHERE label = ?`, label,
	).Scan(&c.Latitude, &c.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Coordinates{}, false, nil
	}
	if err != nil {
		return geo.Coordinates{}, false, fmt.Errorf("failed to read geocode_cache: %w", err)
	}
	return c, true, nil
}

// Put stores c for label. An existing entry is kept.
func (s *GeocodeStore) Put(ctx context.Context, label string, c geo.Coordinates) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache (label, latitude, longitude) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		label, c.Latitude, c.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to write geocode_cache: %w", err)
	}
	return nil
}

// Count returns the number of stored labels.
func (s *GeocodeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM geocode_cache`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Entry is one stored label.
type Entry struct {
	Label       string          `json:"label" doc:"Place label"`
	Coordinates geo.Coordinates `json:"coordinates" doc:"Resolved location"`
	ResolvedAt  time.Time       `json:"resolvedAt" doc:"When the label was first resolved"`
}

// Entries returns up to limit labels, most recent first.
func (s *GeocodeStore) Entries(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, latitude, longitude, resolved_at FROM geocode_cache ORDER BY resolved_at DESC, label LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list geocode_cache: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Label, &e.Coordinates.Latitude, &e.Coordinates.Longitude, &e.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan geocode_cache: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
