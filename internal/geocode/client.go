package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joeblew999/plat-warroom/internal/geo"
)

// DefaultEndpoint is the Open-Meteo geocoding search API.
const DefaultEndpoint = "https://geocoding-api.open-meteo.com/v1/search"

// HTTPClient looks labels up against an Open-Meteo compatible endpoint and
// takes the first result.
type HTTPClient struct {
	Endpoint string
	HTTP     *http.Client
}

// NewHTTPClient returns a client for endpoint, or DefaultEndpoint when empty.
func NewHTTPClient(endpoint string) *HTTPClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPClient{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: DefaultTimeout},
	}
}

type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
	} `json:"results"`
}

// Lookup implements Client.
func (c *HTTPClient) Lookup(ctx context.Context, label string) (geo.Coordinates, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return geo.Coordinates{}, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("name", label)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return geo.Coordinates{}, err
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return geo.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return geo.Coordinates{}, fmt.Errorf("geocoding service returned %s", resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Results) == 0 {
		return geo.Coordinates{}, ErrNoResults
	}
	first := body.Results[0]
	return geo.Coordinates{Latitude: first.Latitude, Longitude: first.Longitude}, nil
}
