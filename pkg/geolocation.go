package frames

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GeoPosition is a position with the altitude in metres.
type GeoPosition struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Geolocator returns the position of a platform at a Unix time.
type Geolocator interface {
	Position(ctx context.Context, unixTime int64) (GeoPosition, error)
}

// HTTPGeolocator queries a position service with ?unixts=<time>. The
// response is {"position": {"lat": .., "lon": .., "alt": ..}} with the
// altitude in km.
type HTTPGeolocator struct {
	URL    string
	Client *http.Client
}

func NewHTTPGeolocator(baseURL string, timeout time.Duration) *HTTPGeolocator {
	return &HTTPGeolocator{URL: baseURL, Client: &http.Client{Timeout: timeout}}
}

type geoResponse struct {
	Position *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
		Alt float64 `json:"alt"`
	} `json:"position"`
}

func (g *HTTPGeolocator) Position(ctx context.Context, unixTime int64) (GeoPosition, error) {
	u, err := url.Parse(g.URL)
	if err != nil {
		return GeoPosition{}, fmt.Errorf("invalid geolocation URL %q: %w", g.URL, err)
	}
	q := u.Query()
	q.Set("unixts", strconv.FormatInt(unixTime, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return GeoPosition{}, err
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return GeoPosition{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GeoPosition{}, fmt.Errorf("geolocation service returned %s: %s", resp.Status, body)
	}

	var doc geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return GeoPosition{}, fmt.Errorf("invalid geolocation response: %w", err)
	}
	if doc.Position == nil {
		return GeoPosition{}, fmt.Errorf("geolocation response has no position")
	}
	return GeoPosition{
		Latitude:  doc.Position.Lat,
		Longitude: doc.Position.Lon,
		Altitude:  1000 * doc.Position.Alt,
	}, nil
}
