package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// HTTPGeocoder talks to a Nominatim-compatible reverse endpoint:
// GET {base}?format=jsonv2&lat=..&lon=.. -> {"display_name": "..."}.
type HTTPGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewHTTPGeocoder(baseURL string, timeout time.Duration) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL:   baseURL,
		userAgent: "expense-tracker/1.0",
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if body.DisplayName == "" {
		return "", fmt.Errorf("geocoder returned no address")
	}
	return body.DisplayName, nil
}
