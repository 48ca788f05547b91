package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeff-ai/jeff-api/internal/logger"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

type WeatherQuery struct {
	Lat   string
	Lon   string
	Lang  string
	Units string
}

// Location is one geocoding match.
type Location struct {
	Name       string            `json:"name"`
	LocalNames map[string]string `json:"local_names,omitempty"`
	Lat        float64           `json:"lat"`
	Lon        float64           `json:"lon"`
	Country    string            `json:"country"`
	State      string            `json:"state,omitempty"`
}

type WeatherProvider interface {
	// Current returns the provider's forecast document untouched.
	Current(ctx context.Context, q WeatherQuery) (json.RawMessage, error)
	Geocode(ctx context.Context, query string, limit int) ([]Location, error)
}

type OpenWeatherClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

func NewOpenWeatherClient(apiKey, baseURL string, log *logger.Logger) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = openWeatherBaseURL
	}
	return &OpenWeatherClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With("client", "openweather"),
	}
}

func (c *OpenWeatherClient) Current(ctx context.Context, q WeatherQuery) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("lat", q.Lat)
	params.Set("lon", q.Lon)
	params.Set("exclude", "minutely")
	params.Set("lang", q.Lang)
	params.Set("units", q.Units)

	raw, err := c.get(ctx, "/data/3.0/onecall", params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("openweather onecall: invalid JSON body")
	}
	return raw, nil
}

func (c *OpenWeatherClient) Geocode(ctx context.Context, query string, limit int) ([]Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	raw, err := c.get(ctx, "/geo/1.0/direct", params)
	if err != nil {
		return nil, err
	}
	locations := []Location{}
	if err := json.Unmarshal(raw, &locations); err != nil {
		return nil, fmt.Errorf("openweather geocode decode error: %w", err)
	}
	return locations, nil
}

func (c *OpenWeatherClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("appid", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("OpenWeather API responded with status: %d", resp.StatusCode)
	}
	return raw, nil
}
