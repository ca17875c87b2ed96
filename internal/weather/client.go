package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Day is one entry of the forecast list, in the order the service returns it.
type Day struct {
	Name        string `json:"day"`
	Weather     string `json:"weather"`
	Temperature Range  `json:"temperature"`
}

type Range struct {
	Min json.Number `json:"min"`
	Max json.Number `json:"max"`
}

type forecastResponse struct {
	Forecast []Day `json:"forecast"`
}

// ErrNoForecast is returned when the service answers without a forecast list.
var ErrNoForecast = errors.New("weather: no forecast in response")

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("weather: endpoint must not be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return c, nil
}

// Forecast posts the city as the "place" form field and returns the days the
// service knows about.
func (c *Client) Forecast(ctx context.Context, city string) ([]Day, error) {
	form := url.Values{"place": {city}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("weather: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("weather: unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(buf)))
	}

	var out forecastResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("weather: decode: %w", err)
	}
	if len(out.Forecast) == 0 {
		return nil, ErrNoForecast
	}
	return out.Forecast, nil
}
