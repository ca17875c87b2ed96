package calendar

import (
	"bytes"
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

const defaultTimeout = 5 * time.Second

// HTTPStatusError captures a non-2xx answer from the calendar endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("calendar: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// HTTPBackend talks to the calendar endpoint. Every request carries the
// collection key as the calenderid query parameter.
type HTTPBackend struct {
	endpoint   string
	collection string
	httpClient *http.Client
}

type HTTPOption func(*HTTPBackend)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		b.httpClient = c
	}
}

func NewHTTPBackend(endpoint, collection string, opts ...HTTPOption) (*HTTPBackend, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("calendar: endpoint must not be empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("calendar: parse endpoint: %w", err)
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, errors.New("calendar: collection key must not be empty")
	}
	b := &HTTPBackend{
		endpoint:   endpoint,
		collection: collection,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return b, nil
}

func (b *HTTPBackend) List(ctx context.Context) ([]Appointment, error) {
	u := b.url(nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: create list request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	raw, err := b.do(req, u)
	if err != nil {
		return nil, err
	}

	// Anything that is not a JSON array means "no appointments".
	var out []Appointment
	if err := json.Unmarshal(raw, &out); err != nil {
		var probe any
		if json.Unmarshal(raw, &probe) == nil {
			return []Appointment{}, nil
		}
		return nil, fmt.Errorf("calendar: decode list: %w", err)
	}
	return out, nil
}

func (b *HTTPBackend) Create(ctx context.Context, a Appointment) error {
	a.ID = ""
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("calendar: marshal appointment: %w", err)
	}
	u := b.url(nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("calendar: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := b.do(req, u); err != nil {
		return err
	}
	return nil
}

func (b *HTTPBackend) Delete(ctx context.Context, id ID) error {
	if id == "" {
		return errors.New("calendar: delete requires an id")
	}
	u := b.url(url.Values{"id": {string(id)}})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("calendar: create delete request: %w", err)
	}
	if _, err := b.do(req, u); err != nil {
		return err
	}
	return nil
}

func (b *HTTPBackend) url(extra url.Values) string {
	q := url.Values{"calenderid": {b.collection}}
	for k, v := range extra {
		q[k] = v
	}
	sep := "?"
	if strings.Contains(b.endpoint, "?") {
		sep = "&"
	}
	return b.endpoint + sep + q.Encode()
}

func (b *HTTPBackend) do(req *http.Request, u string) ([]byte, error) {
	res, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: %s request: %w", req.Method, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        u,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("calendar: read response body: %w", err)
	}
	return buf, nil
}
