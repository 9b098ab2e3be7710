package backend

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

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"settlement-form-backend/config"
	"settlement-form-backend/internal/form"
)

var (
	// ErrNotFound is returned when the backend has no record for a lookup.
	ErrNotFound = errors.New("not found")
	// ErrRejected is returned when the backend refuses a submission.
	ErrRejected = errors.New("rejected by backend")
)

// Client talks to the university REST API. Stable lists are cached.
type Client struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	cache   *cache.Cache
	logger  *zap.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("invalid backend proxy URL, not using a proxy", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger: logger,
	}
}

// Profile returns the identity fields of a student.
func (c *Client) Profile(ctx context.Context, userID string) (form.Profile, error) {
	var p form.Profile
	err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/profile", nil, &p)
	if p.ID == "" {
		p.ID = userID
	}
	return p, err
}

// Faculties lists every faculty.
func (c *Client) Faculties(ctx context.Context) ([]Faculty, error) {
	var out []Faculty
	err := c.cached(ctx, "faculties", "/faculties", nil, &out)
	return out, err
}

// Groups lists the groups of a faculty.
func (c *Client) Groups(ctx context.Context, facultyID string) ([]Group, error) {
	var out []Group
	err := c.cached(ctx, "groups:"+facultyID, "/faculties/"+url.PathEscape(facultyID)+"/groups", nil, &out)
	return out, err
}

// Dormitories lists every dormitory.
func (c *Client) Dormitories(ctx context.Context) ([]Dormitory, error) {
	var out []Dormitory
	err := c.cached(ctx, "dormitories", "/dormitories", nil, &out)
	return out, err
}

// Dormitory fetches one dormitory.
func (c *Client) Dormitory(ctx context.Context, id string) (Dormitory, error) {
	var out Dormitory
	err := c.cached(ctx, "dormitory:"+id, "/dormitories/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Preset fetches the occupancy preset of a dormitory for an academic year.
// It returns ErrNotFound when the dormitory has no preset for that year.
func (c *Client) Preset(ctx context.Context, dormitoryID, academicYear string) (Preset, error) {
	var out Preset
	q := url.Values{"academicYear": {academicYear}}
	err := c.cached(ctx, "preset:"+dormitoryID+":"+academicYear, "/dormitories/"+url.PathEscape(dormitoryID)+"/presets", q, &out)
	return out, err
}

// Reservations lists the reservations of a student. Never cached.
func (c *Client) Reservations(ctx context.Context, userID string) ([]Reservation, error) {
	var out []Reservation
	err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/reservations", nil, &out)
	return out, err
}

// SearchRooms lists rooms with free places. Never cached.
func (c *Client) SearchRooms(ctx context.Context, q RoomQuery) ([]Room, error) {
	var out []Room
	err := c.post(ctx, "/rooms/search", "", q, &out)
	return out, err
}

// SubmitSettlement posts a settlement payload. A refusal by the backend is
// reported as ErrRejected carrying the backend message.
func (c *Client) SubmitSettlement(ctx context.Context, variant, idempotencyKey string, payload map[string]any) error {
	return c.post(ctx, "/settlements/"+url.PathEscape(variant), idempotencyKey, payload, nil)
}

func (c *Client) cached(ctx context.Context, key, path string, query url.Values, out any) error {
	if raw, found := c.cache.Get(key); found {
		return json.Unmarshal(raw.([]byte), out)
	}
	raw, err := c.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	c.cache.SetDefault(key, raw)
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	raw, err := c.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	raw, err := c.do(ctx, http.MethodPost, path, nil, idempotencyKey, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// do performs one request and unwraps the response envelope, returning the
// raw data field.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, idempotencyKey string, body any) (json.RawMessage, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	decodeErr := json.Unmarshal(respBody, &apiResp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && method == http.MethodPost:
		return nil, fmt.Errorf("%w: %s", ErrRejected, backendMessage(apiResp, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("received non-2xx status code %d from %s", resp.StatusCode, path)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", decodeErr)
	}
	if apiResp.Code != 0 {
		if method == http.MethodPost {
			return nil, fmt.Errorf("%w: %s", ErrRejected, backendMessage(apiResp, resp.StatusCode))
		}
		return nil, fmt.Errorf("API returned non-zero application code %d: %s", apiResp.Code, apiResp.Message)
	}
	if len(apiResp.Data) == 0 || string(apiResp.Data) == "null" {
		if method == http.MethodGet {
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
		}
		return nil, nil
	}
	return apiResp.Data, nil
}

func backendMessage(r apiResponse, status int) string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("status %d", status)
}
