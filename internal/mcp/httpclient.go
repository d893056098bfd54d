package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/session"
	"github.com/claude/ironlog/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource by calling the IronLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the session and archive live on the remote server (accessed over
// Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// get performs a GET request. A nil body with no error signals 404,
// which callers map to "not there" rather than failure.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*session.View, error) {
	body, err := c.get(ctx, "/api/v1/session", nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		// 404: no session in progress
		return nil, nil
	}

	var view session.View
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("httpclient: decode session: %w", err)
	}
	return &view, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, start, end time.Time, _ int) ([]storage.WorkoutSummary, error) {
	body, err := c.get(ctx, "/api/v1/workouts", timeParams(start, end))
	if err != nil {
		return nil, err
	}

	var workouts []storage.WorkoutSummary
	if err := json.Unmarshal(body, &workouts); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return workouts, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, workoutID uuid.UUID, _ int) (*storage.WorkoutDetail, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+workoutID.String(), nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("httpclient: workout %s not found", workoutID)
	}

	var detail storage.WorkoutDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &detail, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]storage.CatalogEntry, error) {
	body, err := c.get(ctx, "/api/v1/exercises", nil)
	if err != nil {
		return nil, err
	}

	var entries []storage.CatalogEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercises: %w", err)
	}
	return entries, nil
}

func (c *HTTPClient) LastPerformance(ctx context.Context, _ int, exerciseID uuid.UUID) (string, error) {
	body, err := c.get(ctx, "/api/v1/exercises/"+exerciseID.String()+"/last-performance", nil)
	if err != nil {
		return "", err
	}
	if body == nil {
		return "", nil
	}

	var resp struct {
		LastPerformance string `json:"last_performance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("httpclient: decode last performance: %w", err)
	}
	return resp.LastPerformance, nil
}
