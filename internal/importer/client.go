package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ClipPilot/internal/domain"
)

// Range is an explicit chapter range for an import request. Bounds are
// passed through exactly as the user gave them; a start greater than end is
// accepted as-is.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Preview is the backend's response to a preview request.
type Preview struct {
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	Total       int    `json:"total_chapters"`
	RangeStart  int    `json:"range_start"`
	RangeEnd    int    `json:"range_end"`
}

// Result is the backend's response to an import request.
type Result struct {
	Title    string `json:"title"`
	Imported int    `json:"imported_count"`
	Range    string `json:"range"`
}

// Client talks to the remote import backend. Connection failures surface as
// domain.ErrBackendUnreachable; transport-level success with a reported
// failure surfaces as domain.ErrBackendError.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient wires the backend base URL (e.g. "http://localhost:3000/api").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type request struct {
	URL   string `json:"url"`
	Mode  string `json:"mode"`
	Range *Range `json:"range,omitempty"`
}

type envelope struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error"`
	Data     json.RawMessage `json:"data"`
	Title    string          `json:"title"`
	Imported int             `json:"imported_count"`
	Range    string          `json:"range"`
}

// Preview asks the backend to inspect a source URL without importing.
func (c *Client) Preview(ctx context.Context, url string) (Preview, error) {
	env, err := c.post(ctx, request{URL: url, Mode: "preview"})
	if err != nil {
		return Preview{}, err
	}

	var preview Preview
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &preview); err != nil {
			return Preview{}, fmt.Errorf("%w: malformed preview payload: %v", domain.ErrBackendError, err)
		}
	}
	if preview.RangeEnd == 0 {
		preview.RangeEnd = preview.Total
	}
	return preview, nil
}

// Import executes an import for a source URL. A nil range imports the full
// detected range.
func (c *Client) Import(ctx context.Context, url string, rng *Range) (Result, error) {
	env, err := c.post(ctx, request{URL: url, Mode: "import", Range: rng})
	if err != nil {
		return Result{}, err
	}
	return Result{Title: env.Title, Imported: env.Imported, Range: env.Range}, nil
}

func (c *Client) post(ctx context.Context, payload request) (envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bot/import", bytes.NewReader(body))
	if err != nil {
		return envelope{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return envelope{}, fmt.Errorf("%w: server returned %s: %s",
			domain.ErrBackendError, resp.Status, strings.TrimSpace(string(detail)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, fmt.Errorf("%w: malformed response: %v", domain.ErrBackendError, err)
	}
	if !env.Success {
		return envelope{}, fmt.Errorf("%w: %s", domain.ErrBackendError, env.Error)
	}

	return env, nil
}
