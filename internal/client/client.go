// Package client talks to the gallery API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/visions/internal/model"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string // "error" field of the body, when present
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("client: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("client: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the /api/images routes of one server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:3000".
// A nil httpClient gets a default with a 10s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// List fetches every image, newest first.
func (c *Client) List(ctx context.Context) ([]model.Image, error) {
	images := make([]model.Image, 0)
	if err := c.do(ctx, http.MethodGet, "/api/images", nil, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Get fetches one image.
func (c *Client) Get(ctx context.Context, id int64) (*model.Image, error) {
	var img model.Image
	if err := c.do(ctx, http.MethodGet, imagePath(id), nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Create adds an image and returns it with the id the server assigned.
func (c *Client) Create(ctx context.Context, in model.ImageInput) (*model.Image, error) {
	var img model.Image
	if err := c.do(ctx, http.MethodPost, "/api/images", in, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Update replaces url, title and description of image id.
func (c *Client) Update(ctx context.Context, id int64, in model.ImageInput) error {
	return c.do(ctx, http.MethodPut, imagePath(id), in, nil)
}

// Delete removes image id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, imagePath(id), nil, nil)
}

func imagePath(id int64) string {
	return fmt.Sprintf("/api/images/%d", id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload) == nil {
			serr.Message = payload.Error
		}
		return serr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}
