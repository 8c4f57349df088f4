// Package sonarr talks to a Sonarr instance's v3 API for library mirroring
// and series acquisition.
package sonarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/fluxarr/fluxarr/internal/models"
)

type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sonarr: unexpected status %d for %s", e.Status, e.Path)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg models.ArrConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &APIError{Status: resp.StatusCode, Path: path}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decode %s", path)
}

// Test checks connectivity and key validity.
func (c *Client) Test(ctx context.Context) error {
	var status struct {
		Version string `json:"version"`
	}
	return c.do(ctx, http.MethodGet, "/api/v3/system/status", nil, &status)
}

// Series lists every series the instance manages.
func (c *Client) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.do(ctx, http.MethodGet, "/api/v3/series", nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// LookupByTVDB resolves a TVDB id into an addable series record.
func (c *Client) LookupByTVDB(ctx context.Context, tvdbID int64) (Series, error) {
	var results []Series
	path := fmt.Sprintf("/api/v3/series/lookup?term=tvdb:%d", tvdbID)
	if err := c.do(ctx, http.MethodGet, path, nil, &results); err != nil {
		return Series{}, err
	}
	if len(results) == 0 {
		return Series{}, errors.Errorf("sonarr: no series found for tvdb %d", tvdbID)
	}
	return results[0], nil
}

// Add submits a series for monitoring and search.
func (c *Client) Add(ctx context.Context, req AddRequest) (Series, error) {
	var added Series
	if err := c.do(ctx, http.MethodPost, "/api/v3/series", req, &added); err != nil {
		return Series{}, err
	}
	return added, nil
}
