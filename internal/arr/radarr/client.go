// Package radarr talks to a Radarr instance's v3 API for movie acquisition.
package radarr

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
	return fmt.Sprintf("radarr: unexpected status %d for %s", e.Status, e.Path)
}

// Movie is the subset of the Radarr movie record the app uses.
type Movie struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	TMDBID    int64  `json:"tmdbId"`
	TitleSlug string `json:"titleSlug"`
	Year      int    `json:"year"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"hasFile"`
	Images    []struct {
		CoverType string `json:"coverType"`
		URL       string `json:"url"`
	} `json:"images"`
}

// AddRequest is the POST /api/v3/movie payload.
type AddRequest struct {
	Title            string `json:"title"`
	TMDBID           int64  `json:"tmdbId"`
	TitleSlug        string `json:"titleSlug"`
	QualityProfileID int64  `json:"qualityProfileId"`
	RootFolderPath   string `json:"rootFolderPath"`
	Monitored        bool   `json:"monitored"`
	AddOptions       struct {
		SearchForMovie bool `json:"searchForMovie"`
	} `json:"addOptions"`
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

func (c *Client) Test(ctx context.Context) error {
	var status struct {
		Version string `json:"version"`
	}
	return c.do(ctx, http.MethodGet, "/api/v3/system/status", nil, &status)
}

// LookupByTMDB resolves a TMDB id into an addable movie record.
func (c *Client) LookupByTMDB(ctx context.Context, tmdbID int64) (Movie, error) {
	var movie Movie
	path := fmt.Sprintf("/api/v3/movie/lookup/tmdb?tmdbId=%d", tmdbID)
	if err := c.do(ctx, http.MethodGet, path, nil, &movie); err != nil {
		return Movie{}, err
	}
	if movie.TMDBID == 0 {
		return Movie{}, errors.Errorf("radarr: no movie found for tmdb %d", tmdbID)
	}
	return movie, nil
}

// Add submits a movie for monitoring and search.
func (c *Client) Add(ctx context.Context, lookup Movie, cfg models.ArrConfig) (Movie, error) {
	req := AddRequest{
		Title:            lookup.Title,
		TMDBID:           lookup.TMDBID,
		TitleSlug:        lookup.TitleSlug,
		QualityProfileID: cfg.QualityProfileID,
		RootFolderPath:   cfg.RootFolderPath,
		Monitored:        true,
	}
	req.AddOptions.SearchForMovie = true

	var added Movie
	if err := c.do(ctx, http.MethodPost, "/api/v3/movie", req, &added); err != nil {
		return Movie{}, err
	}
	return added, nil
}
