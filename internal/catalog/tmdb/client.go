// Package tmdb is a typed client for The Movie Database REST API, the source
// of the movie catalog.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

const retryAfterFallback = 2 * time.Second

var ErrNotFound = errors.New("tmdb: not found")

type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tmdb: unexpected status %d for %s", e.Status, e.URL)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	genreMu  sync.Mutex
	genreMap map[int64]string

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client paced at 5 requests per second, well under the
// upstream allowance.
func NewClient(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:  logger.With().Str("component", "tmdb").Logger(),
		sleep:   sleepCtx,
	}
}

func NewClientWithBaseURL(baseURL, apiKey string, logger zerolog.Logger) *Client {
	c := NewClient(apiKey, logger)
	c.baseURL = baseURL
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + query.Encode()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "GET %s", path)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return errors.Wrapf(err, "decode %s", path)
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Warn().Dur("wait", wait).Str("path", path).Msg("rate limited upstream, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &APIError{Status: resp.StatusCode, URL: path}
		}
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return retryAfterFallback
}

// Popular returns one page of the popularity chart.
func (c *Client) Popular(ctx context.Context, page int) (MoviePage, error) {
	var out MoviePage
	q := url.Values{"page": {strconv.Itoa(page)}}
	err := c.get(ctx, "/movie/popular", q, &out)
	return out, err
}

func (c *Client) TopRated(ctx context.Context, page int) (MoviePage, error) {
	var out MoviePage
	q := url.Values{"page": {strconv.Itoa(page)}}
	err := c.get(ctx, "/movie/top_rated", q, &out)
	return out, err
}

// Discover returns one page of well-voted movies released inside the
// [fromYear, toYear] window.
func (c *Client) Discover(ctx context.Context, fromYear, toYear, page int) (MoviePage, error) {
	var out MoviePage
	q := url.Values{
		"page":                     {strconv.Itoa(page)},
		"sort_by":                  {"vote_count.desc"},
		"primary_release_date.gte": {fmt.Sprintf("%d-01-01", fromYear)},
		"primary_release_date.lte": {fmt.Sprintf("%d-12-31", toYear)},
		"vote_count.gte":           {"100"},
	}
	err := c.get(ctx, "/discover/movie", q, &out)
	return out, err
}

// Changes returns one page of movie ids changed between start and end, both
// formatted YYYY-MM-DD.
func (c *Client) Changes(ctx context.Context, start, end string, page int) (ChangesPage, error) {
	var out ChangesPage
	q := url.Values{
		"start_date": {start},
		"end_date":   {end},
		"page":       {strconv.Itoa(page)},
	}
	err := c.get(ctx, "/movie/changes", q, &out)
	return out, err
}

func (c *Client) MovieDetails(ctx context.Context, id int64) (MovieDetails, error) {
	var out MovieDetails
	err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &out)
	return out, err
}

// GenreMap returns genre id to name, fetched once and cached for the client's
// lifetime.
func (c *Client) GenreMap(ctx context.Context) (map[int64]string, error) {
	c.genreMu.Lock()
	defer c.genreMu.Unlock()
	if c.genreMap != nil {
		return c.genreMap, nil
	}

	var out struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &out); err != nil {
		return nil, err
	}

	m := make(map[int64]string, len(out.Genres))
	for _, g := range out.Genres {
		m[g.ID] = g.Name
	}
	c.genreMap = m
	return m, nil
}

// TestKey verifies the configured key by hitting the lightest endpoint.
func (c *Client) TestKey(ctx context.Context) error {
	var out struct {
		Images json.RawMessage `json:"images"`
	}
	return c.get(ctx, "/configuration", nil, &out)
}
