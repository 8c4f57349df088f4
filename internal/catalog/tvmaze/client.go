// Package tvmaze is a typed client for the TVMaze REST API, the source of the
// show catalog.
package tvmaze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fluxarr/fluxarr/internal/ratelimit"
)

const defaultBaseURL = "https://api.tvmaze.com"

// retryAfterFallback is used when a 429 response carries no Retry-After
// header.
const retryAfterFallback = 5 * time.Second

// ErrNotFound marks a 404 from upstream. For the paged shows index it means
// the end of the catalog rather than an error.
var ErrNotFound = errors.New("tvmaze: not found")

// APIError is any non-2xx response other than 404.
type APIError struct {
	Status int
	URL    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tvmaze: unexpected status %d for %s", e.Status, e.URL)
}

type Client struct {
	baseURL string
	http    *http.Client
	limiter *ratelimit.SlidingWindow
	logger  zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(limiter *ratelimit.SlidingWindow, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: limiter,
		logger:  logger.With().Str("component", "tvmaze").Logger(),
		sleep:   sleepCtx,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(baseURL string, limiter *ratelimit.SlidingWindow, logger zerolog.Logger) *Client {
	c := NewClient(limiter, logger)
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

// get performs one rate-limited request, retrying on 429 until upstream lets
// it through. The out parameter is left untouched on 204.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path

	for {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "GET %s", url)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return errors.Wrapf(err, "decode %s", url)
			}
			return nil

		case resp.StatusCode == http.StatusNoContent:
			resp.Body.Close()
			return nil

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Warn().Dur("wait", wait).Str("url", url).Msg("rate limited upstream, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		default:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return &APIError{Status: resp.StatusCode, URL: url}
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

// ShowsPage fetches one page of the paged show index. ErrNotFound signals the
// end of the catalog.
func (c *Client) ShowsPage(ctx context.Context, page int) ([]Show, error) {
	var shows []Show
	if err := c.get(ctx, fmt.Sprintf("/shows?page=%d", page), &shows); err != nil {
		return nil, err
	}
	return shows, nil
}

func (c *Client) Show(ctx context.Context, id int64) (Show, error) {
	var show Show
	if err := c.get(ctx, fmt.Sprintf("/shows/%d", id), &show); err != nil {
		return Show{}, err
	}
	return show, nil
}

// Updates returns show id to last-modified epoch for the given window
// ("day", "week", "month").
func (c *Client) Updates(ctx context.Context, since string) (map[string]int64, error) {
	updates := make(map[string]int64)
	if err := c.get(ctx, "/updates/shows?since="+since, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) LookupByIMDB(ctx context.Context, imdbID string) (Show, error) {
	var show Show
	if err := c.get(ctx, "/lookup/shows?imdb="+imdbID, &show); err != nil {
		return Show{}, err
	}
	return show, nil
}
