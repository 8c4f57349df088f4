// Package omdb is a minimal client for the OMDB API, used only to look up
// IMDB ratings by IMDB id.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://www.omdbapi.com"

// retryAfterFallback is used when a 429 response carries no Retry-After
// header.
const retryAfterFallback = 2 * time.Second

type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("omdb: unexpected status %d", e.Status)
}

// ErrNoRating means the lookup succeeded but OMDB holds no rating for the
// title. Callers treat this as a valid negative, not a failure.
var ErrNoRating = errors.New("omdb: no rating available")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger.With().Str("component", "omdb").Logger(),
		sleep:   sleepCtx,
	}
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

func NewClientWithBaseURL(baseURL, apiKey string, logger zerolog.Logger) *Client {
	c := NewClient(apiKey, logger)
	c.baseURL = baseURL
	return c
}

type ratingResponse struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	IMDBRating string `json:"imdbRating"`
}

// fetch performs one lookup, retrying on 429 until upstream lets it through.
func (c *Client) fetch(ctx context.Context, apiKey, imdbID string) (ratingResponse, error) {
	q := url.Values{"apikey": {apiKey}, "i": {imdbID}}
	reqURL := c.baseURL + "/?" + q.Encode()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return ratingResponse{}, errors.Wrap(err, "build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return ratingResponse{}, errors.Wrapf(err, "GET omdb %s", imdbID)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Warn().Dur("wait", wait).Str("imdb_id", imdbID).Msg("rate limited upstream, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return ratingResponse{}, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return ratingResponse{}, &APIError{Status: resp.StatusCode}
		}

		var body ratingResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return ratingResponse{}, errors.Wrap(err, "decode omdb response")
		}
		return body, nil
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

// Rating looks up the IMDB rating for a title. ErrNoRating is returned when
// OMDB does not know the title or carries "N/A" for it.
func (c *Client) Rating(ctx context.Context, imdbID string) (float64, error) {
	body, err := c.fetch(ctx, c.apiKey, imdbID)
	if err != nil {
		return 0, err
	}

	if body.Response == "False" {
		c.logger.Debug().Str("imdb_id", imdbID).Str("error", body.Error).Msg("no omdb record")
		return 0, ErrNoRating
	}
	if body.IMDBRating == "" || body.IMDBRating == "N/A" {
		return 0, ErrNoRating
	}

	rating, err := strconv.ParseFloat(body.IMDBRating, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse rating %q", body.IMDBRating)
	}
	return rating, nil
}

// Test verifies an API key against a known title.
func (c *Client) Test(ctx context.Context, apiKey string) error {
	body, err := c.fetch(ctx, apiKey, "tt0111161")
	if err != nil {
		return err
	}
	if body.Response == "False" {
		return errors.Errorf("omdb: key rejected: %s", body.Error)
	}
	return nil
}
