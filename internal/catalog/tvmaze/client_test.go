package tvmaze

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fluxarr/fluxarr/internal/ratelimit"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := ratelimit.NewSlidingWindow(1000, time.Second)
	client := NewClientWithBaseURL(server.URL, limiter, zerolog.Nop())
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client
}

func TestShowsPageEndOfCatalog(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.ShowsPage(context.Background(), 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRateLimitedRequestRetriesAfterBackoff(t *testing.T) {
	var calls int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id": 42, "name": "Lost", "status": "Ended"}`))
	}))

	var waited time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	show, err := client.Show(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), show.ID)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, time.Second, waited, "Retry-After header must be honored")
}

func TestRateLimitedRequestUsesFallbackDelay(t *testing.T) {
	var calls int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id": 1, "name": "Test", "status": "Running"}`))
	}))

	var waited time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	_, err := client.Show(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, retryAfterFallback, waited)
}

func TestServerErrorReturnsTypedAPIError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Show(context.Background(), 7)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestLookupByIMDB(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lookup/shows", r.URL.Path)
		require.Equal(t, "tt0944947", r.URL.Query().Get("imdb"))
		w.Write([]byte(`{"id": 82, "name": "Game of Thrones", "status": "Ended"}`))
	}))

	show, err := client.LookupByIMDB(context.Background(), "tt0944947")
	require.NoError(t, err)
	require.Equal(t, int64(82), show.ID)

	missing := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	_, err = missing.LookupByIMDB(context.Background(), "tt0000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatesParsesFeed(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "day", r.URL.Query().Get("since"))
		w.Write([]byte(`{"1": 1600000000, "250": 1600000500}`))
	}))

	updates, err := client.Updates(context.Background(), "day")
	require.NoError(t, err)
	require.Len(t, updates, 2)
	require.Equal(t, int64(1600000500), updates["250"])
}
