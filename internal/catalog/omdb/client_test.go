package omdb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithBaseURL(server.URL, "key", zerolog.Nop())
}

func TestRatingParsesValue(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tt0903747", r.URL.Query().Get("i"))
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `{"Response":"True","imdbRating":"9.5"}`)
	})

	rating, err := client.Rating(context.Background(), "tt0903747")
	require.NoError(t, err)
	require.InDelta(t, 9.5, rating, 0.001)
}

func TestRatingTreatsNAAsValidNegative(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"rating not available", `{"Response":"True","imdbRating":"N/A"}`},
		{"title unknown", `{"Response":"False","Error":"Movie not found!"}`},
		{"empty rating", `{"Response":"True","imdbRating":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})
			_, err := client.Rating(context.Background(), "tt0000001")
			require.ErrorIs(t, err, ErrNoRating)
		})
	}
}

func TestRatingRetriesWhenRateLimited(t *testing.T) {
	var calls int32
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"Response":"True","imdbRating":"8.2"}`)
	})

	var waited time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	rating, err := client.Rating(context.Background(), "tt0000001")
	require.NoError(t, err)
	require.InDelta(t, 8.2, rating, 0.001)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.Equal(t, 3*time.Second, waited, "Retry-After header must be honored")
}

func TestRatingUsesFallbackDelayWhenRateLimited(t *testing.T) {
	var calls int32
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"Response":"True","imdbRating":"7.1"}`)
	})

	var waited time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	_, err := client.Rating(context.Background(), "tt0000001")
	require.NoError(t, err)
	require.Equal(t, retryAfterFallback, waited)
}

func TestRatingSurfacesServerErrors(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Rating(context.Background(), "tt0000001")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestKeyValidation(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") == "good" {
			fmt.Fprint(w, `{"Response":"True","imdbRating":"9.3"}`)
			return
		}
		fmt.Fprint(w, `{"Response":"False","Error":"Invalid API key!"}`)
	})

	require.NoError(t, client.Test(context.Background(), "good"))
	require.Error(t, client.Test(context.Background(), "bad"))
}
