package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"reeltrack/models"
)

func TestSearchParsesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "blade runner", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Write([]byte(`{
			"page": 1,
			"results": [
				{"id": 78, "title": "Blade Runner", "vote_average": 7.9},
				{"id": 335984, "title": "Blade Runner 2049", "vote_average": 7.5}
			],
			"total_pages": 1,
			"total_results": 2
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	page, err := client.Search(context.Background(), models.MediaTypeMovie, "blade runner", 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 2)
	assert.Equal(t, int64(78), page.Results[0].ID)
	assert.Equal(t, "Blade Runner", page.Results[0].Title)
	assert.Equal(t, 2, page.TotalResults)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Popular(context.Background(), models.MediaTypeMovie, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetriesTakeLimiterTokens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	// One token up front, then one every 600ms: the retry attempt has to
	// wait for the limiter, not just the backoff delay.
	client.limiter = rate.NewLimiter(rate.Every(600*time.Millisecond), 1)

	start := time.Now()
	_, err := client.Popular(context.Background(), models.MediaTypeMovie, 1)
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond,
		"retry attempt should have waited for a limiter token")
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Details(context.Background(), models.MediaTypeMovie, 999999)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetailsServedFromCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"id": 603, "title": "The Matrix"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	ctx := context.Background()

	first, err := client.Details(ctx, models.MediaTypeMovie, 603)
	require.NoError(t, err)
	second, err := client.Details(ctx, models.MediaTypeMovie, 603)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should hit the cache")
}

func TestTrendingDefaultsToWeek(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trending/all/week", r.URL.Path)
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Trending(context.Background(), "all", "")
	require.NoError(t, err)
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", ImageURL("/poster.jpg", "w500"))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/poster.jpg", ImageURL("/poster.jpg", ""))
	assert.Equal(t, "", ImageURL("", "w500"))
}
