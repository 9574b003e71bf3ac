// Package catalog wraps the external media catalog API (TMDB-compatible).
// The catalog is read-only: this client fetches discovery listings, search
// results and per-title details, and nothing here writes user state.
package catalog

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

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"reeltrack/models"
)

const (
	defaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p"

	detailsCacheTTL = 6 * time.Hour
)

// Client handles catalog API interactions.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter

	// Details change rarely; cache them to avoid hammering the API when a
	// user flips between the same titles.
	cacheMu sync.RWMutex
	cache   map[string]*detailsCacheEntry
}

type detailsCacheEntry struct {
	details   *Details
	fetchedAt time.Time
}

// NewClient creates a catalog client. An empty baseURL selects the public
// TMDB endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		// TMDB allows ~50 req/s; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(20), 40),
		cache:   make(map[string]*detailsCacheEntry),
	}
}

// HasCredentials checks if the client has an API key configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// get performs one rate-limited GET with retries on transient failures.
// Client errors (4xx) are not retried. Every attempt, retries included,
// takes a limiter token so the retry loop cannot bypass the rate limit.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + query.Encode()

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(fmt.Errorf("rate limit wait: %w", err))
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("catalog api request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				respBody, _ := io.ReadAll(resp.Body)
				err := fmt.Errorf("catalog request failed: %s - %s", resp.Status, string(respBody))
				if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
					return err
				}
				return retry.Unrecoverable(err)
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(250*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Trending returns trending titles. mediaType is "movie", "tv" or "all";
// window is "day" or "week".
func (c *Client) Trending(ctx context.Context, mediaType, window string) (*Page, error) {
	if window == "" {
		window = "week"
	}
	var page Page
	if err := c.get(ctx, fmt.Sprintf("/trending/%s/%s", mediaType, window), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Popular returns the popular listing for a media type.
func (c *Client) Popular(ctx context.Context, mediaType models.MediaType, page int) (*Page, error) {
	return c.listing(ctx, fmt.Sprintf("/%s/popular", mediaType), page)
}

// TopRated returns the top-rated listing for a media type.
func (c *Client) TopRated(ctx context.Context, mediaType models.MediaType, page int) (*Page, error) {
	return c.listing(ctx, fmt.Sprintf("/%s/top_rated", mediaType), page)
}

func (c *Client) listing(ctx context.Context, path string, pageNum int) (*Page, error) {
	query := url.Values{}
	if pageNum > 0 {
		query.Set("page", strconv.Itoa(pageNum))
	}
	var page Page
	if err := c.get(ctx, path, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search searches a single media type.
func (c *Client) Search(ctx context.Context, mediaType models.MediaType, queryText string, pageNum int) (*Page, error) {
	query := url.Values{}
	query.Set("query", queryText)
	if pageNum > 0 {
		query.Set("page", strconv.Itoa(pageNum))
	}
	var page Page
	if err := c.get(ctx, fmt.Sprintf("/search/%s", mediaType), query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchMulti searches movies, TV shows and people in one call. Results
// carry media_type so callers can filter.
func (c *Client) SearchMulti(ctx context.Context, queryText string, pageNum int) (*Page, error) {
	query := url.Values{}
	query.Set("query", queryText)
	if pageNum > 0 {
		query.Set("page", strconv.Itoa(pageNum))
	}
	var page Page
	if err := c.get(ctx, "/search/multi", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Details returns the full record for one title, served from a short-lived
// cache when possible.
func (c *Client) Details(ctx context.Context, mediaType models.MediaType, id int64) (*Details, error) {
	cacheKey := string(mediaType) + ":" + strconv.FormatInt(id, 10)

	c.cacheMu.RLock()
	if entry, ok := c.cache[cacheKey]; ok && time.Since(entry.fetchedAt) < detailsCacheTTL {
		c.cacheMu.RUnlock()
		return entry.details, nil
	}
	c.cacheMu.RUnlock()

	var details Details
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", mediaType, id), nil, &details); err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[cacheKey] = &detailsCacheEntry{details: &details, fetchedAt: time.Now()}
	c.cacheMu.Unlock()

	return &details, nil
}

// Credits returns cast and crew for one title.
func (c *Client) Credits(ctx context.Context, mediaType models.MediaType, id int64) (*Credits, error) {
	var credits Credits
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/credits", mediaType, id), nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// Videos returns trailers and clips for one title.
func (c *Client) Videos(ctx context.Context, mediaType models.MediaType, id int64) (*Videos, error) {
	var videos Videos
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/videos", mediaType, id), nil, &videos); err != nil {
		return nil, err
	}
	return &videos, nil
}

// Similar returns titles similar to the given one.
func (c *Client) Similar(ctx context.Context, mediaType models.MediaType, id int64, pageNum int) (*Page, error) {
	return c.listing(ctx, fmt.Sprintf("/%s/%d/similar", mediaType, id), pageNum)
}

// Recommendations returns recommendations based on the given title.
func (c *Client) Recommendations(ctx context.Context, mediaType models.MediaType, id int64, pageNum int) (*Page, error) {
	return c.listing(ctx, fmt.Sprintf("/%s/%d/recommendations", mediaType, id), pageNum)
}

// ImageURL builds a full poster/backdrop URL for a catalog image path.
// Returns "" for an empty path.
func ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "original"
	}
	return imageBaseURL + "/" + size + path
}
