package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc"

	"reeltrack/models"
	"reeltrack/services/catalog"
	"reeltrack/utils/match"
)

// catalogAPI is the slice of the catalog client the handler uses.
type catalogAPI interface {
	Trending(ctx context.Context, mediaType, window string) (*catalog.Page, error)
	Popular(ctx context.Context, mediaType models.MediaType, page int) (*catalog.Page, error)
	TopRated(ctx context.Context, mediaType models.MediaType, page int) (*catalog.Page, error)
	Search(ctx context.Context, mediaType models.MediaType, query string, page int) (*catalog.Page, error)
	SearchMulti(ctx context.Context, query string, page int) (*catalog.Page, error)
	Details(ctx context.Context, mediaType models.MediaType, id int64) (*catalog.Details, error)
	Credits(ctx context.Context, mediaType models.MediaType, id int64) (*catalog.Credits, error)
	Videos(ctx context.Context, mediaType models.MediaType, id int64) (*catalog.Videos, error)
	Similar(ctx context.Context, mediaType models.MediaType, id int64, page int) (*catalog.Page, error)
	Recommendations(ctx context.Context, mediaType models.MediaType, id int64, page int) (*catalog.Page, error)
}

var _ catalogAPI = (*catalog.Client)(nil)

// CatalogHandler proxies the external media catalog to the frontend.
type CatalogHandler struct {
	catalog catalogAPI
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(api catalogAPI) *CatalogHandler {
	return &CatalogHandler{catalog: api}
}

// Register attaches catalog routes to the router.
func (h *CatalogHandler) Register(r *mux.Router) {
	r.HandleFunc("/catalog/home", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/catalog/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/catalog/trending/{mediaType}", h.Trending).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/popular", h.Popular).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/top_rated", h.TopRated).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/{id}", h.Details).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/{id}/credits", h.Credits).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/{id}/videos", h.Videos).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/{id}/similar", h.Similar).Methods(http.MethodGet)
	r.HandleFunc("/catalog/{mediaType}/{id}/recommendations", h.Recommendations).Methods(http.MethodGet)
}

func pageParam(r *http.Request) int {
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 1
}

func mediaTypeVar(vars map[string]string) (models.MediaType, bool) {
	mediaType := models.MediaType(vars["mediaType"])
	return mediaType, mediaType.Valid()
}

// HomeResponse aggregates the discovery rows for the landing page.
type HomeResponse struct {
	Trending      []catalog.MediaItem `json:"trending"`
	PopularMovies []catalog.MediaItem `json:"popularMovies"`
	PopularTV     []catalog.MediaItem `json:"popularTv"`
	TopRated      []catalog.MediaItem `json:"topRated"`
}

// Home fetches the landing page rows concurrently. A failed row comes back
// empty rather than failing the whole page.
// GET /api/catalog/home
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var response HomeResponse

	var wg conc.WaitGroup
	wg.Go(func() {
		if page, err := h.catalog.Trending(ctx, "all", "week"); err == nil {
			response.Trending = page.Results
		} else {
			log.Printf("[catalog] trending fetch failed: %v", err)
		}
	})
	wg.Go(func() {
		if page, err := h.catalog.Popular(ctx, models.MediaTypeMovie, 1); err == nil {
			response.PopularMovies = page.Results
		} else {
			log.Printf("[catalog] popular movies fetch failed: %v", err)
		}
	})
	wg.Go(func() {
		if page, err := h.catalog.Popular(ctx, models.MediaTypeTV, 1); err == nil {
			response.PopularTV = page.Results
		} else {
			log.Printf("[catalog] popular tv fetch failed: %v", err)
		}
	})
	wg.Go(func() {
		if page, err := h.catalog.TopRated(ctx, models.MediaTypeMovie, 1); err == nil {
			response.TopRated = page.Results
		} else {
			log.Printf("[catalog] top rated fetch failed: %v", err)
		}
	})
	wg.Wait()

	writeJSON(w, response)
}

// Trending returns the trending listing for movie, tv or all.
// GET /api/catalog/trending/{mediaType}?window=day|week
func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType := mux.Vars(r)["mediaType"]
	if mediaType != "all" && !models.MediaType(mediaType).Valid() {
		jsonError(w, "Media type must be movie, tv or all", http.StatusBadRequest)
		return
	}

	page, err := h.catalog.Trending(r.Context(), mediaType, r.URL.Query().Get("window"))
	if err != nil {
		jsonError(w, "Failed to fetch trending: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, page)
}

// Popular returns the popular listing.
// GET /api/catalog/{mediaType}/popular
func (h *CatalogHandler) Popular(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeVar(mux.Vars(r))
	if !ok {
		jsonError(w, "Media type must be movie or tv", http.StatusBadRequest)
		return
	}

	page, err := h.catalog.Popular(r.Context(), mediaType, pageParam(r))
	if err != nil {
		jsonError(w, "Failed to fetch popular: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, page)
}

// TopRated returns the top-rated listing.
// GET /api/catalog/{mediaType}/top_rated
func (h *CatalogHandler) TopRated(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := mediaTypeVar(mux.Vars(r))
	if !ok {
		jsonError(w, "Media type must be movie or tv", http.StatusBadRequest)
		return
	}

	page, err := h.catalog.TopRated(r.Context(), mediaType, pageParam(r))
	if err != nil {
		jsonError(w, "Failed to fetch top rated: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, page)
}

// Search runs a catalog search. type=movie|tv searches one namespace;
// anything else runs a multi search filtered down to ranked movie/TV rows.
// GET /api/catalog/search?query=...&type=...&page=...
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		jsonError(w, "Query required", http.StatusBadRequest)
		return
	}

	searchType := models.MediaType(r.URL.Query().Get("type"))
	if searchType.Valid() {
		page, err := h.catalog.Search(r.Context(), searchType, query, pageParam(r))
		if err != nil {
			jsonError(w, "Search failed: "+err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, page)
		return
	}

	page, err := h.catalog.SearchMulti(r.Context(), query, pageParam(r))
	if err != nil {
		jsonError(w, "Search failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	page.Results = match.SearchResults(page.Results, query)
	writeJSON(w, page)
}

// Details returns the full record for one title.
// GET /api/catalog/{mediaType}/{id}
func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.titleVars(w, r)
	if !ok {
		return
	}

	details, err := h.catalog.Details(r.Context(), mediaType, id)
	if err != nil {
		jsonError(w, "Failed to fetch details: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, details)
}

// Credits returns cast and crew for one title.
// GET /api/catalog/{mediaType}/{id}/credits
func (h *CatalogHandler) Credits(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.titleVars(w, r)
	if !ok {
		return
	}

	credits, err := h.catalog.Credits(r.Context(), mediaType, id)
	if err != nil {
		jsonError(w, "Failed to fetch credits: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, credits)
}

// Videos returns trailers and clips for one title.
// GET /api/catalog/{mediaType}/{id}/videos
func (h *CatalogHandler) Videos(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.titleVars(w, r)
	if !ok {
		return
	}

	videos, err := h.catalog.Videos(r.Context(), mediaType, id)
	if err != nil {
		jsonError(w, "Failed to fetch videos: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, videos)
}

// Similar returns similar titles.
// GET /api/catalog/{mediaType}/{id}/similar
func (h *CatalogHandler) Similar(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.titleVars(w, r)
	if !ok {
		return
	}

	page, err := h.catalog.Similar(r.Context(), mediaType, id, pageParam(r))
	if err != nil {
		jsonError(w, "Failed to fetch similar titles: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, page)
}

// Recommendations returns recommended titles.
// GET /api/catalog/{mediaType}/{id}/recommendations
func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := h.titleVars(w, r)
	if !ok {
		return
	}

	page, err := h.catalog.Recommendations(r.Context(), mediaType, id, pageParam(r))
	if err != nil {
		jsonError(w, "Failed to fetch recommendations: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, page)
}

func (h *CatalogHandler) titleVars(w http.ResponseWriter, r *http.Request) (models.MediaType, int64, bool) {
	vars := mux.Vars(r)
	mediaType, ok := mediaTypeVar(vars)
	if !ok {
		jsonError(w, "Media type must be movie or tv", http.StatusBadRequest)
		return "", 0, false
	}
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		jsonError(w, "Invalid media id", http.StatusBadRequest)
		return "", 0, false
	}
	return mediaType, id, true
}
