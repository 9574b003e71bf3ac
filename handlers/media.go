package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"reeltrack/models"
	"reeltrack/services/medialist"
	"reeltrack/services/watchcache"
)

// listService is the slice of the media list service the handler uses.
type listService interface {
	AddToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error
	RemoveFromList(ctx context.Context, userID string, list models.ListName, key models.MediaKey) error
	GetStatus(ctx context.Context, userID string, key models.MediaKey) models.MediaStatus
	SetWatchedStatus(ctx context.Context, userID string, key models.MediaKey, watched bool, record *models.MediaRecord) error
	SetRating(ctx context.Context, userID string, key models.MediaKey, rating int) error
	GetAllLists(ctx context.Context, userID string) *models.UserMediaDocument
}

var _ listService = (*medialist.Service)(nil)

// MediaHandler serves the per-user media list and watchlist endpoints.
type MediaHandler struct {
	lists    listService
	caches   *watchcache.Manager
	accounts accountResolver
}

// NewMediaHandler creates a media list handler.
func NewMediaHandler(lists listService, caches *watchcache.Manager, accounts accountResolver) *MediaHandler {
	return &MediaHandler{lists: lists, caches: caches, accounts: accounts}
}

// Register attaches media routes to the (already authenticated) router.
func (h *MediaHandler) Register(r *mux.Router) {
	r.HandleFunc("/media/lists", h.GetLists).Methods(http.MethodGet)
	r.HandleFunc("/media/lists/{list}", h.AddToList).Methods(http.MethodPost)
	r.HandleFunc("/media/lists/{list}/{mediaType}/{id}", h.RemoveFromList).Methods(http.MethodDelete)
	r.HandleFunc("/media/{mediaType}/{id}/status", h.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/media/{mediaType}/{id}/watched", h.SetWatched).Methods(http.MethodPut)
	r.HandleFunc("/media/{mediaType}/{id}/rating", h.SetRating).Methods(http.MethodPut)
	r.HandleFunc("/media/watchlist/toggle", h.ToggleWatchlist).Methods(http.MethodPost)
	r.HandleFunc("/media/watchlist/refresh", h.RefreshWatchlist).Methods(http.MethodPost)
	r.HandleFunc("/media/watchlist/{mediaType}/{id}", h.WatchlistContains).Methods(http.MethodGet)
}

// keyFromVars builds the compound media key from path variables.
func keyFromVars(vars map[string]string) (models.MediaKey, error) {
	mediaType := models.MediaType(vars["mediaType"])
	if !mediaType.Valid() {
		return models.MediaKey{}, errors.New("media type must be movie or tv")
	}
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return models.MediaKey{}, errors.New("invalid media id")
	}
	return models.MediaKey{ID: id, MediaType: mediaType}, nil
}

// storeStatus maps a service error to the HTTP status for the client.
func storeStatus(err error) int {
	var storeErr *medialist.StoreError
	if errors.As(err, &storeErr) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// GetLists returns the caller's full media document.
// GET /api/media/lists
func (h *MediaHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}
	writeJSON(w, h.lists.GetAllLists(r.Context(), account.ID))
}

// AddToList adds a title to one of the four lists.
// POST /api/media/lists/{list}
func (h *MediaHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	list := models.ListName(mux.Vars(r)["list"])
	if !list.Valid() {
		jsonError(w, "Unknown list", http.StatusBadRequest)
		return
	}

	var record models.MediaRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !record.MediaType.Valid() || record.ID == 0 {
		jsonError(w, "Record needs id and mediaType", http.StatusBadRequest)
		return
	}

	if err := h.lists.AddToList(r.Context(), account.ID, list, record); err != nil {
		jsonError(w, "Failed to add to "+string(list)+": "+err.Error(), storeStatus(err))
		return
	}

	if list == models.ListWatchlist {
		h.caches.ForUser(r.Context(), account.ID).MarkPresent(record.Key())
	}

	writeJSON(w, map[string]any{"success": true})
}

// RemoveFromList removes a title from one of the four lists.
// DELETE /api/media/lists/{list}/{mediaType}/{id}
func (h *MediaHandler) RemoveFromList(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	list := models.ListName(vars["list"])
	if !list.Valid() {
		jsonError(w, "Unknown list", http.StatusBadRequest)
		return
	}
	key, err := keyFromVars(vars)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lists.RemoveFromList(r.Context(), account.ID, list, key); err != nil {
		jsonError(w, "Failed to remove from "+string(list)+": "+err.Error(), storeStatus(err))
		return
	}

	if list == models.ListWatchlist {
		h.caches.ForUser(r.Context(), account.ID).MarkAbsent(key)
	}

	writeJSON(w, map[string]any{"success": true})
}

// GetStatus reports the caller's standing for one title.
// GET /api/media/{mediaType}/{id}/status
func (h *MediaHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	key, err := keyFromVars(mux.Vars(r))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, h.lists.GetStatus(r.Context(), account.ID, key))
}

// SetWatchedRequest is the body for the watched-status endpoint.
type SetWatchedRequest struct {
	Watched bool                `json:"watched"`
	Record  *models.MediaRecord `json:"record,omitempty"`
	// KeepInWatchlist leaves the title on the watchlist after marking it
	// watched; the default workflow removes it.
	KeepInWatchlist bool `json:"keepInWatchlist,omitempty"`
}

// SetWatched marks a title watched or unwatched. Marking watched also
// removes the title from the watchlist unless keepInWatchlist is set. The
// two writes are not atomic: when the second fails the title is temporarily
// on both lists, and the response says so.
// PUT /api/media/{mediaType}/{id}/watched
func (h *MediaHandler) SetWatched(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	key, err := keyFromVars(mux.Vars(r))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req SetWatchedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lists.SetWatchedStatus(r.Context(), account.ID, key, req.Watched, req.Record); err != nil {
		jsonError(w, "Failed to update watched status: "+err.Error(), storeStatus(err))
		return
	}

	if req.Watched && !req.KeepInWatchlist {
		if err := h.lists.RemoveFromList(r.Context(), account.ID, models.ListWatchlist, key); err != nil {
			// First write committed; report the partial state instead of
			// pretending the whole action failed.
			writeJSON(w, map[string]any{
				"success": false,
				"watched": true,
				"warning": "marked watched but could not remove from watchlist",
			})
			return
		}
		h.caches.ForUser(r.Context(), account.ID).MarkAbsent(key)
	}

	writeJSON(w, map[string]any{"success": true, "watched": req.Watched})
}

// SetRatingRequest is the body for the rating endpoint.
type SetRatingRequest struct {
	Rating int `json:"rating"`
}

// SetRating stores the caller's star rating for a title. Rating 0 clears it.
// PUT /api/media/{mediaType}/{id}/rating
func (h *MediaHandler) SetRating(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	key, err := keyFromVars(mux.Vars(r))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req SetRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.lists.SetRating(r.Context(), account.ID, key, req.Rating); err != nil {
		if errors.Is(err, medialist.ErrInvalidRating) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		jsonError(w, "Failed to save rating: "+err.Error(), storeStatus(err))
		return
	}

	writeJSON(w, map[string]any{"success": true, "rating": req.Rating})
}

// ToggleWatchlist flips watchlist membership for the posted record using the
// optimistic cache, so the response reflects the state the UI should show.
// POST /api/media/watchlist/toggle
func (h *MediaHandler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	var record models.MediaRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !record.MediaType.Valid() || record.ID == 0 {
		jsonError(w, "Record needs id and mediaType", http.StatusBadRequest)
		return
	}

	cache := h.caches.ForUser(r.Context(), account.ID)
	inWatchlist, err := cache.Toggle(r.Context(), record)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(storeStatus(err))
		json.NewEncoder(w).Encode(map[string]any{
			"error":       "Watchlist update failed, please try again",
			"inWatchlist": inWatchlist,
		})
		return
	}

	writeJSON(w, map[string]any{"inWatchlist": inWatchlist})
}

// WatchlistContains answers membership from the cache without touching the
// store.
// GET /api/media/watchlist/{mediaType}/{id}
func (h *MediaHandler) WatchlistContains(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	key, err := keyFromVars(mux.Vars(r))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cache := h.caches.ForUser(r.Context(), account.ID)
	writeJSON(w, map[string]any{"inWatchlist": cache.Has(key)})
}

// RefreshWatchlist rebuilds the caller's watchlist cache from the store.
// POST /api/media/watchlist/refresh
func (h *MediaHandler) RefreshWatchlist(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	h.caches.ForUser(r.Context(), account.ID).ForceRefresh(r.Context())
	writeJSON(w, map[string]any{"success": true})
}
