package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"reeltrack/models"
	"reeltrack/services/accounts"
	"reeltrack/services/watchcache"
)

// accountService is the slice of the accounts service the handler uses.
type accountService interface {
	accountResolver
	Create(username, password, displayName, email string) (models.Account, error)
	UpdateProfile(id, displayName, theme string) (models.Account, error)
}

var _ accountService = (*accounts.Service)(nil)

// ProfileHandler serves signup and profile endpoints.
type ProfileHandler struct {
	accounts    accountService
	caches      *watchcache.Manager
	allowSignup bool
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(svc accountService, caches *watchcache.Manager, allowSignup bool) *ProfileHandler {
	return &ProfileHandler{accounts: svc, caches: caches, allowSignup: allowSignup}
}

// Register attaches the authenticated profile routes to the router. Signup
// is registered separately since it runs before a session exists.
func (h *ProfileHandler) Register(r *mux.Router) {
	r.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/profile/logout", h.Logout).Methods(http.MethodPost)
}

// SignupRequest is the body for account creation.
type SignupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Signup creates a new local account.
// POST /signup
func (h *ProfileHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.allowSignup {
		jsonError(w, "Signups are disabled", http.StatusForbidden)
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Create(req.Username, req.Password, req.DisplayName, req.Email)
	if err != nil {
		if errors.Is(err, accounts.ErrUsernameTaken) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"success": true,
		"account": account.Public(),
	})
}

// GetProfile returns the caller's account.
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}
	writeJSON(w, account.Public())
}

// UpdateProfileRequest is the body for profile updates.
type UpdateProfileRequest struct {
	DisplayName string `json:"displayName,omitempty"`
	Theme       string `json:"theme,omitempty"`
}

// UpdateProfile changes the caller's display name and theme.
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.accounts.UpdateProfile(account.ID, req.DisplayName, req.Theme)
	if err != nil {
		jsonError(w, "Failed to update profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, updated.Public())
}

// Logout drops the caller's watchlist cache. The session cookie itself is
// cleared by the auth service's own logout route; the frontend calls both.
// POST /api/profile/logout
func (h *ProfileHandler) Logout(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r, h.accounts)
	if !ok {
		return
	}

	h.caches.Drop(account.ID)
	writeJSON(w, map[string]any{"success": true})
}
