package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-pkgz/auth/v2/token"

	"reeltrack/models"
)

// accountResolver maps an authenticated session back to a local account.
type accountResolver interface {
	GetByUsername(username string) (models.Account, bool)
}

// jsonError writes a JSON error payload with the given status code.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": message,
	})
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// requireAccount resolves the session user to a local account, writing a
// 401 when the request carries no valid identity.
func requireAccount(w http.ResponseWriter, r *http.Request, accounts accountResolver) (models.Account, bool) {
	user, err := token.GetUserInfo(r)
	if err != nil {
		jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return models.Account{}, false
	}

	account, ok := accounts.GetByUsername(user.Name)
	if !ok {
		jsonError(w, "Unknown account", http.StatusUnauthorized)
		return models.Account{}, false
	}
	return account, true
}
