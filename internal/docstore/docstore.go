// Package docstore defines the per-user document storage contract backing
// the media list service. Implementations live in the sqlite and mongo
// subpackages.
//
// The primitives deliberately have no dedup or key semantics of their own:
// AppendToList is a blind append and RemoveFromList removes by plain value
// equality. Uniqueness within a list is the caller's job (read before write).
package docstore

import (
	"context"
	"errors"

	"reeltrack/models"
)

// ErrNotFound is returned by Fetch when no document exists for the user.
var ErrNotFound = errors.New("docstore: document not found")

// Store is the backing document store for per-user media documents.
// Every write stamps the document's lastUpdated field.
type Store interface {
	// Fetch returns the whole document for userID, or ErrNotFound.
	Fetch(ctx context.Context, userID string) (*models.UserMediaDocument, error)

	// Create writes a whole new document for userID. Creating over an
	// existing document replaces it; callers fetch first.
	Create(ctx context.Context, userID string, doc *models.UserMediaDocument) error

	// AppendToList appends record to the named list. No dedup is applied.
	AppendToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error

	// RemoveFromList removes entries equal to record from the named list.
	// Equality is whole-value comparison, not key comparison: the caller
	// locates the stored record first and passes it back verbatim.
	RemoveFromList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error

	// ReplaceList overwrites the named list wholesale.
	ReplaceList(ctx context.Context, userID string, list models.ListName, records []models.MediaRecord) error

	// SetRating upserts one entry in the rating map.
	SetRating(ctx context.Context, userID string, key string, rating int) error

	// RemoveRating deletes one entry from the rating map. Removing a
	// missing key is a no-op.
	RemoveRating(ctx context.Context, userID string, key string) error
}
