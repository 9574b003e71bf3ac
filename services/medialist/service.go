// Package medialist owns the durable per-user media lists and rating map.
//
// All writes follow a read-before-write pattern: the service fetches the
// document, checks state, then issues the narrowest store mutation. The
// backing store appends blindly and removes by value equality, so the
// no-duplicate invariant lives here, not in storage.
package medialist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"reeltrack/internal/docstore"
	"reeltrack/models"
)

// StoreError wraps a backing-store failure surfaced to callers of a
// mutating operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("media list %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrInvalidRating is returned when a rating is outside 0..10.
var ErrInvalidRating = errors.New("rating must be between 0 and 10")

// ErrInvalidList is returned for an unknown list name.
var ErrInvalidList = errors.New("unknown list name")

// Service provides CRUD over one user's four lists and rating map.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

// NewService creates a media list service over the given store.
func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// ensureDocument fetches the user's document, lazily creating the empty
// default when none exists. Store failures other than not-found propagate.
func (s *Service) ensureDocument(ctx context.Context, userID string) (*models.UserMediaDocument, error) {
	doc, err := s.store.Fetch(ctx, userID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	doc = models.NewUserMediaDocument()
	if err := s.store.Create(ctx, userID, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// AddToList appends a normalized record to the named list. Adding a title
// already present in the list succeeds without inserting a duplicate.
func (s *Service) AddToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error {
	if !list.Valid() {
		return ErrInvalidList
	}

	rec := s.normalize(record, list)

	doc, err := s.ensureDocument(ctx, userID)
	if err != nil {
		return &StoreError{Op: "add to " + string(list), Err: err}
	}

	if doc.Contains(list, rec.Key()) {
		return nil
	}

	if err := s.store.AppendToList(ctx, userID, list, rec); err != nil {
		return &StoreError{Op: "add to " + string(list), Err: err}
	}
	return nil
}

// RemoveFromList removes the record matching key from the named list.
// Removing a title that is not in the list is a successful no-op.
func (s *Service) RemoveFromList(ctx context.Context, userID string, list models.ListName, key models.MediaKey) error {
	if !list.Valid() {
		return ErrInvalidList
	}

	doc, err := s.store.Fetch(ctx, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &StoreError{Op: "remove from " + string(list), Err: err}
	}

	// The store removes by value equality, so the stored record has to be
	// located first and passed back exactly as stored.
	stored, ok := doc.Find(list, key)
	if !ok {
		return nil
	}

	if err := s.store.RemoveFromList(ctx, userID, list, stored); err != nil {
		return &StoreError{Op: "remove from " + string(list), Err: err}
	}
	return nil
}

// GetStatus reports a title's standing for the user. A missing document or a
// failed read yields the all-false default rather than an error: read paths
// favour availability.
func (s *Service) GetStatus(ctx context.Context, userID string, key models.MediaKey) models.MediaStatus {
	doc, err := s.store.Fetch(ctx, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Printf("[medialist] status read failed for user %s: %v", userID, err)
		}
		return models.MediaStatus{}
	}

	return models.MediaStatus{
		InWatchlist: doc.Contains(models.ListWatchlist, key),
		Watched:     doc.Contains(models.ListCompleted, key),
		Rating:      doc.Ratings[key.RatingKey()],
	}
}

// SetWatchedStatus adds the title to or removes it from the completed list.
// When marking watched, the completed record prefers the caller-supplied
// record, then a copy of the matching watchlist entry, then a minimal
// placeholder. The watchlist itself is never touched here; callers wanting
// "watched and off the watchlist" issue RemoveFromList separately.
func (s *Service) SetWatchedStatus(ctx context.Context, userID string, key models.MediaKey, watched bool, record *models.MediaRecord) error {
	if !watched {
		return s.RemoveFromList(ctx, userID, models.ListCompleted, key)
	}

	doc, err := s.ensureDocument(ctx, userID)
	if err != nil {
		return &StoreError{Op: "mark watched", Err: err}
	}

	if doc.Contains(models.ListCompleted, key) {
		return nil
	}

	var rec models.MediaRecord
	switch {
	case record != nil:
		rec = *record
		rec.ID = key.ID
		rec.MediaType = key.MediaType
	default:
		if fromWatchlist, ok := doc.Find(models.ListWatchlist, key); ok {
			rec = fromWatchlist
		} else {
			rec = models.MediaRecord{ID: key.ID, MediaType: key.MediaType, Title: "Unknown"}
		}
	}
	rec = s.normalize(rec, models.ListCompleted)

	if err := s.store.AppendToList(ctx, userID, models.ListCompleted, rec); err != nil {
		return &StoreError{Op: "mark watched", Err: err}
	}
	return nil
}

// SetRating upserts the user's rating for a title. A rating of 0 removes the
// entry from the rating map entirely.
func (s *Service) SetRating(ctx context.Context, userID string, key models.MediaKey, rating int) error {
	if rating < 0 || rating > 10 {
		return ErrInvalidRating
	}

	if _, err := s.ensureDocument(ctx, userID); err != nil {
		return &StoreError{Op: "set rating", Err: err}
	}

	if rating == 0 {
		if err := s.store.RemoveRating(ctx, userID, key.RatingKey()); err != nil {
			return &StoreError{Op: "set rating", Err: err}
		}
		return nil
	}

	if err := s.store.SetRating(ctx, userID, key.RatingKey(), rating); err != nil {
		return &StoreError{Op: "set rating", Err: err}
	}
	return nil
}

// GetAllLists returns the user's full document, creating the empty default
// when absent. Store failures yield the empty default rather than an error.
func (s *Service) GetAllLists(ctx context.Context, userID string) *models.UserMediaDocument {
	doc, err := s.ensureDocument(ctx, userID)
	if err != nil {
		log.Printf("[medialist] list read failed for user %s: %v", userID, err)
		return models.NewUserMediaDocument()
	}
	return doc
}

// normalize builds the stored form of a record: only the tracked fields
// survive, and exactly one timestamp is stamped according to the target list.
func (s *Service) normalize(record models.MediaRecord, list models.ListName) models.MediaRecord {
	now := s.now()
	rec := models.MediaRecord{
		ID:          record.ID,
		MediaType:   record.MediaType,
		Title:       record.Title,
		PosterPath:  record.PosterPath,
		VoteAverage: record.VoteAverage,
		ReleaseDate: record.ReleaseDate,
	}
	switch list {
	case models.ListWatching:
		rec.StartedAt = &now
	case models.ListCompleted:
		rec.WatchedAt = &now
	default:
		rec.AddedAt = &now
	}
	return rec
}
