package models

import (
	"strconv"
	"time"
)

// MediaType identifies the catalog namespace an ID belongs to.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether the media type is one we track.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// ListName names one of the four per-user media lists.
type ListName string

const (
	ListWatchlist ListName = "watchlist"
	ListWatching  ListName = "watching"
	ListCompleted ListName = "completed"
	ListFavorites ListName = "favorites"
)

// Valid reports whether the list name is one of the four known lists.
func (l ListName) Valid() bool {
	switch l {
	case ListWatchlist, ListWatching, ListCompleted, ListFavorites:
		return true
	}
	return false
}

// MediaKey is the compound identity of a title within lists and the rating
// map. Two records with the same key refer to the same title.
type MediaKey struct {
	ID        int64     `json:"id"`
	MediaType MediaType `json:"mediaType"`
}

// RatingKey renders the key in the stored rating-map format.
func (k MediaKey) RatingKey() string {
	return string(k.MediaType) + "_" + strconv.FormatInt(k.ID, 10)
}

// MediaRecord is one saved title inside a user list. Only one of the
// timestamp fields is set, depending on which list the record lives in.
type MediaRecord struct {
	ID          int64      `json:"id" bson:"id"`
	MediaType   MediaType  `json:"mediaType" bson:"mediaType"`
	Title       string     `json:"title" bson:"title"`
	PosterPath  string     `json:"posterPath,omitempty" bson:"posterPath,omitempty"`
	VoteAverage float64    `json:"voteAverage,omitempty" bson:"voteAverage,omitempty"`
	ReleaseDate string     `json:"releaseDate,omitempty" bson:"releaseDate,omitempty"`
	AddedAt     *time.Time `json:"addedAt,omitempty" bson:"addedAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	WatchedAt   *time.Time `json:"watchedAt,omitempty" bson:"watchedAt,omitempty"`
}

// Key returns the record's compound identity.
func (r MediaRecord) Key() MediaKey {
	return MediaKey{ID: r.ID, MediaType: r.MediaType}
}

// UserMediaDocument is the whole per-user tracking document: four ordered
// lists plus the rating map keyed by MediaKey.RatingKey(). A missing document
// is equivalent to NewUserMediaDocument().
type UserMediaDocument struct {
	Watchlist   []MediaRecord  `json:"watchlist" bson:"watchlist"`
	Watching    []MediaRecord  `json:"watching" bson:"watching"`
	Completed   []MediaRecord  `json:"completed" bson:"completed"`
	Favorites   []MediaRecord  `json:"favorites" bson:"favorites"`
	Ratings     map[string]int `json:"ratings" bson:"ratings"`
	LastUpdated time.Time      `json:"lastUpdated" bson:"lastUpdated"`
}

// NewUserMediaDocument returns the empty default document created on first
// write for a user.
func NewUserMediaDocument() *UserMediaDocument {
	return &UserMediaDocument{
		Watchlist:   []MediaRecord{},
		Watching:    []MediaRecord{},
		Completed:   []MediaRecord{},
		Favorites:   []MediaRecord{},
		Ratings:     map[string]int{},
		LastUpdated: time.Now().UTC(),
	}
}

// List returns the named list, or nil for an unknown name.
func (d *UserMediaDocument) List(name ListName) []MediaRecord {
	switch name {
	case ListWatchlist:
		return d.Watchlist
	case ListWatching:
		return d.Watching
	case ListCompleted:
		return d.Completed
	case ListFavorites:
		return d.Favorites
	}
	return nil
}

// SetList replaces the named list in place.
func (d *UserMediaDocument) SetList(name ListName, records []MediaRecord) {
	switch name {
	case ListWatchlist:
		d.Watchlist = records
	case ListWatching:
		d.Watching = records
	case ListCompleted:
		d.Completed = records
	case ListFavorites:
		d.Favorites = records
	}
}

// Find returns the first record in the named list matching key, if any.
func (d *UserMediaDocument) Find(name ListName, key MediaKey) (MediaRecord, bool) {
	for _, rec := range d.List(name) {
		if rec.Key() == key {
			return rec, true
		}
	}
	return MediaRecord{}, false
}

// Contains reports whether the named list holds a record for key.
func (d *UserMediaDocument) Contains(name ListName, key MediaKey) bool {
	_, ok := d.Find(name, key)
	return ok
}

// MediaStatus summarises one title's standing for a user.
type MediaStatus struct {
	InWatchlist bool `json:"inWatchlist"`
	Watched     bool `json:"watched"`
	Rating      int  `json:"rating"`
}
