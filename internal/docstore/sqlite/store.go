// Package sqlite implements docstore.Store on a local SQLite database.
// Each user's media document is stored as a single JSON value, mirroring the
// document-per-user layout the service expects.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"reeltrack/internal/docstore"
	"reeltrack/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Config holds database configuration.
type Config struct {
	DatabasePath string
}

// Store is the SQLite-backed document store.
type Store struct {
	conn *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// New opens the database, applies pragmas and runs migrations.
func New(config Config) (*Store, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=10000",
		config.DatabasePath)

	conn, err := sql.Open("sqlite3", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Document writes are small and infrequent; a modest pool is plenty.
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(15 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma '%s': %w", pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{conn: conn}, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='user_media'").Scan(&tableName)
	if err != nil {
		return fmt.Errorf("migration verification failed: user_media table does not exist: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Fetch returns the document for userID, or docstore.ErrNotFound.
func (s *Store) Fetch(ctx context.Context, userID string) (*models.UserMediaDocument, error) {
	var raw []byte
	err := s.conn.QueryRowContext(ctx,
		"SELECT doc FROM user_media WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	var doc models.UserMediaDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Ratings == nil {
		doc.Ratings = map[string]int{}
	}
	return &doc, nil
}

// Create writes a whole document for userID, replacing any existing row.
func (s *Store) Create(ctx context.Context, userID string, doc *models.UserMediaDocument) error {
	doc.LastUpdated = time.Now().UTC()
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO user_media (user_id, doc, last_updated) VALUES (?, ?, ?)",
		userID, raw, doc.LastUpdated)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// AppendToList appends record to the named list without dedup.
func (s *Store) AppendToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error {
	return s.update(ctx, userID, fmt.Sprintf("append %s", list), func(doc *models.UserMediaDocument) {
		doc.SetList(list, append(doc.List(list), record))
	})
}

// RemoveFromList removes entries equal to record from the named list.
func (s *Store) RemoveFromList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error {
	return s.update(ctx, userID, fmt.Sprintf("remove %s", list), func(doc *models.UserMediaDocument) {
		current := doc.List(list)
		kept := make([]models.MediaRecord, 0, len(current))
		for _, rec := range current {
			if !recordsEqual(rec, record) {
				kept = append(kept, rec)
			}
		}
		doc.SetList(list, kept)
	})
}

// ReplaceList overwrites the named list wholesale.
func (s *Store) ReplaceList(ctx context.Context, userID string, list models.ListName, records []models.MediaRecord) error {
	if records == nil {
		records = []models.MediaRecord{}
	}
	return s.update(ctx, userID, fmt.Sprintf("replace %s", list), func(doc *models.UserMediaDocument) {
		doc.SetList(list, records)
	})
}

// SetRating upserts one rating map entry.
func (s *Store) SetRating(ctx context.Context, userID string, key string, rating int) error {
	return s.update(ctx, userID, "set rating", func(doc *models.UserMediaDocument) {
		doc.Ratings[key] = rating
	})
}

// RemoveRating deletes one rating map entry.
func (s *Store) RemoveRating(ctx context.Context, userID string, key string) error {
	return s.update(ctx, userID, "remove rating", func(doc *models.UserMediaDocument) {
		delete(doc.Ratings, key)
	})
}

// update applies mutate to the stored document inside a transaction. The
// read and write are atomic against other connections, which is as strong a
// guarantee as a single-node deployment needs.
func (s *Store) update(ctx context.Context, userID string, op string, mutate func(*models.UserMediaDocument)) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		"SELECT doc FROM user_media WHERE user_id = ?", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: read: %w", op, err)
	}

	var doc models.UserMediaDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	if doc.Ratings == nil {
		doc.Ratings = map[string]int{}
	}

	mutate(&doc)
	doc.LastUpdated = time.Now().UTC()

	updated, err := json.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE user_media SET doc = ?, last_updated = ? WHERE user_id = ?",
		updated, doc.LastUpdated, userID)
	if err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// recordsEqual is plain whole-value equality, matching the remove-by-value
// semantics of the store contract. Timestamp pointers compare by value.
func recordsEqual(a, b models.MediaRecord) bool {
	if a.ID != b.ID || a.MediaType != b.MediaType || a.Title != b.Title ||
		a.PosterPath != b.PosterPath || a.VoteAverage != b.VoteAverage ||
		a.ReleaseDate != b.ReleaseDate {
		return false
	}
	return timesEqual(a.AddedAt, b.AddedAt) &&
		timesEqual(a.StartedAt, b.StartedAt) &&
		timesEqual(a.WatchedAt, b.WatchedAt)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
