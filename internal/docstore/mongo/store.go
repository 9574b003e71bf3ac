// Package mongo implements docstore.Store on a MongoDB collection, one
// document per user keyed by _id. Array mutations use $push/$pull so each
// update is applied atomically server-side instead of read-modify-write.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reeltrack/internal/docstore"
	"reeltrack/models"
)

// Config holds MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store is the MongoDB-backed document store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ docstore.Store = (*Store)(nil)

type userMediaRow struct {
	UserID                   string `bson:"_id"`
	models.UserMediaDocument `bson:",inline"`
}

// New connects to MongoDB and pings the deployment before returning.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Collection == "" {
		config.Collection = "user_media"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(config.Database).Collection(config.Collection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Fetch returns the document for userID, or docstore.ErrNotFound.
func (s *Store) Fetch(ctx context.Context, userID string) (*models.UserMediaDocument, error) {
	var row userMediaRow
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	doc := row.UserMediaDocument
	if doc.Ratings == nil {
		doc.Ratings = map[string]int{}
	}
	return &doc, nil
}

// Create writes a whole document for userID, replacing any existing one.
func (s *Store) Create(ctx context.Context, userID string, doc *models.UserMediaDocument) error {
	doc.LastUpdated = time.Now().UTC()
	row := userMediaRow{UserID: userID, UserMediaDocument: *doc}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": userID}, row,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// AppendToList appends record to the named list without dedup.
func (s *Store) AppendToList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error {
	return s.updateOne(ctx, userID, fmt.Sprintf("append %s", list), bson.M{
		"$push": bson.M{string(list): record},
	})
}

// RemoveFromList removes entries matching record's set fields from the list.
func (s *Store) RemoveFromList(ctx context.Context, userID string, list models.ListName, record models.MediaRecord) error {
	return s.updateOne(ctx, userID, fmt.Sprintf("remove %s", list), bson.M{
		"$pull": bson.M{string(list): record},
	})
}

// ReplaceList overwrites the named list wholesale.
func (s *Store) ReplaceList(ctx context.Context, userID string, list models.ListName, records []models.MediaRecord) error {
	if records == nil {
		records = []models.MediaRecord{}
	}
	return s.updateOne(ctx, userID, fmt.Sprintf("replace %s", list), bson.M{
		"$set": bson.M{string(list): records},
	})
}

// SetRating upserts one rating map entry.
func (s *Store) SetRating(ctx context.Context, userID string, key string, rating int) error {
	return s.updateOne(ctx, userID, "set rating", bson.M{
		"$set": bson.M{"ratings." + key: rating},
	})
}

// RemoveRating deletes one rating map entry.
func (s *Store) RemoveRating(ctx context.Context, userID string, key string) error {
	return s.updateOne(ctx, userID, "remove rating", bson.M{
		"$unset": bson.M{"ratings." + key: ""},
	})
}

func (s *Store) updateOne(ctx context.Context, userID string, op string, update bson.M) error {
	if set, ok := update["$set"].(bson.M); ok {
		set["lastUpdated"] = time.Now().UTC()
	} else {
		update["$set"] = bson.M{"lastUpdated": time.Now().UTC()}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}
