package repository

import (
	"context"
	"time"

	"github.com/poivault/poivault-go/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryRepository persists the search audit log.
type HistoryRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *mongo.Database, timeout time.Duration) *HistoryRepository {
	return &HistoryRepository{col: db.Collection(historyCollection), timeout: timeout}
}

// Insert appends an entry to the log.
func (r *HistoryRepository) Insert(ctx context.Context, entry *model.SearchHistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, entry)
	return err
}

// ListRecent returns the user's most recent entries, newest first.
func (r *HistoryRepository) ListRecent(ctx context.Context, userID string, limit int64) ([]model.SearchHistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, findOpts)
	if err != nil {
		return nil, err
	}
	entries := []model.SearchHistoryEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
