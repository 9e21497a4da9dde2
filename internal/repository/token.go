package repository

import (
	"context"
	"errors"
	"time"

	"github.com/poivault/poivault-go/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TokenRepository tracks revoked token ids. Entries are removed by the
// collection's TTL index once the token would have expired.
type TokenRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *mongo.Database, timeout time.Duration) *TokenRepository {
	return &TokenRepository{col: db.Collection(revokedCollection), timeout: timeout}
}

// Revoke marks the token id as revoked until expiresAt. Revoking an already
// revoked token is not an error.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, model.RevokedToken{ID: tokenID, UserID: userID, ExpiresAt: expiresAt})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return nil
}

// IsRevoked reports whether the token id has been revoked and has not yet expired.
func (r *TokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": tokenID, "expiresAt": bson.M{"$gt": time.Now()}}
	err := r.col.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
