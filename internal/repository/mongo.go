package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	poiCollection     = "pois"
	historyCollection = "searchHistory"
	revokedCollection = "revokedTokens"
)

// NewMongo connects to MongoDB, verifies the connection and returns the
// named database. Disconnect through db.Client().
func NewMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(dctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client.Database(dbName), nil
}

// EnsureIndexes creates the secondary indexes the repositories rely on.
// POIs are deliberately left with only the _id index: search scans the
// whole collection because coordinates are ciphertext.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []string

	if _, err := db.Collection(historyCollection).Indexes().CreateOne(ctxIdx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		errs = append(errs, "userId,timestamp: "+err.Error())
	}
	if _, err := db.Collection(revokedCollection).Indexes().CreateOne(ctxIdx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		errs = append(errs, "expiresAt: "+err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
