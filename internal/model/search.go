package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchQuery is a ciphertext search request. The radius is in meters once
// decrypted and is optional.
type SearchQuery struct {
	EncryptedLat    string `bson:"encryptedLat" json:"encryptedLat"`
	EncryptedLng    string `bson:"encryptedLng" json:"encryptedLng"`
	EncryptedRadius string `bson:"encryptedRadius,omitempty" json:"encryptedRadius,omitempty"`
}

// SearchResult is a POI annotated with its distance from the query center
// in kilometers.
type SearchResult struct {
	POI
	Distance *float64 `json:"distance"`
}

// SearchHistoryEntry is an audit record of a search as it was received.
type SearchHistoryEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"userId"`
	Query     SearchQuery        `bson:"query" json:"query"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
