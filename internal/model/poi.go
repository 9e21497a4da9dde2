package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// POI is a stored point of interest. Coordinates are ciphertext produced by
// crypto.CoordinateCipher and are only decrypted during search.
type POI struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EncryptedLat string             `bson:"encryptedLat" json:"encryptedLat"`
	EncryptedLng string             `bson:"encryptedLng" json:"encryptedLng"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Category     string             `bson:"category,omitempty" json:"category,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	CreatedBy    string             `bson:"createdBy" json:"createdBy"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	UpdatedBy    string             `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// CreatePOIRequest is the body of a single create and one element of a bulk create.
type CreatePOIRequest struct {
	EncryptedLat string `json:"encryptedLat"`
	EncryptedLng string `json:"encryptedLng"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
}

// UpdatePOIRequest carries a partial update; nil fields are left untouched.
type UpdatePOIRequest struct {
	EncryptedLat *string `json:"encryptedLat,omitempty"`
	EncryptedLng *string `json:"encryptedLng,omitempty"`
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Category     *string `json:"category,omitempty"`
}

// BulkCreateRequest is the body of POST /api/pois/bulk.
type BulkCreateRequest struct {
	POIs []CreatePOIRequest `json:"pois"`
}

// POIPage is one page of the admin POI listing. LastDoc is the cursor for
// the next page and is null when the page is empty.
type POIPage struct {
	POIs    []POI   `json:"pois"`
	LastDoc *string `json:"lastDoc"`
	HasMore bool    `json:"hasMore"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Success bool `json:"success"`
}
