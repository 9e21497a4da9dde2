package repository

import (
	"context"
	"errors"
	"time"

	"github.com/poivault/poivault-go/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrPOINotFound = errors.New("poi not found")

// POIRepository handles POI persistence in MongoDB.
type POIRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

// NewPOIRepository creates a new POIRepository. Every call is bounded by timeout.
func NewPOIRepository(db *mongo.Database, timeout time.Duration) *POIRepository {
	return &POIRepository{col: db.Collection(poiCollection), timeout: timeout}
}

// Insert stores a single POI and returns its generated id.
func (r *POIRepository) Insert(ctx context.Context, poi *model.POI) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if poi.ID.IsZero() {
		poi.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, poi); err != nil {
		return primitive.NilObjectID, err
	}
	return poi.ID, nil
}

// InsertMany stores all POIs in a single transaction; either every document
// is written or none is. Returned ids are in input order. Transactions need
// a replica set or sharded deployment.
func (r *POIRepository) InsertMany(ctx context.Context, pois []model.POI) ([]primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ids := make([]primitive.ObjectID, len(pois))
	docs := make([]interface{}, len(pois))
	for i := range pois {
		if pois[i].ID.IsZero() {
			pois[i].ID = primitive.NewObjectID()
		}
		ids[i] = pois[i].ID
		docs[i] = pois[i]
	}

	sess, err := r.col.Database().Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.col.InsertMany(sc, docs)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetByID retrieves a POI by id.
func (r *POIRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var poi model.POI
	if err := r.col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&poi); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPOINotFound
		}
		return nil, err
	}
	return &poi, nil
}

// GetByIDs retrieves the POIs with the given ids, ordered as ids. Ids with
// no stored document are omitted.
func (r *POIRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var found []model.POI
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

// Update applies set as a partial update. Fields absent from set are left
// untouched.
func (r *POIRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPOINotFound
	}
	return nil
}

// Delete removes a POI.
func (r *POIRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPOINotFound
	}
	return nil
}

// List returns up to limit POIs in ascending id order, starting after the
// given id when it is non-nil.
func (r *POIRepository) List(ctx context.Context, limit int64, after *primitive.ObjectID) ([]model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{}
	if after != nil {
		filter["_id"] = bson.M{"$gt": *after}
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)

	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	pois := make([]model.POI, 0, limit)
	if err := cur.All(ctx, &pois); err != nil {
		return nil, err
	}
	return pois, nil
}

// ListAll returns the entire collection.
func (r *POIRepository) ListAll(ctx context.Context) ([]model.POI, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	pois := []model.POI{}
	if err := cur.All(ctx, &pois); err != nil {
		return nil, err
	}
	return pois, nil
}

func orderByIDs(pois []model.POI, ids []primitive.ObjectID) []model.POI {
	byID := make(map[primitive.ObjectID]model.POI, len(pois))
	for _, p := range pois {
		byID[p.ID] = p
	}
	out := make([]model.POI, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
