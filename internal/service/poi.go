package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/poivault/poivault-go/internal/model"
	"github.com/poivault/poivault-go/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxBulkSize     = 1000
)

// POIStore is the POI persistence used by POIService.
type POIStore interface {
	Insert(ctx context.Context, poi *model.POI) (primitive.ObjectID, error)
	InsertMany(ctx context.Context, pois []model.POI) ([]primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.POI, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.POI, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, limit int64, after *primitive.ObjectID) ([]model.POI, error)
}

// POIService manages POIs. Every operation is restricted to admins, and
// the caller's role is looked up in the user store on each call rather than
// taken from the token.
type POIService struct {
	pois  POIStore
	users UserStore
	now   func() time.Time
}

// NewPOIService creates a new POIService.
func NewPOIService(pois POIStore, users UserStore) *POIService {
	return &POIService{
		pois:  pois,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new POI and returns it as stored.
func (s *POIService) Create(ctx context.Context, callerID string, req model.CreatePOIRequest) (*model.POI, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if problem := createProblem(req); problem != "" {
		return nil, validationError("%s", problem)
	}

	poi := s.newPOI(callerID, req)
	id, err := s.pois.Insert(ctx, &poi)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// BulkCreate stores every POI in req atomically and returns them as stored,
// in request order.
func (s *POIService) BulkCreate(ctx context.Context, callerID string, req model.BulkCreateRequest) ([]model.POI, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if len(req.POIs) == 0 {
		return nil, ErrBulkEmpty
	}
	if len(req.POIs) > MaxBulkSize {
		return nil, ErrBulkTooLarge
	}

	pois := make([]model.POI, len(req.POIs))
	for i, item := range req.POIs {
		if problem := createProblem(item); problem != "" {
			return nil, validationError("pois[%d]: %s", i, problem)
		}
		pois[i] = s.newPOI(callerID, item)
	}

	ids, err := s.pois.InsertMany(ctx, pois)
	if err != nil {
		return nil, err
	}
	return s.pois.GetByIDs(ctx, ids)
}

// Update applies the provided fields to an existing POI and returns the
// updated record.
func (s *POIService) Update(ctx context.Context, callerID, id string, req model.UpdatePOIRequest) (*model.POI, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrPOINotFound
	}

	set := bson.M{}
	required := []struct {
		field string
		value *string
	}{
		{"name", req.Name},
		{"encryptedLat", req.EncryptedLat},
		{"encryptedLng", req.EncryptedLng},
	}
	for _, r := range required {
		if r.value == nil {
			continue
		}
		if strings.TrimSpace(*r.value) == "" {
			return nil, validationError("%s cannot be empty", r.field)
		}
		set[r.field] = *r.value
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	set["updatedAt"] = s.now()
	set["updatedBy"] = callerID

	if err := s.pois.Update(ctx, oid, set); err != nil {
		if errors.Is(err, repository.ErrPOINotFound) {
			return nil, ErrPOINotFound
		}
		return nil, err
	}
	return s.get(ctx, oid)
}

// Delete removes a POI.
func (s *POIService) Delete(ctx context.Context, callerID, id string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrPOINotFound
	}

	if err := s.pois.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrPOINotFound) {
			return ErrPOINotFound
		}
		return err
	}
	return nil
}

// List returns one page of POIs in id order. lastDoc is the cursor returned
// with the previous page, or empty for the first page. HasMore is true
// whenever the page is full, so the last page may be empty.
func (s *POIService) List(ctx context.Context, callerID string, pageSize int, lastDoc string) (model.POIPage, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return model.POIPage{}, err
	}

	pageSize = min(max(pageSize, 1), MaxPageSize)

	var after *primitive.ObjectID
	if lastDoc != "" {
		oid, err := primitive.ObjectIDFromHex(lastDoc)
		if err != nil {
			return model.POIPage{}, ErrInvalidCursor
		}
		after = &oid
	}

	pois, err := s.pois.List(ctx, int64(pageSize), after)
	if err != nil {
		return model.POIPage{}, err
	}

	page := model.POIPage{POIs: pois, HasMore: len(pois) == pageSize}
	if page.POIs == nil {
		page.POIs = []model.POI{}
	}
	if n := len(pois); n > 0 {
		cursor := pois[n-1].ID.Hex()
		page.LastDoc = &cursor
	}
	return page, nil
}

func (s *POIService) requireAdmin(ctx context.Context, callerID string) error {
	user, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (s *POIService) get(ctx context.Context, id primitive.ObjectID) (*model.POI, error) {
	poi, err := s.pois.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPOINotFound) {
			return nil, ErrPOINotFound
		}
		return nil, err
	}
	return poi, nil
}

func (s *POIService) newPOI(callerID string, req model.CreatePOIRequest) model.POI {
	now := s.now()
	return model.POI{
		EncryptedLat: req.EncryptedLat,
		EncryptedLng: req.EncryptedLng,
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		CreatedAt:    now,
		CreatedBy:    callerID,
		UpdatedAt:    now,
	}
}

// createProblem describes the first missing required field, or returns "".
func createProblem(req model.CreatePOIRequest) string {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return "name is required"
	case strings.TrimSpace(req.EncryptedLat) == "":
		return "encryptedLat is required"
	case strings.TrimSpace(req.EncryptedLng) == "":
		return "encryptedLng is required"
	}
	return ""
}
