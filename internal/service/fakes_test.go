package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/poivault/poivault-go/internal/model"
	"github.com/poivault/poivault-go/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[string]*model.User
	touched map[string]time.Time
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	f := &fakeUserStore{byID: map[string]*model.User{}, touched: map[string]time.Time{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id] = at
	if u, ok := f.byID[id]; ok {
		u.LastLogin = at
	}
	return nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

type revocation struct {
	tokenID   string
	userID    string
	expiresAt time.Time
}

type fakeTokenRevoker struct {
	revoked []revocation
}

func (f *fakeTokenRevoker) Revoke(_ context.Context, tokenID, userID string, expiresAt time.Time) error {
	f.revoked = append(f.revoked, revocation{tokenID, userID, expiresAt})
	return nil
}

// fakePOIStore keeps POIs in memory and counts mutating calls so tests can
// assert that rejected requests never reached the store.
type fakePOIStore struct {
	mu        sync.Mutex
	docs      map[primitive.ObjectID]model.POI
	mutations int
	lastLimit int64
	listErr   error
}

func newFakePOIStore(pois ...model.POI) *fakePOIStore {
	f := &fakePOIStore{docs: map[primitive.ObjectID]model.POI{}}
	for _, p := range pois {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		f.docs[p.ID] = p
	}
	return f
}

func (f *fakePOIStore) Insert(_ context.Context, poi *model.POI) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	if poi.ID.IsZero() {
		poi.ID = primitive.NewObjectID()
	}
	f.docs[poi.ID] = *poi
	return poi.ID, nil
}

func (f *fakePOIStore) InsertMany(_ context.Context, pois []model.POI) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	ids := make([]primitive.ObjectID, len(pois))
	for i := range pois {
		if pois[i].ID.IsZero() {
			pois[i].ID = primitive.NewObjectID()
		}
		f.docs[pois[i].ID] = pois[i]
		ids[i] = pois[i].ID
	}
	return ids, nil
}

func (f *fakePOIStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.docs[id]
	if !ok {
		return nil, repository.ErrPOINotFound
	}
	return &p, nil
}

func (f *fakePOIStore) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.POI, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.docs[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePOIStore) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	p, ok := f.docs[id]
	if !ok {
		return repository.ErrPOINotFound
	}
	for k, v := range set {
		switch k {
		case "name":
			p.Name = v.(string)
		case "encryptedLat":
			p.EncryptedLat = v.(string)
		case "encryptedLng":
			p.EncryptedLng = v.(string)
		case "description":
			p.Description = v.(string)
		case "category":
			p.Category = v.(string)
		case "updatedAt":
			p.UpdatedAt = v.(time.Time)
		case "updatedBy":
			p.UpdatedBy = v.(string)
		}
	}
	f.docs[id] = p
	return nil
}

func (f *fakePOIStore) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	if _, ok := f.docs[id]; !ok {
		return repository.ErrPOINotFound
	}
	delete(f.docs, id)
	return nil
}

func (f *fakePOIStore) List(_ context.Context, limit int64, after *primitive.ObjectID) ([]model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := []model.POI{}
	for _, p := range f.sorted() {
		if after != nil && p.ID.Hex() <= after.Hex() {
			continue
		}
		if int64(len(out)) == limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePOIStore) ListAll(_ context.Context) ([]model.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.sorted(), nil
}

func (f *fakePOIStore) sorted() []model.POI {
	out := make([]model.POI, 0, len(f.docs))
	for _, p := range f.docs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

type fakeHistoryStore struct {
	entries   []model.SearchHistoryEntry
	insertErr error
	lastLimit int64
}

func (f *fakeHistoryStore) Insert(_ context.Context, entry *model.SearchHistoryEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	entry.ID = primitive.NewObjectID()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryStore) ListRecent(_ context.Context, userID string, limit int64) ([]model.SearchHistoryEntry, error) {
	f.lastLimit = limit
	out := []model.SearchHistoryEntry{}
	for i := len(f.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}
