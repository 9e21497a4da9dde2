package handler

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

// memStore is an in-memory stand-in for both databases.
type memStore struct {
	mu      sync.Mutex
	users   map[string]model.User
	pois    map[primitive.ObjectID]model.POI
	history []model.SearchHistoryEntry
	revoked map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]model.User{},
		pois:    map[primitive.ObjectID]model.POI{},
		revoked: map[string]time.Time{},
	}
}

func (m *memStore) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = at
		m.users[id] = u
	}
	return nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hash
		m.users[id] = u
	}
	return nil
}

func (m *memStore) Revoke(_ context.Context, tokenID, _ string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = expiresAt
	return nil
}

func (m *memStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[tokenID]
	return ok && exp.After(time.Now()), nil
}

type memPOIs struct{ *memStore }

func (m memPOIs) Insert(_ context.Context, poi *model.POI) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	poi.ID = primitive.NewObjectID()
	m.pois[poi.ID] = *poi
	return poi.ID, nil
}

func (m memPOIs) InsertMany(_ context.Context, pois []model.POI) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]primitive.ObjectID, len(pois))
	for i := range pois {
		pois[i].ID = primitive.NewObjectID()
		m.pois[pois[i].ID] = pois[i]
		ids[i] = pois[i].ID
	}
	return ids, nil
}

func (m memPOIs) GetByID(_ context.Context, id primitive.ObjectID) (*model.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pois[id]
	if !ok {
		return nil, repository.ErrPOINotFound
	}
	return &p, nil
}

func (m memPOIs) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.POI, error) {
	out := make([]model.POI, 0, len(ids))
	for _, id := range ids {
		if p, err := m.GetByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m memPOIs) Update(_ context.Context, id primitive.ObjectID, set bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pois[id]
	if !ok {
		return repository.ErrPOINotFound
	}
	if v, ok := set["name"].(string); ok {
		p.Name = v
	}
	if v, ok := set["updatedBy"].(string); ok {
		p.UpdatedBy = v
	}
	m.pois[id] = p
	return nil
}

func (m memPOIs) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pois[id]; !ok {
		return repository.ErrPOINotFound
	}
	delete(m.pois, id)
	return nil
}

func (m memPOIs) List(ctx context.Context, limit int64, after *primitive.ObjectID) ([]model.POI, error) {
	all, _ := m.ListAll(ctx)
	out := []model.POI{}
	for _, p := range all {
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

func (m memPOIs) ListAll(_ context.Context) ([]model.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.POI, 0, len(m.pois))
	for _, p := range m.pois {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

type memHistory struct{ *memStore }

func (m memHistory) Insert(_ context.Context, entry *model.SearchHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = primitive.NewObjectID()
	m.history = append(m.history, *entry)
	return nil
}

func (m memHistory) ListRecent(_ context.Context, userID string, limit int64) ([]model.SearchHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.SearchHistoryEntry{}
	for i := len(m.history) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if m.history[i].UserID == userID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}
