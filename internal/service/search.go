package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/poivault/poivault-go/internal/crypto"
	"github.com/poivault/poivault-go/internal/geo"
	"github.com/poivault/poivault-go/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultRadiusMeters = 10000
	HistoryLimit        = 50
)

// POIScanner returns the complete POI collection.
type POIScanner interface {
	ListAll(ctx context.Context) ([]model.POI, error)
}

// HistoryStore persists the search audit log.
type HistoryStore interface {
	Insert(ctx context.Context, entry *model.SearchHistoryEntry) error
	ListRecent(ctx context.Context, userID string, limit int64) ([]model.SearchHistoryEntry, error)
}

// SearchService runs radius searches over encrypted POIs. The query and
// every stored POI are decrypted server side with the shared coordinate key.
type SearchService struct {
	pois    POIScanner
	history HistoryStore
	cipher  *crypto.CoordinateCipher
	logger  *zap.Logger
	now     func() time.Time
}

// NewSearchService creates a new SearchService.
func NewSearchService(pois POIScanner, history HistoryStore, cipher *crypto.CoordinateCipher, logger *zap.Logger) *SearchService {
	return &SearchService{
		pois:    pois,
		history: history,
		cipher:  cipher,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Search returns every POI within the query radius of the query center,
// nearest first, with Distance in kilometers. POIs whose coordinates cannot
// be decrypted are left out.
func (s *SearchService) Search(ctx context.Context, callerID string, q model.SearchQuery) ([]model.SearchResult, error) {
	if strings.TrimSpace(q.EncryptedLat) == "" || strings.TrimSpace(q.EncryptedLng) == "" {
		return nil, ErrQueryIncomplete
	}

	s.record(ctx, callerID, q)

	centerLat, centerLng, err := s.cipher.Decrypt(q.EncryptedLat, q.EncryptedLng)
	if err != nil {
		return nil, err
	}
	center := geo.Point{Lat: centerLat, Lng: centerLng}

	radius := float64(DefaultRadiusMeters)
	if strings.TrimSpace(q.EncryptedRadius) != "" {
		radius, err = s.cipher.DecryptScalar(q.EncryptedRadius)
		if err != nil {
			return nil, err
		}
		if radius <= 0 {
			return nil, ErrInvalidRadius
		}
	}

	pois, err := s.pois.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0)
	skipped := 0
	for _, poi := range pois {
		lat, lng, err := s.cipher.Decrypt(poi.EncryptedLat, poi.EncryptedLng)
		if err != nil {
			skipped++
			s.logger.Debug("skipping poi with unreadable coordinates",
				zap.String("poiId", poi.ID.Hex()),
				zap.Error(err),
			)
			continue
		}

		meters := geo.Haversine(center, geo.Point{Lat: lat, Lng: lng})
		// Written so a NaN distance is never kept.
		if !(meters <= radius) {
			continue
		}
		km := geo.MetersToKilometers(meters)
		results = append(results, model.SearchResult{POI: poi, Distance: &km})
	}
	withinRadius := len(results)

	sortByDistance(results)

	s.logger.Info("search completed",
		zap.String("userId", callerID),
		zap.Float64("radiusMeters", radius),
		zap.Int("total", len(pois)),
		zap.Int("skippedInvalid", skipped),
		zap.Int("withinRadius", withinRadius),
		zap.Int("returned", len(results)),
	)

	return results, nil
}

// History returns the caller's most recent searches, newest first.
func (s *SearchService) History(ctx context.Context, callerID string) ([]model.SearchHistoryEntry, error) {
	return s.history.ListRecent(ctx, callerID, HistoryLimit)
}

// record appends q to the search history. Failures are logged and dropped.
func (s *SearchService) record(ctx context.Context, callerID string, q model.SearchQuery) {
	entry := &model.SearchHistoryEntry{
		UserID:    callerID,
		Query:     q,
		Timestamp: s.now(),
	}
	if err := s.history.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record search history",
			zap.String("userId", callerID),
			zap.Error(err),
		)
	}
}

// sortByDistance orders results nearest first. The sort is stable and a
// missing distance sorts last; a distance of zero is a real distance.
func sortByDistance(results []model.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return distanceOrInf(results[i]) < distanceOrInf(results[j])
	})
}

func distanceOrInf(r model.SearchResult) float64 {
	if r.Distance == nil {
		return math.Inf(1)
	}
	return *r.Distance
}
