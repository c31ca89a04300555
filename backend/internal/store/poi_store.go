// Package store persists POIs and trip drafts behind gorm,
// following the teacher's internal/models + gorm.Open(postgres.Open(...))
// wiring pattern (see internal/services). It is the concrete collaborator
// behind domain.PoiLookup and the actions.TripStore interface, kept
// outside internal/planning so the core stays persistence-agnostic.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/timegeo"
)

// PoiRecord is the gorm-mapped row for one POI. OpeningHours is stored as
// JSON since its shape (nested windows, per-day last-entry overrides) does
// not map cleanly onto relational columns.
type PoiRecord struct {
	ID                 string  `gorm:"primaryKey"`
	Name               string
	Lat                float64
	Lng                float64
	Tags               string // comma-joined; short enough not to warrant a join table
	OpeningHoursJSON   string  `gorm:"type:text"`
	AvgVisitMin        float64
	VisitMinStd        float64
	QueueMinMean       float64
	QueueMinStd        float64
	WheelchairAccess   bool
	StairsRequired     bool
	SeatingAvailable   bool
	RestroomNearby     bool
	WeatherSensitivity int
	CrowdingKey        string
}

func (PoiRecord) TableName() string { return "pois" }

// PoiStore is a gorm-backed domain.PoiLookup with write operations for the
// places.* actions.
type PoiStore struct {
	db *gorm.DB
}

// NewPoiStore wraps an already-opened gorm connection.
func NewPoiStore(db *gorm.DB) *PoiStore {
	return &PoiStore{db: db}
}

// Migrate creates/updates the pois table.
func (s *PoiStore) Migrate() error {
	return s.db.AutoMigrate(&PoiRecord{})
}

func toRecord(p *domain.Poi) (PoiRecord, error) {
	var ohJSON string
	if p.OpeningHours != nil {
		b, err := json.Marshal(p.OpeningHours)
		if err != nil {
			return PoiRecord{}, fmt.Errorf("store: marshal opening hours for %s: %w", p.ID, err)
		}
		ohJSON = string(b)
	}
	return PoiRecord{
		ID: p.ID, Name: p.Name, Lat: p.Lat, Lng: p.Lng,
		Tags:               joinTags(p.Tags),
		OpeningHoursJSON:   ohJSON,
		AvgVisitMin:        p.AvgVisitMin,
		VisitMinStd:        p.VisitMinStd,
		QueueMinMean:       p.QueueMinMean,
		QueueMinStd:        p.QueueMinStd,
		WheelchairAccess:   p.WheelchairAccess,
		StairsRequired:     p.StairsRequired,
		SeatingAvailable:   p.SeatingAvailable,
		RestroomNearby:     p.RestroomNearby,
		WeatherSensitivity: p.WeatherSensitivity,
		CrowdingKey:        p.CrowdingKey,
	}, nil
}

func fromRecord(r PoiRecord) (*domain.Poi, error) {
	var oh *timegeo.OpeningHours
	if r.OpeningHoursJSON != "" {
		oh = &timegeo.OpeningHours{}
		if err := json.Unmarshal([]byte(r.OpeningHoursJSON), oh); err != nil {
			return nil, fmt.Errorf("store: unmarshal opening hours for %s: %w", r.ID, err)
		}
	}
	return &domain.Poi{
		ID: r.ID, Name: r.Name, Lat: r.Lat, Lng: r.Lng,
		Tags:               splitTags(r.Tags),
		OpeningHours:       oh,
		AvgVisitMin:        r.AvgVisitMin,
		VisitMinStd:        r.VisitMinStd,
		QueueMinMean:       r.QueueMinMean,
		QueueMinStd:        r.QueueMinStd,
		WheelchairAccess:   r.WheelchairAccess,
		StairsRequired:     r.StairsRequired,
		SeatingAvailable:   r.SeatingAvailable,
		RestroomNearby:     r.RestroomNearby,
		WeatherSensitivity: r.WeatherSensitivity,
		CrowdingKey:        r.CrowdingKey,
	}, nil
}

// GetPoi implements domain.PoiLookup with a per-call DB round trip. Hot
// paths (the scheduler's inner loop) should resolve their candidate set
// once via LoadMany and use a domain.MapPoiLookup instead.
func (s *PoiStore) GetPoi(id string) (*domain.Poi, bool) {
	var rec PoiRecord
	if err := s.db.First(&rec, "id = ?", id).Error; err != nil {
		return nil, false
	}
	poi, err := fromRecord(rec)
	if err != nil {
		return nil, false
	}
	return poi, true
}

// LoadMany resolves a batch of POI ids into a domain.MapPoiLookup in one
// query, for callers (the scheduler, the robustness evaluator) that need
// an in-memory lookup for the duration of one planning call.
func (s *PoiStore) LoadMany(ctx context.Context, ids []string) (domain.MapPoiLookup, error) {
	var recs []PoiRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: load pois: %w", err)
	}
	out := make(domain.MapPoiLookup, len(recs))
	for _, r := range recs {
		poi, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		out[poi.ID] = poi
	}
	return out, nil
}

// Upsert writes a POI, for places.resolve_entities results worth caching
// and for operator-curated POI data.
func (s *PoiStore) Upsert(ctx context.Context, p *domain.Poi) error {
	rec, err := toRecord(p)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

// ResolveEntities implements actions.PlacesSearch by falling back to a
// case-insensitive name substring match over the stored POI set. A production
// deployment would route this to an external places API instead; this
// store-backed version keeps the action usable without one.
func (s *PoiStore) ResolveEntities(ctx context.Context, query string, lat, lng *float64, limit int) ([]domain.Poi, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []PoiRecord
	q := s.db.WithContext(ctx).Where("name ILIKE ?", "%"+query+"%").Limit(limit)
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("store: resolve entities: %w", err)
	}
	out := make([]domain.Poi, 0, len(recs))
	for _, r := range recs {
		poi, err := fromRecord(r)
		if err != nil {
			continue
		}
		out = append(out, *poi)
	}
	return out, nil
}

// GetPoiFacts implements actions.PlacesSearch's batch-facts lookup.
func (s *PoiStore) GetPoiFacts(ctx context.Context, poiIDs []string) (map[string]domain.Poi, error) {
	lookup, err := s.LoadMany(ctx, poiIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Poi, len(lookup))
	for id, p := range lookup {
		out[id] = *p
	}
	return out, nil
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
