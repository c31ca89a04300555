package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"wayfare-backend/internal/planning/actions"
	"wayfare-backend/internal/planning/domain"
)

// TripRecord is the gorm-mapped row for one trip draft's persisted plan.
type TripRecord struct {
	ID           string    `gorm:"primaryKey"`
	TimelineJSON string    `gorm:"type:text"`
	ItemsJSON    string    `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (TripRecord) TableName() string { return "trip_plans" }

// TripStore is a gorm-backed actions.TripStore.
type TripStore struct {
	db *gorm.DB
}

// NewTripStore wraps an already-opened gorm connection.
func NewTripStore(db *gorm.DB) *TripStore {
	return &TripStore{db: db}
}

// Migrate creates/updates the trip_plans table.
func (s *TripStore) Migrate() error {
	return s.db.AutoMigrate(&TripRecord{})
}

// LoadDraft implements actions.TripStore.
func (s *TripStore) LoadDraft(ctx context.Context, tripID string) (any, any, error) {
	var rec TripRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", tripID).Error; err != nil {
		return nil, nil, fmt.Errorf("store: load draft %s: %w", tripID, err)
	}
	var timeline []domain.PlannedStop
	if rec.TimelineJSON != "" {
		if err := json.Unmarshal([]byte(rec.TimelineJSON), &timeline); err != nil {
			return nil, nil, fmt.Errorf("store: unmarshal timeline for %s: %w", tripID, err)
		}
	}
	var items any
	if rec.ItemsJSON != "" {
		if err := json.Unmarshal([]byte(rec.ItemsJSON), &items); err != nil {
			return nil, nil, fmt.Errorf("store: unmarshal items for %s: %w", tripID, err)
		}
	}
	return timeline, items, nil
}

// ApplyUserEdit implements actions.TripStore. Each edit is applied to the
// persisted timeline by item id; unknown ids fail individually rather than
// aborting the whole batch, since a partial apply still helps the caller.
func (s *TripStore) ApplyUserEdit(ctx context.Context, tripID string, edits []actions.UserEdit) ([]actions.EditResult, error) {
	var rec TripRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", tripID).Error; err != nil {
		return nil, fmt.Errorf("store: load draft %s: %w", tripID, err)
	}
	var timeline []domain.PlannedStop
	if rec.TimelineJSON != "" {
		if err := json.Unmarshal([]byte(rec.TimelineJSON), &timeline); err != nil {
			return nil, fmt.Errorf("store: unmarshal timeline for %s: %w", tripID, err)
		}
	}

	results := make([]actions.EditResult, 0, len(edits))
	for _, e := range edits {
		idx := indexOfStop(timeline, e.ItemID)
		switch {
		case idx < 0:
			results = append(results, actions.EditResult{ItemID: e.ItemID, Success: false, Message: "item not found"})
		case e.Type == "delete":
			timeline = append(timeline[:idx], timeline[idx+1:]...)
			results = append(results, actions.EditResult{ItemID: e.ItemID, Success: true})
		case e.Type == "move":
			if shift, ok := e.Data["shiftMin"].(float64); ok {
				timeline[idx].StartMin += int(shift)
				timeline[idx].EndMin += int(shift)
			}
			results = append(results, actions.EditResult{ItemID: e.ItemID, Success: true})
		case e.Type == "update":
			if notes, ok := e.Data["notes"].(string); ok {
				timeline[idx].Notes = notes
			}
			results = append(results, actions.EditResult{ItemID: e.ItemID, Success: true})
		default:
			results = append(results, actions.EditResult{ItemID: e.ItemID, Success: false, Message: "unknown edit type " + e.Type})
		}
	}

	b, err := json.Marshal(timeline)
	if err != nil {
		return results, fmt.Errorf("store: marshal timeline for %s: %w", tripID, err)
	}
	rec.TimelineJSON = string(b)
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return results, fmt.Errorf("store: save draft %s: %w", tripID, err)
	}
	return results, nil
}

// PersistPlan implements actions.TripStore.
func (s *TripStore) PersistPlan(ctx context.Context, tripID string, timeline []domain.PlannedStop) error {
	b, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("store: marshal timeline for %s: %w", tripID, err)
	}
	rec := TripRecord{ID: tripID, TimelineJSON: string(b)}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func indexOfStop(stops []domain.PlannedStop, id string) int {
	for i, s := range stops {
		if s.ID == id {
			return i
		}
	}
	return -1
}
