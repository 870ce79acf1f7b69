package repository

import (
	"context"
	"fmt"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"

	"gorm.io/gorm"
)

// PlayEventRepository persists playback telemetry. Backed by GORM; telemetry
// is the newer module and does not share the hand-written SQL layer.
type PlayEventRepository interface {
	Create(ctx context.Context, event *model.PlayEvent) error
	MarkCompleted(ctx context.Context, eventID string) error
	RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PlayEvent, error)
}

type gormPlayEventRepository struct {
	db *gorm.DB
}

// NewGormPlayEventRepository creates a GORM-backed PlayEventRepository.
func NewGormPlayEventRepository(db *gorm.DB) PlayEventRepository {
	return &gormPlayEventRepository{db: db}
}

// Create appends one play event.
func (r *gormPlayEventRepository) Create(ctx context.Context, event *model.PlayEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create play event: %w", err)
	}
	return nil
}

// MarkCompleted flips the completed flag, driven by playback-end signaling.
func (r *gormPlayEventRepository) MarkCompleted(ctx context.Context, eventID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.PlayEvent{}).
		Where("id = ?", eventID).
		Update("completed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark play event %s completed: %w", eventID, res.Error)
	}
	return nil
}

// RecentByUser returns the user's latest play events, newest first.
func (r *gormPlayEventRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]model.PlayEvent, error) {
	var events []model.PlayEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("played_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list play events for user %d: %w", userID, err)
	}
	return events, nil
}
