package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// TrackRepository defines the interface for track metadata operations.
type TrackRepository interface {
	Resolve(ctx context.Context, trackID int64) (*model.Track, error)
	Create(ctx context.Context, track *model.Track) (int64, error)
	Delete(ctx context.Context, trackID int64) error
	IncrementPlayCount(ctx context.Context, trackID int64) error
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{DB: db}
}

// Resolve retrieves a track's metadata by ID. A missing track is (nil, nil).
func (r *mysqlTrackRepository) Resolve(ctx context.Context, trackID int64) (*model.Track, error) {
	query := `SELECT id, title, artist, album, file_name, format, duration, play_count, created_at, updated_at
	           FROM tracks WHERE id = ?`
	row := r.DB.QueryRowContext(ctx, query, trackID)

	track := &model.Track{}
	err := row.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.FileName,
		&track.Format, &track.Duration, &track.PlayCount, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", trackID, err)
	}
	return track, nil
}

// Create adds a new track to the database.
func (r *mysqlTrackRepository) Create(ctx context.Context, track *model.Track) (int64, error) {
	query := `INSERT INTO tracks (title, artist, album, file_name, format, duration)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, query,
		track.Title, track.Artist, track.Album, track.FileName, string(track.Format), track.Duration)
	if err != nil {
		return 0, fmt.Errorf("failed to execute Create: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for Create: %w", err)
	}
	return id, nil
}

// Delete removes a track row. The caller is responsible for removing the
// stored audio object.
func (r *mysqlTrackRepository) Delete(ctx context.Context, trackID int64) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, trackID); err != nil {
		return fmt.Errorf("failed to delete track %d: %w", trackID, err)
	}
	return nil
}

// IncrementPlayCount bumps the track's play counter by one.
func (r *mysqlTrackRepository) IncrementPlayCount(ctx context.Context, trackID int64) error {
	query := `UPDATE tracks SET play_count = play_count + 1 WHERE id = ?`
	if _, err := r.DB.ExecContext(ctx, query, trackID); err != nil {
		return fmt.Errorf("failed to increment play count for track %d: %w", trackID, err)
	}
	return nil
}
