package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// RestrictionRepository defines the interface for regional restriction rules.
type RestrictionRepository interface {
	Get(ctx context.Context, trackID int64) (*model.TrackRestriction, error)
}

// mysqlRestrictionRepository implements RestrictionRepository for MySQL.
type mysqlRestrictionRepository struct {
	DB *sql.DB
}

// NewMySQLRestrictionRepository creates a new instance of mysqlRestrictionRepository.
func NewMySQLRestrictionRepository(db *sql.DB) RestrictionRepository {
	return &mysqlRestrictionRepository{DB: db}
}

// Get returns the restriction row for a track, or (nil, nil) when the track
// is unrestricted. blocked_countries is stored as a comma separated list.
func (r *mysqlRestrictionRepository) Get(ctx context.Context, trackID int64) (*model.TrackRestriction, error) {
	var blocked string
	err := r.DB.QueryRowContext(ctx,
		`SELECT blocked_countries FROM track_restrictions WHERE track_id = ?`, trackID).Scan(&blocked)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read restrictions for track %d: %w", trackID, err)
	}

	restriction := &model.TrackRestriction{TrackID: trackID}
	for _, c := range strings.Split(blocked, ",") {
		if c = strings.TrimSpace(c); c != "" {
			restriction.BlockedCountries = append(restriction.BlockedCountries, c)
		}
	}
	return restriction, nil
}
