package model

import "time"

// PlayEvent is one playback telemetry record. Events are append-only; the
// completed flag is flipped later by playback-end signaling, nothing else
// mutates a stored event.
type PlayEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    int64     `json:"userId" gorm:"index"`
	TrackID   int64     `json:"trackId" gorm:"index"`
	PlayedAt  time.Time `json:"playedAt"`
	Completed bool      `json:"completed"`
}

// TableName keeps the legacy table name used by the analytics jobs.
func (PlayEvent) TableName() string {
	return "listening_history"
}
