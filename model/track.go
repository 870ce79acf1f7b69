package model

import (
	"fmt"
	"time"
)

// AudioFormat is the stored codec of a track's source file.
type AudioFormat string

const (
	FormatMP3  AudioFormat = "mp3"
	FormatFLAC AudioFormat = "flac"
	FormatAAC  AudioFormat = "aac"
	FormatOpus AudioFormat = "opus"
	FormatM4A  AudioFormat = "m4a"
)

// Lossless reports whether the format can be served as-is for a
// lossless-quality request without transcoding.
func (f AudioFormat) Lossless() bool {
	return f == FormatFLAC
}

// ContentType returns the MIME type used when serving this format.
func (f AudioFormat) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	case FormatAAC:
		return "audio/aac"
	case FormatOpus:
		return "audio/opus"
	case FormatM4A:
		return "audio/mp4"
	default:
		return "audio/mpeg"
	}
}

// Track represents an audio track in the music library.
type Track struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Artist    string      `json:"artist"`
	Album     string      `json:"album"`
	FileName  string      `json:"-"` // Object name inside the track's storage prefix
	Format    AudioFormat `json:"format"`
	Duration  float64     `json:"duration"` // Duration in seconds
	PlayCount int64       `json:"playCount"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// SourceKey is the object-store key of the track's original audio file.
func (t *Track) SourceKey() string {
	return fmt.Sprintf("audio/%d/%s", t.ID, t.FileName)
}
