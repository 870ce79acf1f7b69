package stream

import (
	"context"
	"io"
	"time"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// MetadataStore resolves a track identifier to its stored metadata.
// A missing track is reported as (nil, nil).
type MetadataStore interface {
	Resolve(ctx context.Context, trackID int64) (*model.Track, error)
}

// ObjectStore supplies the raw encoded audio bytes for a track by key.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// FetchRange fetches the inclusive byte range [start, end]; end < 0
	// means to the end of the object. Returns the range length and the
	// full object size.
	FetchRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, int64, int64, error)
}

// UserStore exposes the subscription and geo attributes access policy needs.
type UserStore interface {
	IsPremium(ctx context.Context, userID int64) (bool, error)
	Country(ctx context.Context, userID int64) (string, error)
}

// RestrictionStore returns the regional restriction rules for a track, or
// (nil, nil) when the track is unrestricted.
type RestrictionStore interface {
	Get(ctx context.Context, trackID int64) (*model.TrackRestriction, error)
}

// ArtifactCache stores derived artifacts (transcoded audio, HLS manifests,
// waveform envelopes) with expiry. Cache failures must be treated as misses;
// the cache is an optimization, never a correctness dependency.
type ArtifactCache interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Transcoder converts a source audio stream into MP3 at the target bitrate.
// The returned stream is produced incrementally; closing it releases the
// underlying codec resources.
type Transcoder interface {
	Transcode(ctx context.Context, src io.Reader, format model.AudioFormat, bitrate int) (io.ReadCloser, error)
}

// DurationProber reads the playable duration of an encoded stream, used when
// stored metadata carries none.
type DurationProber interface {
	ProbeDuration(ctx context.Context, src io.Reader) (float64, error)
}

// WaveformExtractor computes a fixed-length amplitude envelope from an
// encoded audio stream.
type WaveformExtractor interface {
	Extract(ctx context.Context, src io.Reader, format model.AudioFormat, points int) ([]float64, error)
}

// SegmentEncoder produces the actual HLS media segments for a track in the
// background. The manifest itself is built deterministically up front; the
// encoder fills in the .ts files the manifest refers to.
type SegmentEncoder interface {
	Encode(ctx context.Context, trackID int64, sourceKey string) error
}
