package audio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Segment is one fixed-duration piece of an HLS stream.
type Segment struct {
	Index    int     `json:"index"`
	Duration float64 `json:"duration"`
	URI      string  `json:"uri"`
}

// Manifest is a VOD HLS playlist: an ordered segment sequence plus target
// and total duration. Serialization is deterministic for identical input,
// which is what makes manifests cacheable.
type Manifest struct {
	TrackID        int64
	TargetDuration int
	TotalDuration  float64
	Segments       []Segment
}

// SegmentURI returns the relative URI for a segment index, following the
// segment_%03d.ts naming ffmpeg uses.
func SegmentURI(trackID int64, index int) string {
	return fmt.Sprintf("/stream/hls/%d/segment_%03d.ts", trackID, index)
}

// BuildManifest splits a track of the given total duration into fixed-size
// segments. The last segment may be shorter. targetSeconds <= 0 falls back
// to 10 second segments.
func BuildManifest(trackID int64, totalDuration float64, targetSeconds int) *Manifest {
	if targetSeconds <= 0 {
		targetSeconds = 10
	}

	m := &Manifest{
		TrackID:        trackID,
		TargetDuration: targetSeconds,
		TotalDuration:  totalDuration,
	}
	if totalDuration <= 0 {
		return m
	}

	target := float64(targetSeconds)
	full := int(totalDuration / target)
	remainder := totalDuration - float64(full)*target

	for i := 0; i < full; i++ {
		m.Segments = append(m.Segments, Segment{
			Index:    i,
			Duration: target,
			URI:      SegmentURI(trackID, i),
		})
	}
	// Ignore sub-millisecond remainders left by float division.
	if remainder > 0.001 {
		m.Segments = append(m.Segments, Segment{
			Index:    full,
			Duration: remainder,
			URI:      SegmentURI(trackID, full),
		})
	}

	m.TargetDuration = int(math.Ceil(m.maxSegmentDuration()))
	return m
}

func (m *Manifest) maxSegmentDuration() float64 {
	var max float64
	for _, s := range m.Segments {
		if s.Duration > max {
			max = s.Duration
		}
	}
	return max
}

// M3U8 serializes the manifest as a VOD playlist.
func (m *Manifest) M3U8() string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", m.TargetDuration)
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")

	for _, s := range m.Segments {
		fmt.Fprintf(&b, "#EXTINF:%.1f,\n", s.Duration)
		b.WriteString(s.URI)
		b.WriteByte('\n')
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

// ParseManifest reads a VOD playlist produced by M3U8 back into a Manifest.
func ParseManifest(trackID int64, text string) (*Manifest, error) {
	m := &Manifest{TrackID: trackID}

	var pendingDuration float64
	var havePending bool
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			v, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"))
			if err != nil {
				return nil, fmt.Errorf("bad target duration line %q: %w", line, err)
			}
			m.TargetDuration = v
		case strings.HasPrefix(line, "#EXTINF:"):
			v := strings.TrimSuffix(strings.TrimPrefix(line, "#EXTINF:"), ",")
			d, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("bad segment duration line %q: %w", line, err)
			}
			pendingDuration = d
			havePending = true
		case line == "" || strings.HasPrefix(line, "#"):
			// Other tags carry no segment state.
		default:
			if !havePending {
				return nil, fmt.Errorf("segment URI %q without preceding #EXTINF", line)
			}
			m.Segments = append(m.Segments, Segment{
				Index:    len(m.Segments),
				Duration: pendingDuration,
				URI:      line,
			})
			m.TotalDuration += pendingDuration
			havePending = false
		}
	}

	if len(m.Segments) == 0 {
		return nil, fmt.Errorf("playlist has no segments")
	}
	return m, nil
}
