package model

// Quality is a named bitrate tier for audio delivery. Tiers are ordered, so
// access-policy comparisons like "at most medium" work on the raw value.
type Quality int

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
	QualityVeryHigh
	QualityLossless
)

// Bitrate returns the target bitrate of the tier in bits per second.
// Lossless reports the nominal FLAC rate.
func (q Quality) Bitrate() int {
	switch q {
	case QualityLow:
		return 64000
	case QualityMedium:
		return 128000
	case QualityHigh:
		return 192000
	case QualityVeryHigh:
		return 320000
	case QualityLossless:
		return 1411000
	default:
		return 192000
	}
}

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityVeryHigh:
		return "very_high"
	case QualityLossless:
		return "lossless"
	default:
		return "high"
	}
}

// ParseQuality maps a quality name to its tier. Unknown names fall back to
// high, matching the default streaming quality.
func ParseQuality(s string) Quality {
	switch s {
	case "low":
		return QualityLow
	case "medium":
		return QualityMedium
	case "high":
		return QualityHigh
	case "very_high", "veryhigh":
		return QualityVeryHigh
	case "lossless":
		return QualityLossless
	default:
		return QualityHigh
	}
}
