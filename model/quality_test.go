package model

import "testing"

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in   string
		want Quality
	}{
		{"low", QualityLow},
		{"medium", QualityMedium},
		{"high", QualityHigh},
		{"very_high", QualityVeryHigh},
		{"veryhigh", QualityVeryHigh},
		{"lossless", QualityLossless},
		{"", QualityHigh},
		{"ultra", QualityHigh},
	}
	for _, tt := range tests {
		if got := ParseQuality(tt.in); got != tt.want {
			t.Errorf("ParseQuality(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQualityBitrate(t *testing.T) {
	tests := []struct {
		q    Quality
		want int
	}{
		{QualityLow, 64000},
		{QualityMedium, 128000},
		{QualityHigh, 192000},
		{QualityVeryHigh, 320000},
		{QualityLossless, 1411000},
	}
	for _, tt := range tests {
		if got := tt.q.Bitrate(); got != tt.want {
			t.Errorf("%s.Bitrate() = %d, want %d", tt.q, got, tt.want)
		}
	}
}

func TestQualityOrdering(t *testing.T) {
	// Policy checks compare tiers directly; the order must hold.
	if !(QualityLow < QualityMedium && QualityMedium < QualityHigh &&
		QualityHigh < QualityVeryHigh && QualityVeryHigh < QualityLossless) {
		t.Error("quality tiers are not ordered low < medium < high < very_high < lossless")
	}
}

func TestQualityString(t *testing.T) {
	if QualityVeryHigh.String() != "very_high" {
		t.Errorf("QualityVeryHigh.String() = %q", QualityVeryHigh.String())
	}
	if got := ParseQuality(QualityLossless.String()); got != QualityLossless {
		t.Errorf("String/Parse round trip = %v", got)
	}
}
