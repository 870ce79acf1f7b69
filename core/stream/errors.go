package stream

import (
	"errors"
	"fmt"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// Policy denials. These map to 4xx responses and are never retried.
var (
	ErrTrackNotFound   = errors.New("track not found")
	ErrPremiumRequired = errors.New("premium required for this quality")
	ErrRegionBlocked   = errors.New("content not available in your region")
)

// Infrastructure failures. These map to 5xx responses; the caller may retry
// the whole request, the core never retries a transcode on its own.
var (
	ErrSourceUnavailable = errors.New("audio source unavailable")
	ErrTranscodeFailed   = errors.New("transcoding failed")
)

// DenialError converts an access decision into the matching sentinel error.
// Returns nil for an allowed decision.
func DenialError(d model.AccessDecision) error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case model.DenialTrackNotFound:
		return ErrTrackNotFound
	case model.DenialPremiumRequired:
		return ErrPremiumRequired
	case model.DenialRegionBlocked:
		return ErrRegionBlocked
	default:
		return fmt.Errorf("access denied: %s", d.Reason)
	}
}

// IsDenial reports whether err is a policy denial rather than an
// infrastructure failure.
func IsDenial(err error) bool {
	return errors.Is(err, ErrTrackNotFound) ||
		errors.Is(err, ErrPremiumRequired) ||
		errors.Is(err, ErrRegionBlocked)
}
