package stream

import (
	"context"
	"fmt"

	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/logger"
	"github.com/malekmuhammad848-blip/Smart-Music-App-Cent/model"
)

// AccessValidator decides whether a (user, track, quality) request is
// permitted. Decisions are evaluated fresh on every request.
type AccessValidator struct {
	metadata     MetadataStore
	users        UserStore
	restrictions RestrictionStore
}

// NewAccessValidator creates an AccessValidator over the given collaborators.
func NewAccessValidator(metadata MetadataStore, users UserStore, restrictions RestrictionStore) *AccessValidator {
	return &AccessValidator{
		metadata:     metadata,
		users:        users,
		restrictions: restrictions,
	}
}

// Evaluate applies the access rules in order: track existence, premium
// gating, regional restriction. The resolved track is returned alongside the
// decision so callers do not resolve metadata twice.
func (v *AccessValidator) Evaluate(ctx context.Context, userID, trackID int64, quality model.Quality) (model.AccessDecision, *model.Track, error) {
	track, err := v.metadata.Resolve(ctx, trackID)
	if err != nil {
		return model.AccessDecision{}, nil, fmt.Errorf("resolving track %d: %w", trackID, err)
	}
	if track == nil {
		return model.Deny(model.DenialTrackNotFound), nil, nil
	}

	// Freemium users are limited to medium quality.
	if quality > model.QualityMedium {
		premium, err := v.users.IsPremium(ctx, userID)
		if err != nil {
			return model.AccessDecision{}, nil, fmt.Errorf("checking premium status for user %d: %w", userID, err)
		}
		if !premium {
			return model.Deny(model.DenialPremiumRequired), nil, nil
		}
	}

	restriction, err := v.restrictions.Get(ctx, trackID)
	if err != nil {
		return model.AccessDecision{}, nil, fmt.Errorf("loading restrictions for track %d: %w", trackID, err)
	}
	if restriction != nil {
		country, err := v.users.Country(ctx, userID)
		if err != nil {
			return model.AccessDecision{}, nil, fmt.Errorf("resolving country for user %d: %w", userID, err)
		}
		if restriction.Blocks(country) {
			logger.Debug("track blocked by region",
				logger.Int64("trackId", trackID),
				logger.Int64("userId", userID),
				logger.String("country", country))
			return model.Deny(model.DenialRegionBlocked), nil, nil
		}
	}

	return model.Allow(), track, nil
}
