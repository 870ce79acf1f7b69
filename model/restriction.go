package model

// TrackRestriction carries the regional availability rules for a track.
// BlockedCountries holds ISO country codes the track must not be served to.
type TrackRestriction struct {
	TrackID          int64    `json:"trackId"`
	BlockedCountries []string `json:"blockedCountries"`
}

// Blocks reports whether the restriction applies to the given country.
func (r *TrackRestriction) Blocks(country string) bool {
	for _, c := range r.BlockedCountries {
		if c == country {
			return true
		}
	}
	return false
}
