package model

// DenialReason says why a stream request was refused.
type DenialReason string

const (
	DenialTrackNotFound   DenialReason = "track_not_found"
	DenialPremiumRequired DenialReason = "premium_required"
	DenialRegionBlocked   DenialReason = "region_blocked"
)

// AccessDecision is the outcome of evaluating access policy for one request.
// Decisions are computed fresh per request and never cached, since premium
// status and restriction lists can change between calls.
type AccessDecision struct {
	Allowed bool
	Reason  DenialReason
}

// Allow returns a positive decision.
func Allow() AccessDecision {
	return AccessDecision{Allowed: true}
}

// Deny returns a negative decision with the given reason.
func Deny(reason DenialReason) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}
