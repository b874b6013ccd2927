package entities

import "time"

// Membership tiers. The zero value (no record) is the free tier.
const (
	TierDefault      = ""
	TierStandard     = "standard"
	TierPremium      = "premium"
	TierProfessional = "professional"
)

// Membership is a sender's tier assignment. ExpiresAt is written by the
// admin endpoint but is not read back to demote tiers.
type Membership struct {
	UserID    string
	Level     string
	ExpiresAt time.Time
}

// ValidTier reports whether level is one of the enumerated paid tiers or
// the default tier.
func ValidTier(level string) bool {
	switch level {
	case TierDefault, TierStandard, TierPremium, TierProfessional:
		return true
	}
	return false
}
