// Package tier holds subscription tiers and the static policy attached to them.
package tier

import "strings"

// Tier is a user's subscription level.
type Tier string

// Known tiers.
const (
	Free    Tier = "free"
	Premium Tier = "premium"
	Family  Tier = "family"
)

// Parse normalizes a client-supplied tier. Empty or unknown values resolve to Free.
func Parse(s string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case Free, Premium, Family:
		return t
	default:
		return Free
	}
}

// Known reports whether t is one of the defined tiers.
func Known(t Tier) bool {
	switch t {
	case Free, Premium, Family:
		return true
	default:
		return false
	}
}

// Limits holds the numeric caps for a tier.
type Limits struct {
	MaxMessagesPerDay      Limit `json:"maxMessagesPerDay"`
	MaxImageAnalysisPerDay Limit `json:"maxImageAnalysisPerDay"`
}

// Features is the capability set a tier unlocks.
type Features struct {
	AdvancedModel      bool `json:"advancedModel"`
	ScreenshotAnalysis bool `json:"screenshotAnalysis"`
	ScamDetection      bool `json:"scamDetection"`
	EmergencyFeatures  bool `json:"emergencyFeatures"`
	QuickActions       bool `json:"quickActions"`
	FamilyPortal       bool `json:"familyPortal"`

	MaxMessagesPerDay      Limit `json:"maxMessagesPerDay"`
	MaxImageAnalysisPerDay Limit `json:"maxImageAnalysisPerDay"`
}
