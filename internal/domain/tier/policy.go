package tier

// DefaultFreeMessagesPerDay is the free-tier daily message cap.
const DefaultFreeMessagesPerDay = 20

// Policy maps tiers to limits and features. It is immutable once built;
// With* methods return modified copies.
//
// Limits and features are two independent tables. Family has limits but no
// feature set, so Features(Family) resolves to the free feature set.
type Policy struct {
	limits   map[Tier]Limits
	features map[Tier]Features
}

// DefaultPolicy returns the built-in tier tables.
func DefaultPolicy() Policy {
	return Policy{
		limits: map[Tier]Limits{
			Free: {
				MaxMessagesPerDay:      Limited(DefaultFreeMessagesPerDay),
				MaxImageAnalysisPerDay: Limited(0),
			},
			Premium: {
				MaxMessagesPerDay:      Unlimited(),
				MaxImageAnalysisPerDay: Unlimited(),
			},
			Family: {
				MaxMessagesPerDay:      Unlimited(),
				MaxImageAnalysisPerDay: Unlimited(),
			},
		},
		features: map[Tier]Features{
			Free: {
				EmergencyFeatures:      true,
				QuickActions:           true,
				MaxMessagesPerDay:      Limited(DefaultFreeMessagesPerDay),
				MaxImageAnalysisPerDay: Limited(0),
			},
			Premium: {
				AdvancedModel:          true,
				ScreenshotAnalysis:     true,
				ScamDetection:          true,
				EmergencyFeatures:      true,
				QuickActions:           true,
				FamilyPortal:           true,
				MaxMessagesPerDay:      Unlimited(),
				MaxImageAnalysisPerDay: Unlimited(),
			},
		},
	}
}

// WithLimits returns a copy of p with the limits of t replaced. When t also has
// a feature set, its duplicated limit fields are kept in sync.
func (p Policy) WithLimits(t Tier, l Limits) Policy {
	out := p.clone()
	out.limits[t] = l
	if f, ok := out.features[t]; ok {
		f.MaxMessagesPerDay = l.MaxMessagesPerDay
		f.MaxImageAnalysisPerDay = l.MaxImageAnalysisPerDay
		out.features[t] = f
	}
	return out
}

// Limits returns the caps for t, falling back to Free for unknown tiers.
func (p Policy) Limits(t Tier) Limits {
	if l, ok := p.limits[t]; ok {
		return l
	}
	return p.limits[Free]
}

// Features returns the capability set for t, falling back to Free when t has none.
func (p Policy) Features(t Tier) Features {
	if f, ok := p.features[t]; ok {
		return f
	}
	return p.features[Free]
}

// HasFeatures reports whether t has its own feature set (false for Family by default).
func (p Policy) HasFeatures(t Tier) bool {
	_, ok := p.features[t]
	return ok
}

func (p Policy) clone() Policy {
	out := Policy{
		limits:   make(map[Tier]Limits, len(p.limits)),
		features: make(map[Tier]Features, len(p.features)),
	}
	for k, v := range p.limits {
		out.limits[k] = v
	}
	for k, v := range p.features {
		out.features[k] = v
	}
	return out
}
