package tier

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// unlimitedLabel is how an unlimited cap is rendered to clients.
const unlimitedLabel = "unlimited"

// Limit is a daily cap: either unlimited or a concrete non-negative count.
// The zero value is Limited(0).
type Limit struct {
	unlimited bool
	n         int
}

// Unlimited returns a cap with no upper bound.
func Unlimited() Limit { return Limit{unlimited: true} }

// Limited returns a cap of n. Negative n is clamped to 0.
func Limited(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n}
}

// LimitFromInt converts the config representation (-1 = unlimited) into a Limit.
func LimitFromInt(n int) Limit {
	if n < 0 {
		return Unlimited()
	}
	return Limited(n)
}

// IsUnlimited reports whether the cap has no upper bound.
func (l Limit) IsUnlimited() bool { return l.unlimited }

// Value returns the cap and true, or 0 and false when unlimited.
func (l Limit) Value() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Disabled reports whether the cap is Limited(0), i.e. the feature is unavailable.
func (l Limit) Disabled() bool { return !l.unlimited && l.n == 0 }

// Allows reports whether one more unit fits on top of used.
func (l Limit) Allows(used int) bool {
	return l.unlimited || used < l.n
}

// Remaining returns what is left after used, floored at zero.
// An unlimited cap stays unlimited.
func (l Limit) Remaining(used int) Limit {
	if l.unlimited {
		return l
	}
	return Limited(l.n - used)
}

func (l Limit) String() string {
	if l.unlimited {
		return unlimitedLabel
	}
	return strconv.Itoa(l.n)
}

// MarshalJSON renders unlimited as "unlimited" and a concrete cap as a number.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return json.Marshal(unlimitedLabel)
	}
	return json.Marshal(l.n)
}

// UnmarshalJSON accepts a number (negative = unlimited) or the "unlimited" label.
func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unlimitedLabel {
			return fmt.Errorf("invalid limit %q", s)
		}
		*l = Unlimited()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err //nolint:wrapcheck // json errors are self-describing
	}
	*l = LimitFromInt(n)
	return nil
}
