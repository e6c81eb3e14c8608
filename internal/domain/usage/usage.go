package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/silverline/internal/domain/tier"
	"github.com/kailas-cloud/silverline/internal/domain/usage/cost"
)

// Kind is the billable request category.
type Kind string

// Request kinds.
const (
	KindText       Kind = "text"
	KindVoice      Kind = "voice"
	KindScreenshot Kind = "screenshot"
	KindScam       Kind = "scam"
)

// Kinds lists every request kind in a stable order.
var Kinds = []Kind{KindText, KindVoice, KindScreenshot, KindScam}

// IsMessage reports whether k counts against the daily message cap.
func (k Kind) IsMessage() bool { return k == KindText || k == KindVoice }

// IsImage reports whether k counts against the image analysis cap.
func (k Kind) IsImage() bool { return k == KindScreenshot || k == KindScam }

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool { return k.IsMessage() || k.IsImage() }

// Day is a calendar date in ISO form (YYYY-MM-DD), always UTC.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the UTC day containing t.
func DayOf(t time.Time) Day { return Day(t.UTC().Format(dayLayout)) }

// ParseDay validates an ISO date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of d. Invalid days yield the zero time.
func (d Day) Time() time.Time {
	t, _ := time.Parse(dayLayout, string(d))
	return t
}

// Record is one user's consumption for one day. (UserID, Date) is its identity.
type Record struct {
	UserID             string
	Date               Day
	TextMessages       int
	VoiceMessages      int
	ScreenshotAnalyses int
	ScamDetections     int
	TotalCost          cost.Micros
}

// NewRecord returns a zeroed record for userID on day.
func NewRecord(userID string, day Day) Record {
	return Record{UserID: userID, Date: day}
}

// Messages is the combined text and voice count used for the message cap.
func (r Record) Messages() int { return r.TextMessages + r.VoiceMessages }

// ImageAnalyses is the combined screenshot and scam count used for the image cap.
func (r Record) ImageAnalyses() int { return r.ScreenshotAnalyses + r.ScamDetections }

// Count returns the counter for k.
func (r Record) Count(k Kind) int {
	switch k {
	case KindText:
		return r.TextMessages
	case KindVoice:
		return r.VoiceMessages
	case KindScreenshot:
		return r.ScreenshotAnalyses
	case KindScam:
		return r.ScamDetections
	default:
		return 0
	}
}

// Add increments the counter for k by one and accumulates c.
func (r *Record) Add(k Kind, c cost.Micros) {
	switch k {
	case KindText:
		r.TextMessages++
	case KindVoice:
		r.VoiceMessages++
	case KindScreenshot:
		r.ScreenshotAnalyses++
	case KindScam:
		r.ScamDetections++
	}
	r.TotalCost += c
}

// EstimateCost picks the per-request estimate for k. advanced selects the
// advanced-model price for text.
func EstimateCost(t cost.Table, k Kind, advanced bool) cost.Micros {
	switch k {
	case KindText:
		if advanced {
			return t.TextAdvanced
		}
		return t.TextBasic
	case KindVoice:
		return t.Voice
	case KindScreenshot, KindScam:
		return t.Image
	default:
		return 0
	}
}

// Today is the message-cap view of a record.
type Today struct {
	Messages  int        `json:"messages"`
	Limit     tier.Limit `json:"limit"`
	Remaining tier.Limit `json:"remaining"`
}

// Snapshot is the usage block attached to responses.
type Snapshot struct {
	Today Today  `json:"today"`
	Cost  string `json:"cost"`
}

// NewSnapshot builds the client view of r under the given message cap.
func NewSnapshot(r Record, messageLimit tier.Limit) Snapshot {
	used := r.Messages()
	return Snapshot{
		Today: Today{
			Messages:  used,
			Limit:     messageLimit,
			Remaining: messageLimit.Remaining(used),
		},
		Cost: r.TotalCost.Format(cost.DisplayDigits),
	}
}
