package assistant

import "strings"

// emergencyKeywords are matched case-insensitively against the user's words.
var emergencyKeywords = []string{
	"chest pain",
	"heart attack",
	"can't breathe",
	"cannot breathe",
	"trouble breathing",
	"stroke",
	"i fell",
	"fallen",
	"bleeding",
	"unconscious",
	"emergency",
	"overdose",
}

// Emergency is attached to replies that mention a possible emergency.
type Emergency struct {
	Detected bool   `json:"detected"`
	Number   string `json:"number"`
	Message  string `json:"message"`
}

// QuickAction is a follow-up button offered to the client.
type QuickAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var (
	actionCallEmergency = QuickAction{ID: "call_emergency", Label: "Call for help"}
	actionCallFamily    = QuickAction{ID: "call_family", Label: "Call my family"}
	actionReadAloud     = QuickAction{ID: "read_aloud", Label: "Read this aloud"}
	actionSimpler       = QuickAction{ID: "explain_simpler", Label: "Explain more simply"}
	actionReportScam    = QuickAction{ID: "report_scam", Label: "How do I report this?"}
)

func detectEmergency(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func newEmergency(number string) *Emergency {
	return &Emergency{
		Detected: true,
		Number:   number,
		Message:  "If this is an emergency, call " + number + " now or ask someone nearby for help.",
	}
}

func chatActions(emergency bool) []QuickAction {
	if emergency {
		return []QuickAction{actionCallEmergency, actionCallFamily}
	}
	return []QuickAction{actionReadAloud, actionSimpler, actionCallFamily}
}

func scamActions(likelyScam bool) []QuickAction {
	if likelyScam {
		return []QuickAction{actionReportScam, actionCallFamily}
	}
	return []QuickAction{actionReadAloud, actionCallFamily}
}
