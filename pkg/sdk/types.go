package silverline

// Tier is a subscription level.
type Tier string

// Tier constants. Unknown tiers are treated as TierFree.
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierFamily  Tier = "family"
)

// Unlimited is the cap value reported for uncapped limits.
const Unlimited = -1

// User identifies who a request is made on behalf of.
// An empty ID is accounted as the shared anonymous user.
type User struct {
	ID   string
	Tier Tier
}

// Role is the author of a conversation turn.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Image is a picture to analyze. MIMEType defaults to image/jpeg.
type Image struct {
	Data     []byte
	MIMEType string
}

// Audio is a voice recording to transcribe.
type Audio struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Transcript is the text recognized from audio.
type Transcript struct {
	Text     string
	Language string
	Duration float64
}

// QuickAction is a follow-up suggestion for the user interface.
type QuickAction struct {
	ID    string
	Label string
}

// Emergency is set on replies to messages that mention a possible emergency.
type Emergency struct {
	Number  string
	Message string
}

// Usage is today's message usage attached to every reply.
// Limit and Remaining are Unlimited for uncapped tiers.
type Usage struct {
	Messages  int
	Limit     int
	Remaining int
	Cost      string
}

// ChatReply is the assistant's answer to a text or voice message.
// Usage is nil when usage tracking is unavailable.
type ChatReply struct {
	Reply        string
	Model        string
	Emergency    *Emergency
	QuickActions []QuickAction
	Usage        *Usage
}

// VoiceReply is a ChatReply with the recognized transcript.
type VoiceReply struct {
	Transcript Transcript
	ChatReply
}

// ScreenshotReply explains a screenshot.
type ScreenshotReply struct {
	Analysis     string
	Model        string
	QuickActions []QuickAction
	Usage        *Usage
}

// ScamReply is the verdict on a suspicious message.
type ScamReply struct {
	RiskLevel    string // low, medium, high or unknown
	IsLikelyScam bool
	Reasons      []string
	Advice       string
	Model        string
	QuickActions []QuickAction
	Usage        *Usage
}

// UsageReport is the full usage view for one day.
type UsageReport struct {
	Date               string
	Tier               Tier
	Messages           int
	MessageLimit       int
	MessagesRemaining  int
	ImageAnalyses      int
	ImageLimit         int
	ImagesRemaining    int
	TextMessages       int
	VoiceMessages      int
	ScreenshotAnalyses int
	ScamDetections     int
	Cost               string
}

// Features is the capability set of a tier.
type Features struct {
	AdvancedModel          bool
	ScreenshotAnalysis     bool
	ScamDetection          bool
	EmergencyFeatures      bool
	QuickActions           bool
	FamilyPortal           bool
	MaxMessagesPerDay      int
	MaxImageAnalysisPerDay int
}
