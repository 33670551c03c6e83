package core

import (
	"time"
)

// Message sources, recorded with every stored message and returned to the
// caller so it can tell which pipeline layer produced the reply.
const (
	SourceUserInput     = "user_input"
	SourceAbuseDetector = "abuse_detector"
	SourceTemplate      = "template"
	SourceSalesEngine   = "sales_engine"
	SourceHandoffOffer  = "handoff_offer"
	SourceLLM           = "claude_ai"
	SourceTestMode      = "test_mode"
	SourceErrorFallback = "error_fallback"
)

// Abuse rejection sources, in check order
const (
	AbuseSourceBlocked  = "ip_blocked"
	AbuseSourceLength   = "length_check"
	AbuseSourceSpam     = "spam_pattern"
	AbuseSourceRate     = "rate_limit"
	AbuseSourceRepeated = "repeated_message"
)

// Lead identifies a prospective customer captured through the chat widget
type Lead struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Complete reports whether the lead has enough data for a sales follow-up:
// a name plus at least one way to reach them.
func (l *Lead) Complete() bool {
	return l != nil && l.Name != "" && (l.Phone != "" || l.Email != "")
}

// Conversation groups messages under one widget session
type Conversation struct {
	ID              string
	SessionID       string
	LeadID          string
	IPAddress       string
	UserAgent       string
	TotalMessages   int
	TotalTokensUsed int
	CreatedAt       time.Time
}

// ChatMessage is one stored exchange half within a conversation
type ChatMessage struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	TokensUsed     int
	Intent         string
	Confidence     float64
	Entities       ExtractedEntities
	Source         string
	CreatedAt      time.Time
}

// ExtractedEntities holds whatever contact and sizing data a single message
// yielded. All fields are optional; zero values mean "not found".
type ExtractedEntities struct {
	Name          string  `json:"name,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Email         string  `json:"email,omitempty"`
	Budget        int     `json:"budget,omitempty"`
	DailyKM       int     `json:"daily_km,omitempty"`
	ModelInterest string  `json:"model_interest,omitempty"`
}

// Empty reports whether nothing at all was extracted
func (e ExtractedEntities) Empty() bool {
	return e.Name == "" && e.Phone == "" && e.Email == "" &&
		e.Budget == 0 && e.DailyKM == 0 && e.ModelInterest == ""
}

// HasContact reports whether at least one identifying field is present.
// Only identifying fields justify touching the lead store.
func (e ExtractedEntities) HasContact() bool {
	return e.Name != "" || e.Phone != "" || e.Email != ""
}

// Merge overlays other on top of e, preferring other's non-zero fields
func (e ExtractedEntities) Merge(other ExtractedEntities) ExtractedEntities {
	merged := e
	if other.Name != "" {
		merged.Name = other.Name
	}
	if other.Phone != "" {
		merged.Phone = other.Phone
	}
	if other.Email != "" {
		merged.Email = other.Email
	}
	if other.Budget != 0 {
		merged.Budget = other.Budget
	}
	if other.DailyKM != 0 {
		merged.DailyKM = other.DailyKM
	}
	if other.ModelInterest != "" {
		merged.ModelInterest = other.ModelInterest
	}
	return merged
}

// AbuseResult is the verdict of the abuse guard for one message
type AbuseResult struct {
	IsAbuse               bool
	Reason                string
	Action                string
	Source                string
	BlockMinutesRemaining int
}

// TemplateMatch is a canned-response hit from the template matcher
type TemplateMatch struct {
	Category   string
	Response   string
	Confidence float64
}

// TemplateSuggestion is a low-confidence category candidate from FindSimilar
type TemplateSuggestion struct {
	Category    string
	Similarity  float64
	CommonWords []string
}

// ObjectionResult is a scripted rebuttal for a detected sales objection
type ObjectionResult struct {
	Detected      bool
	ObjectionType string
	ResponseType  string
	Response      string
	FollowUp      string
}

// LeadScore is the derived quality assessment of a lead. It is never stored;
// it is recomputed per request from the current lead and conversation state.
type LeadScore struct {
	Score          int
	Category       string
	Factors        []string
	ReadyToBuy     bool
	NeedsNurturing bool
}

// IntentResult is the coarse keyword-weighted intent of one message
type IntentResult struct {
	Intent              string
	Confidence          float64
	ModelInterest       string
	RequiresPremiumInfo bool
}

// ConversationMeta is the conversation-side input to lead scoring
type ConversationMeta struct {
	MessageCount  int
	Intents       []string
	ModelInterest string
}

// SenderMeta carries per-request sender identity from the transport layer
type SenderMeta struct {
	Address   string
	UserAgent string
	SessionID string
}

// Generation is one completed LLM call
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
	ModelUsed    string
}

// Reply is the pipeline's answer to one incoming message
type Reply struct {
	Success        bool
	ConversationID string
	Message        string
	TokensUsed     int
	Source         string
	Category       string
	ObjectionType  string
	CanHandoff     bool
	LeadCaptured   bool
	LeadScore      *LeadScore
	ProcessingTime time.Duration
}
