package chat

import "context"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a conversation, tagged with its speaker role.
// Immutable once created.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is a platform file reference carried on an inbound message.
// Ref is whatever the owning adapter's fetcher understands: a private URL
// for the team-chat platform, a message id for the mobile platform.
type Attachment struct {
	MimeType string
	Ref      string
}

// Fetcher downloads attachment bytes using the owning platform's credentials.
type Fetcher interface {
	FetchAttachment(ctx context.Context, ref string) ([]byte, error)
}

// Message is the platform-agnostic shape of one inbound event. An adapter
// builds one per event, the dispatcher consumes it, then it is discarded.
type Message struct {
	UserID   string
	Platform string
	Text     string

	Attachments []Attachment

	// PromptRequest carries an image-generation prompt request (the "sdxl"
	// field on programmatic submissions). When set it takes priority over
	// every other route.
	PromptRequest string

	// Question selects the locale-variant chat model for free-form text.
	// The "?" marker implies it; adapters may also set it directly.
	Question bool

	// Fetcher resolves Attachments. Nil for sources that cannot carry files.
	Fetcher Fetcher

	// OnAdmit, if set, is called exactly once after the event passes the
	// in-flight gate and before handling starts. Adapters use it to raise
	// their loading signal so rejected events never show one.
	OnAdmit func()
}

// IsCommand reports whether text begins with an explicit command marker.
// Group and room sources only respond to these.
func IsCommand(text string) bool {
	if text == "" {
		return false
	}
	switch text[0] {
	case '!', '_', '?':
		return true
	}
	return false
}
