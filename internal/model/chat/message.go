package chat

import "time"

// Sender identifies who emitted a transcript entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Category determines how a message renders and whether it is actionable.
type Category string

const (
	CategoryNormal           Category = "normal"
	CategoryCopingSuggestion Category = "coping-suggestion"
	CategoryHelpline         Category = "helpline"
	CategoryMoodPrompt       Category = "mood-prompt"
	CategoryCrisisCard       Category = "crisis-card"
)

// Message is one append-only entry of a session transcript.
// Action is session-only and never serialized.
type Message struct {
	ID           int64       `json:"id"`
	SessionID    string      `json:"sessionId"`
	Sender       Sender      `json:"sender"`
	Text         string      `json:"text"`
	Category     Category    `json:"category"`
	Tool         string      `json:"tool,omitempty"`
	QuickActions []string    `json:"quickActions,omitempty"`
	Card         *CrisisCard `json:"card,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	Action       func()      `json:"-"`
}

// Clickable reports whether the message carries an interaction.
func (m Message) Clickable() bool {
	return m.Action != nil || m.Card != nil
}
