package chat

import "time"

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"createdAt"`
}
