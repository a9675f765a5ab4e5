package schema

import "time"

// Notification describes one message the user should be told about.
type Notification struct {
	ConversationID ConversationID
	MessageID      MessageID
	Preview        string
	Timestamp      time.Time
}

// Key returns the deduplication key for the notification.
func (n Notification) Key() string {
	return string(n.ConversationID) + ":" + string(n.MessageID)
}
