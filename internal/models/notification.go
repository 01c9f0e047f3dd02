package models

// Notification is the message published to the notifications exchange and
// delivered to the user by the sender worker.
type Notification struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}
