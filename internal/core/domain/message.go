package domain

import "time"

// Message is a private text message between two users.
// ReadAt is nil until the recipient marks it read, and never changes after.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"`
}

// IsRead reports whether the message has been marked read.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// MessageDetail is a message together with both parties, resolved by the
// store in the same query.
type MessageDetail struct {
	Message
	From UserContact
	To   UserContact
}
