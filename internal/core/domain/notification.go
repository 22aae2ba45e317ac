package domain

import "time"

// NotificationKind identifies what happened to a message.
type NotificationKind string

const (
	NotificationMessageSent NotificationKind = "message.sent"
	NotificationMessageRead NotificationKind = "message.read"
)

// Notification is pushed to the interested party's inbox channel.
// Recipient is whoever should be told: the receiver for message.sent and
// the original sender for message.read.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	MessageID    int64            `json:"message_id"`
	FromUsername string           `json:"from_username"`
	ToUsername   string           `json:"to_username"`
	Recipient    string           `json:"-"`
	At           time.Time        `json:"at"`
}
