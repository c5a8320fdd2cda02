package model

import "time"

type MessageID string
type ConversationID string

type StoredMessage struct {
	ID             MessageID      `db:"ID" json:"id"`
	ConversationID ConversationID `db:"ConversationID" json:"conversationId"`
	SenderID       UserID         `db:"SenderID" json:"senderId"`
	Text           string         `db:"Text" json:"text"`
	PayloadBytes   int64          `db:"PayloadBytes" json:"payloadBytes"`
	CreatedAt      time.Time      `db:"CreatedAt" json:"createdAt"`
}

// MessageSize is the quota view of a stored message.
type MessageSize struct {
	ID           MessageID `db:"ID"`
	PayloadBytes int64     `db:"PayloadBytes"`
	CreatedAt    time.Time `db:"CreatedAt"`
}

// PayloadSize is the UTF-8 byte length of a message payload.
func PayloadSize(text string) int64 {
	return int64(len(text))
}
