package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"uk.co.dudmesh.pinboard/internal/model"
)

type MessageStore struct {
	db *sqlx.DB
	retrier
}

// Insert stores message, filling in the ID, timestamp and payload size when
// they are not already set.
func (s *MessageStore) Insert(ctx context.Context, message *model.StoredMessage) error {
	if message.ID == "" {
		message.ID = model.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.CreatedAt = message.CreatedAt.UTC()
	message.PayloadBytes = model.PayloadSize(message.Text)

	return s.do(ctx, "inserting message", func(ctx context.Context) error {
		_, err := s.db.NamedExecContext(ctx, `insert into messages
			(ID, ConversationID, SenderID, Text, PayloadBytes, CreatedAt)
			values(:ID, :ConversationID, :SenderID, :Text, :PayloadBytes, :CreatedAt)`, message)
		return err
	})
}

// ListBySender returns the sender's messages oldest first. Messages sharing a
// timestamp are ordered by ID.
func (s *MessageStore) ListBySender(ctx context.Context, senderID model.UserID) ([]model.MessageSize, error) {
	var sizes []model.MessageSize
	err := s.do(ctx, "listing messages", func(ctx context.Context) error {
		sizes = sizes[:0]
		return s.db.SelectContext(ctx, &sizes, `select ID, PayloadBytes, CreatedAt from messages
			where SenderID = ?
			order by CreatedAt asc, ID asc`, senderID)
	})
	if err != nil {
		return nil, err
	}
	return sizes, nil
}

// DeleteByID removes a message. Deleting a message that is already gone is
// not an error.
func (s *MessageStore) DeleteByID(ctx context.Context, messageID model.MessageID) error {
	return s.do(ctx, "deleting message", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `delete from messages where ID = ?`, messageID)
		return err
	})
}

func (s *MessageStore) UsageBytes(ctx context.Context, senderID model.UserID) (int64, error) {
	var used int64
	err := s.do(ctx, "summing usage", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &used, `select coalesce(sum(PayloadBytes), 0) from messages where SenderID = ?`, senderID)
	})
	if err != nil {
		return 0, err
	}
	return used, nil
}

// ListConversation returns up to limit of the most recent messages in a
// conversation, oldest first.
func (s *MessageStore) ListConversation(ctx context.Context, conversationID model.ConversationID, limit int) ([]model.StoredMessage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("invalid limit %d", limit)
	}
	var messages []model.StoredMessage
	err := s.do(ctx, "listing conversation", func(ctx context.Context) error {
		messages = messages[:0]
		return s.db.SelectContext(ctx, &messages, `select ID, ConversationID, SenderID, Text, PayloadBytes, CreatedAt from messages
			where ConversationID = ?
			order by CreatedAt desc, ID desc
			limit ?`, conversationID, limit)
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}
