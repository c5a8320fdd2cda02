// Package chat is the message send path. Every send makes room under the
// sender's quota before the new message is stored.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"uk.co.dudmesh.pinboard/internal/logging"
	"uk.co.dudmesh.pinboard/internal/model"
	"uk.co.dudmesh.pinboard/internal/service/quota"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type UserStore interface {
	Get(ctx context.Context, userID model.UserID) (*model.User, error)
}

type MessageStore interface {
	Insert(ctx context.Context, message *model.StoredMessage) error
	ListConversation(ctx context.Context, conversationID model.ConversationID, limit int) ([]model.StoredMessage, error)
}

type Options struct {
	// FailClosed rejects a send when eviction fails instead of storing the
	// message over quota.
	FailClosed bool
}

type service struct {
	users    UserStore
	messages MessageStore
	quota    *quota.Enforcer
	options  Options
	logger   logging.Logger
	now      func() time.Time
}

func New(users UserStore, messages MessageStore, enforcer *quota.Enforcer, options Options, logger logging.Logger) *service {
	return &service{
		users:    users,
		messages: messages,
		quota:    enforcer,
		options:  options,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) Send(ctx context.Context, senderID model.UserID, conversationID model.ConversationID, text string) (*model.StoredMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.ErrorEmptyMessage
	}

	sender, err := s.users.Get(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("fetching sender: %w", err)
	}

	limit := s.quota.Policy().GetQuotaLimit(sender)
	size := model.PayloadSize(text)
	if size > limit {
		return nil, fmt.Errorf("%w: %d bytes with a limit of %d", model.ErrorMessageTooLarge, size, limit)
	}

	unlock := s.quota.Lock(senderID)
	defer unlock()

	// leave room for the new message so the stored total stays within limit
	if _, err := s.quota.EnforceQuota(ctx, senderID, limit-size); err != nil {
		if s.options.FailClosed {
			s.logger.Errorf("quota enforcement for %s failed, rejecting send: %v", senderID, err)
			return nil, fmt.Errorf("enforcing quota: %w: %w", model.ErrorStorageFailure, err)
		}
		s.logger.Warnf("quota enforcement for %s failed, storing message anyway: %v", senderID, err)
	}

	message := &model.StoredMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return nil, fmt.Errorf("storing message: %w", err)
	}
	return message, nil
}

func (s *service) Usage(ctx context.Context, userID model.UserID) (quota.UsageReport, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return quota.UsageReport{}, fmt.Errorf("fetching user: %w", err)
	}
	return s.quota.Usage(ctx, user)
}

// Conversation returns the newest messages of a conversation, oldest first.
// limit is clamped to (0, MaxPageSize] with DefaultPageSize for zero.
// Callers are not checked against the conversation's participants.
func (s *service) Conversation(ctx context.Context, conversationID model.ConversationID, limit int) ([]model.StoredMessage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	messages, err := s.messages.ListConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	return messages, nil
}
