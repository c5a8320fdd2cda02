// Package quota keeps each sender's stored chat messages within the byte
// limit of their tier by evicting their oldest messages first.
package quota

import (
	"context"
	"fmt"

	"uk.co.dudmesh.pinboard/internal/logging"
	"uk.co.dudmesh.pinboard/internal/metrics"
	"uk.co.dudmesh.pinboard/internal/model"
)

// MessageStore lists a sender's messages oldest first (ties broken by ID)
// and deletes individual messages.
type MessageStore interface {
	ListBySender(ctx context.Context, senderID model.UserID) ([]model.MessageSize, error)
	DeleteByID(ctx context.Context, messageID model.MessageID) error
}

// usageCounter is implemented by stores that can total a sender's bytes
// without listing every message.
type usageCounter interface {
	UsageBytes(ctx context.Context, senderID model.UserID) (int64, error)
}

type Policy struct {
	StandardLimitBytes int64
	VerifiedLimitBytes int64
}

func (p Policy) LimitFor(tier model.Tier) int64 {
	if tier == model.TierVerified {
		return p.VerifiedLimitBytes
	}
	return p.StandardLimitBytes
}

// GetQuotaLimit returns the byte limit that applies to user.
func (p Policy) GetQuotaLimit(user *model.User) int64 {
	return p.LimitFor(model.TierFor(user))
}

// Report describes a single enforcement pass.
type Report struct {
	EvictedIDs   []model.MessageID
	EvictedBytes int64
	UsageBytes   int64
}

type UsageReport struct {
	UsedBytes  int64      `json:"usedBytes"`
	LimitBytes int64      `json:"limitBytes"`
	Percent    float64    `json:"percent"`
	Tier       model.Tier `json:"tier"`
}

type Enforcer struct {
	store  MessageStore
	policy Policy
	logger logging.Logger
	locks  *keyedMutex
}

func New(store MessageStore, policy Policy, logger logging.Logger) *Enforcer {
	return &Enforcer{
		store:  store,
		policy: policy,
		logger: logger,
		locks:  newKeyedMutex(),
	}
}

func (e *Enforcer) Policy() Policy {
	return e.policy
}

// Lock serialises quota work for one sender. The returned func releases the
// lock and is safe to call more than once. EnforceQuota does not take the
// lock; callers hold it across enforcement and the insert that follows.
func (e *Enforcer) Lock(userID model.UserID) func() {
	return e.locks.lock(userID)
}

// EnforceQuota deletes the sender's oldest messages, whole messages only,
// until their stored bytes are no more than limitBytes. A delete failure
// aborts the pass; messages already deleted stay deleted.
func (e *Enforcer) EnforceQuota(ctx context.Context, userID model.UserID, limitBytes int64) (Report, error) {
	report := Report{}

	messages, err := e.store.ListBySender(ctx, userID)
	if err != nil {
		metrics.QuotaEnforcementFailures.Inc()
		return report, fmt.Errorf("listing messages for %s: %w", userID, err)
	}

	for _, m := range messages {
		report.UsageBytes += m.PayloadBytes
	}

	for _, m := range messages {
		if report.UsageBytes <= limitBytes {
			break
		}
		if err := e.store.DeleteByID(ctx, m.ID); err != nil {
			metrics.QuotaEnforcementFailures.Inc()
			return report, fmt.Errorf("evicting message %s: %w", m.ID, err)
		}
		report.UsageBytes -= m.PayloadBytes
		report.EvictedBytes += m.PayloadBytes
		report.EvictedIDs = append(report.EvictedIDs, m.ID)
		metrics.QuotaEvictions.Inc()
		metrics.QuotaEvictedBytes.Add(float64(m.PayloadBytes))
	}

	if len(report.EvictedIDs) > 0 {
		e.logger.Infof("evicted %d messages (%d bytes) for %s, usage now %d of %d",
			len(report.EvictedIDs), report.EvictedBytes, userID, report.UsageBytes, limitBytes)
	}
	return report, nil
}

// GetUsageBytes sums the payload bytes of everything the user has sent.
func (e *Enforcer) GetUsageBytes(ctx context.Context, userID model.UserID) (int64, error) {
	if counter, ok := e.store.(usageCounter); ok {
		used, err := counter.UsageBytes(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("summing usage for %s: %w", userID, err)
		}
		return used, nil
	}

	messages, err := e.store.ListBySender(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("listing messages for %s: %w", userID, err)
	}
	var used int64
	for _, m := range messages {
		used += m.PayloadBytes
	}
	return used, nil
}

// Usage reports the user's consumption against their tier limit. Percent is
// capped at 100 for display.
func (e *Enforcer) Usage(ctx context.Context, user *model.User) (UsageReport, error) {
	used, err := e.GetUsageBytes(ctx, user.ID)
	if err != nil {
		return UsageReport{}, err
	}
	tier := model.TierFor(user)
	limit := e.policy.LimitFor(tier)
	return UsageReport{
		UsedBytes:  used,
		LimitBytes: limit,
		Percent:    usagePercent(used, limit),
		Tier:       tier,
	}, nil
}

func usagePercent(used, limit int64) float64 {
	if limit <= 0 {
		return 100
	}
	percent := float64(used) / float64(limit) * 100
	if percent > 100 {
		return 100
	}
	return percent
}
