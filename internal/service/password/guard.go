// Package password limits how often a user may change their password.
//
// Each successful change increments a counter on the user record. Once the
// counter reaches the policy maximum the next valid attempt imposes a lockout
// instead, and attempts made while locked are rejected without being counted.
// Failed credential checks never touch the counter.
package password

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.pinboard/internal/credential"
	"uk.co.dudmesh.pinboard/internal/logging"
	"uk.co.dudmesh.pinboard/internal/metrics"
	"uk.co.dudmesh.pinboard/internal/model"
)

// maxRounds bounds how many times a change is re-evaluated after losing a
// version race with a concurrent writer.
const maxRounds = 5

type UserRecordStore interface {
	Get(ctx context.Context, userID model.UserID) (*model.User, error)
	UpdatePasswordState(ctx context.Context, userID model.UserID, expectedVersion int64, update model.PasswordStateUpdate) error
}

type Outcome int

const (
	Success Outcome = iota
	Locked
	InvalidCredential
	RateLimited
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Locked:
		return "locked"
	case InvalidCredential:
		return "invalid_credential"
	case RateLimited:
		return "rate_limited"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Policy struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

var DefaultPolicy = Policy{MaxAttempts: 3, LockoutDuration: 72 * time.Hour}

// Result is the outcome of one attempt. LockedUntil and the remaining
// durations are set for Locked and RateLimited; AttemptsRemaining for
// Success and InvalidCredential.
type Result struct {
	Outcome           Outcome
	AttemptsRemaining int
	LockedUntil       *time.Time
	RemainingHours    int
	RemainingDays     int
}

type Guard struct {
	store  UserRecordStore
	policy Policy
	logger logging.Logger
	cost   int
}

func New(store UserRecordStore, policy Policy, logger logging.Logger) *Guard {
	return &Guard{
		store:  store,
		policy: policy,
		logger: logger,
		cost:   credential.DefaultCost,
	}
}

// AttemptPasswordChange applies the change policy for userID at time now.
// Policy rejections are reported through Result; the error is reserved for
// unknown users and storage failures.
func (g *Guard) AttemptPasswordChange(ctx context.Context, userID model.UserID, currentPassword, newPassword string, now time.Time) (Result, error) {
	for round := 0; round < maxRounds; round++ {
		result, err := g.attempt(ctx, userID, currentPassword, newPassword, now)
		if errors.Is(err, model.ErrorVersionConflict) {
			g.logger.Warnf("password state for %s changed concurrently, retrying", userID)
			continue
		}
		if err != nil {
			if !errors.Is(err, model.ErrorUserNotFound) {
				g.logger.Errorf("password change for %s failed: %v", userID, err)
			}
			return Result{}, err
		}
		metrics.PasswordChangeOutcomes.WithLabelValues(result.Outcome.String()).Inc()
		return result, nil
	}
	g.logger.Errorf("password change for %s gave up after %d conflicting rounds", userID, maxRounds)
	return Result{}, fmt.Errorf("changing password for %s: %w: %w", userID, model.ErrorStorageFailure, model.ErrorVersionConflict)
}

func (g *Guard) attempt(ctx context.Context, userID model.UserID, currentPassword, newPassword string, now time.Time) (Result, error) {
	user, err := g.store.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	version := user.Version
	count := user.PasswordChangeCount

	if lockUntil := user.PasswordChangeLockUntil; lockUntil != nil {
		if now.Before(*lockUntil) {
			g.logger.Infof("password change for %s rejected, locked until %s", userID, lockUntil.Format(time.RFC3339))
			return lockedResult(Locked, *lockUntil, now), nil
		}
		// expired lock: back to unlocked with a fresh counter
		err := g.store.UpdatePasswordState(ctx, userID, version, model.PasswordStateUpdate{PasswordChangeCount: 0})
		if err != nil {
			return Result{}, err
		}
		version++
		count = 0
	}

	if err := credential.Verify(user.Password, currentPassword); err != nil {
		if errors.Is(err, model.ErrorInvalidCredential) {
			g.logger.Infof("password change for %s rejected, invalid credential", userID)
			return Result{Outcome: InvalidCredential, AttemptsRemaining: g.remaining(count)}, nil
		}
		return Result{}, err
	}

	if count >= g.policy.MaxAttempts {
		lockUntil := now.Add(g.policy.LockoutDuration)
		err := g.store.UpdatePasswordState(ctx, userID, version, model.PasswordStateUpdate{
			PasswordChangeCount:     0,
			PasswordChangeLockUntil: &lockUntil,
		})
		if err != nil {
			return Result{}, err
		}
		g.logger.Warnf("password changes for %s locked until %s", userID, lockUntil.Format(time.RFC3339))
		return lockedResult(RateLimited, lockUntil, now), nil
	}

	hash, err := credential.Hash(newPassword, g.cost)
	if err != nil {
		return Result{}, err
	}
	newCount := count + 1
	err = g.store.UpdatePasswordState(ctx, userID, version, model.PasswordStateUpdate{
		PasswordHash:        &hash,
		PasswordChangeCount: newCount,
	})
	if err != nil {
		return Result{}, err
	}
	g.logger.Infof("password changed for %s (%d of %d)", userID, newCount, g.policy.MaxAttempts)
	return Result{Outcome: Success, AttemptsRemaining: g.remaining(newCount)}, nil
}

func (g *Guard) remaining(count int) int {
	if count >= g.policy.MaxAttempts {
		return 0
	}
	return g.policy.MaxAttempts - count
}

func lockedResult(outcome Outcome, lockUntil, now time.Time) Result {
	left := lockUntil.Sub(now)
	return Result{
		Outcome:        outcome,
		LockedUntil:    &lockUntil,
		RemainingHours: ceilDiv(left, time.Hour),
		RemainingDays:  ceilDiv(left, 24*time.Hour),
	}
}

// ceilDiv rounds up so that a lock never reports zero time remaining.
func ceilDiv(d, unit time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + unit - 1) / unit)
}
