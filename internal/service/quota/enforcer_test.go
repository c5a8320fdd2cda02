package quota

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.pinboard/internal/logging"
	"uk.co.dudmesh.pinboard/internal/metrics"
	"uk.co.dudmesh.pinboard/internal/model"
)

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []model.MessageSize
	deleted   []model.MessageID
	listErr   error
	deleteErr map[model.MessageID]error
}

func (s *fakeMessageStore) add(id model.MessageID, size int64, at time.Time) {
	s.messages = append(s.messages, model.MessageSize{ID: id, PayloadBytes: size, CreatedAt: at})
}

func (s *fakeMessageStore) ListBySender(ctx context.Context, senderID model.UserID) ([]model.MessageSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := append([]model.MessageSize(nil), s.messages...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeMessageStore) DeleteByID(ctx context.Context, messageID model.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[messageID]; err != nil {
		return err
	}
	for i, m := range s.messages {
		if m.ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.deleted = append(s.deleted, messageID)
	return nil
}

func (s *fakeMessageStore) remaining() []model.MessageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []model.MessageID{}
	for _, m := range s.messages {
		ids = append(ids, m.ID)
	}
	return ids
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fiveMessages() *fakeMessageStore {
	store := &fakeMessageStore{}
	for i := 1; i <= 5; i++ {
		store.add(model.MessageID(fmt.Sprintf("M%d", i)), 1000, epoch.Add(time.Duration(i)*time.Minute))
	}
	return store
}

func TestEnforceQuotaEvictsOldestFirst(t *testing.T) {
	assert := assert.New(t)
	store := fiveMessages()
	enforcer := New(store, Policy{}, logging.Discard("test"))

	evictionsBefore := testutil.ToFloat64(metrics.QuotaEvictions)

	report, err := enforcer.EnforceQuota(context.Background(), "u1", 3000)
	require.NoError(t, err)

	assert.Equal([]model.MessageID{"M1", "M2"}, report.EvictedIDs)
	assert.Equal(int64(2000), report.EvictedBytes)
	assert.Equal(int64(3000), report.UsageBytes)
	assert.Equal([]model.MessageID{"M3", "M4", "M5"}, store.remaining())
	assert.Equal(float64(2), testutil.ToFloat64(metrics.QuotaEvictions)-evictionsBefore)
}

func TestEnforceQuotaIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	store := fiveMessages()
	enforcer := New(store, Policy{}, logging.Discard("test"))
	ctx := context.Background()

	_, err := enforcer.EnforceQuota(ctx, "u1", 3000)
	require.NoError(t, err)
	deletedAfterFirst := len(store.deleted)

	report, err := enforcer.EnforceQuota(ctx, "u1", 3000)
	require.NoError(t, err)
	assert.Empty(report.EvictedIDs)
	assert.Equal(deletedAfterFirst, len(store.deleted))
}

func TestEnforceQuotaEdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("No messages", func(t *testing.T) {
		store := &fakeMessageStore{}
		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 0)
		assert.NoError(t, err)
		assert.Empty(t, report.EvictedIDs)
		assert.Empty(t, store.deleted)
	})

	t.Run("Oversized singleton is evicted", func(t *testing.T) {
		store := &fakeMessageStore{}
		store.add("big", 5000, epoch)
		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 3000)
		assert.NoError(t, err)
		assert.Equal(t, []model.MessageID{"big"}, report.EvictedIDs)
		assert.Equal(t, int64(0), report.UsageBytes)
	})

	t.Run("Oversized message behind an older one", func(t *testing.T) {
		store := &fakeMessageStore{}
		store.add("a", 100, epoch)
		store.add("big", 5000, epoch.Add(time.Minute))
		store.add("c", 100, epoch.Add(2*time.Minute))
		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 200)
		assert.NoError(t, err)
		assert.Equal(t, []model.MessageID{"a", "big"}, report.EvictedIDs)
		assert.Equal(t, []model.MessageID{"c"}, store.remaining())
	})

	t.Run("Ties are evicted in ID order", func(t *testing.T) {
		store := &fakeMessageStore{}
		store.add("b", 10, epoch)
		store.add("a", 10, epoch)
		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 10)
		assert.NoError(t, err)
		assert.Equal(t, []model.MessageID{"a"}, report.EvictedIDs)
	})

	t.Run("Under budget is untouched", func(t *testing.T) {
		store := fiveMessages()
		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 5000)
		assert.NoError(t, err)
		assert.Empty(t, report.EvictedIDs)
		assert.Len(t, store.remaining(), 5)
	})
}

func TestEnforceQuotaStorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Delete failure aborts the pass", func(t *testing.T) {
		store := fiveMessages()
		store.deleteErr = map[model.MessageID]error{"M2": model.ErrorStorageFailure}
		failuresBefore := testutil.ToFloat64(metrics.QuotaEnforcementFailures)

		report, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 3000)
		assert.ErrorIs(t, err, model.ErrorStorageFailure)
		assert.Equal(t, []model.MessageID{"M1"}, report.EvictedIDs)
		assert.Equal(t, []model.MessageID{"M2", "M3", "M4", "M5"}, store.remaining())
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.QuotaEnforcementFailures)-failuresBefore)
	})

	t.Run("List failure", func(t *testing.T) {
		store := &fakeMessageStore{listErr: errors.New("boom")}
		_, err := New(store, Policy{}, logging.Discard("test")).EnforceQuota(ctx, "u1", 3000)
		assert.Error(t, err)

		_, err = New(store, Policy{}, logging.Discard("test")).GetUsageBytes(ctx, "u1")
		assert.Error(t, err)
	})
}

func TestEnforceQuotaInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for round := 0; round < 200; round++ {
		store := &fakeMessageStore{}
		n := rng.Intn(20)
		for i := 0; i < n; i++ {
			store.add(model.MessageID(fmt.Sprintf("m%02d", i)), int64(rng.Intn(2000)), epoch.Add(time.Duration(rng.Intn(10))*time.Second))
		}
		limit := int64(rng.Intn(10000))
		enforcer := New(store, Policy{}, logging.Discard("test"))

		_, err := enforcer.EnforceQuota(ctx, "u1", limit)
		require.NoError(t, err)

		used, err := enforcer.GetUsageBytes(ctx, "u1")
		require.NoError(t, err)
		assert.LessOrEqual(t, used, limit, "round %d", round)
	}
}

func TestPolicyTiers(t *testing.T) {
	assert := assert.New(t)
	policy := Policy{StandardLimitBytes: 1000, VerifiedLimitBytes: 5000}

	assert.Equal(int64(1000), policy.GetQuotaLimit(&model.User{}))
	assert.Equal(int64(5000), policy.GetQuotaLimit(&model.User{IsVerified: true}))
	assert.Equal(int64(1000), policy.LimitFor(model.TierStandard))
	assert.Equal(int64(5000), policy.LimitFor(model.TierVerified))
}

func TestUsage(t *testing.T) {
	assert := assert.New(t)
	store := fiveMessages()
	enforcer := New(store, Policy{StandardLimitBytes: 4000, VerifiedLimitBytes: 10000}, logging.Discard("test"))
	ctx := context.Background()

	usage, err := enforcer.Usage(ctx, &model.User{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(int64(5000), usage.UsedBytes)
	assert.Equal(int64(4000), usage.LimitBytes)
	assert.Equal(float64(100), usage.Percent)
	assert.Equal(model.TierStandard, usage.Tier)

	usage, err = enforcer.Usage(ctx, &model.User{ID: "u1", IsVerified: true})
	require.NoError(t, err)
	assert.Equal(float64(50), usage.Percent)
	assert.Equal(model.TierVerified, usage.Tier)
}

func TestLockSerialisesPerUser(t *testing.T) {
	enforcer := New(&fakeMessageStore{}, Policy{}, logging.Discard("test"))

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := enforcer.Lock("u1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Equal(t, 0, enforcer.locks.size())
}

func TestLockIsPerUser(t *testing.T) {
	enforcer := New(&fakeMessageStore{}, Policy{}, logging.Discard("test"))

	unlockA := enforcer.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := enforcer.Lock("b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for b blocked behind a")
	}
	unlockA()
	unlockA()
	assert.Equal(t, 0, enforcer.locks.size())
}

type countingStore struct {
	*fakeMessageStore
	calls int
	err   error
}

func (s *countingStore) UsageBytes(ctx context.Context, senderID model.UserID) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return 4242, nil
}

func TestGetUsageBytesPrefersStoreTotal(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := &countingStore{fakeMessageStore: fiveMessages()}
	enforcer := New(store, Policy{StandardLimitBytes: 10000}, logging.Discard("test"))

	used, err := enforcer.GetUsageBytes(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(int64(4242), used)
	assert.Equal(1, store.calls)

	usage, err := enforcer.Usage(ctx, &model.User{ID: "u1"})
	require.NoError(t, err)
	assert.Equal(int64(4242), usage.UsedBytes)
	assert.Equal(2, store.calls)

	store.err = model.ErrorStorageFailure
	_, err = enforcer.GetUsageBytes(ctx, "u1")
	assert.ErrorIs(err, model.ErrorStorageFailure)
}
