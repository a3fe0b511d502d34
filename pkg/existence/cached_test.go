package existence_test

import (
	"context"
	"errors"
	"navguard/pkg/domain"
	"navguard/pkg/existence"
	mockexistence "navguard/pkg/existence/mock"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	positiveTTL = time.Minute
	negativeTTL = 5 * time.Second
)

func newCached(next existence.Checker, cache existence.Cache) *existence.Cached {
	return existence.NewCached(next, cache, existence.CachedOptions{
		PositiveTTL: positiveTTL,
		NegativeTTL: negativeTTL,
		KeyPrefix:   "test:",
	})
}

func TestCached_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	cache := mockexistence.NewMockCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), "test:salon/abc123").Return(true, true, nil)
	checker.EXPECT().Exists(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	ok, err := newCached(checker, cache).Exists(context.Background(), "abc123", domain.ListingTypeSalon)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCached_MissStoresWithMatchingTTL(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantTTL time.Duration
	}{
		{name: "positive", exists: true, wantTTL: positiveTTL},
		{name: "negative", exists: false, wantTTL: negativeTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			checker := mockexistence.NewMockChecker(ctrl)
			cache := mockexistence.NewMockCache(ctrl)

			gomock.InOrder(
				cache.EXPECT().Get(gomock.Any(), "test:job/j1").Return(false, false, nil),
				checker.EXPECT().Exists(gomock.Any(), "j1", domain.ListingTypeJob).Return(tt.exists, nil),
				cache.EXPECT().Set(gomock.Any(), "test:job/j1", tt.exists, tt.wantTTL).Return(nil),
			)

			ok, err := newCached(checker, cache).Exists(context.Background(), "j1", domain.ListingTypeJob)
			require.NoError(t, err)
			require.Equal(t, tt.exists, ok)
		})
	}
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	cache := mockexistence.NewMockCache(ctrl)
	boom := errors.New("backend down")

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(false, false, nil)
	checker.EXPECT().Exists(gomock.Any(), "b1", domain.ListingTypeBooth).Return(false, boom)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := newCached(checker, cache).Exists(context.Background(), "b1", domain.ListingTypeBooth)
	require.ErrorIs(t, err, boom)
}

func TestCached_CacheFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	cache := mockexistence.NewMockCache(ctrl)

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(false, false, errors.New("redis: connection refused"))
	checker.EXPECT().Exists(gomock.Any(), "o1", domain.ListingTypeOpportunity).Return(true, nil)
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), true, positiveTTL).Return(errors.New("redis: connection refused"))

	ok, err := newCached(checker, cache).Exists(context.Background(), "o1", domain.ListingTypeOpportunity)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCached_Forget(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mockexistence.NewMockCache(ctrl)
	cache.EXPECT().Delete(gomock.Any(), "test:salon/s1").Return(nil)

	err := newCached(mockexistence.NewMockChecker(ctrl), cache).
		Forget(context.Background(), domain.ListingReference{Type: domain.ListingTypeSalon, ID: "s1"})
	require.NoError(t, err)
}

// memoryCache is a map-backed Cache used to exercise concurrent access.
type memoryCache struct {
	mu     sync.Mutex
	values map[string]bool
}

func (m *memoryCache) Get(_ context.Context, key string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]

	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, exists bool, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = exists

	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)

	return nil
}

func TestCached_ConcurrentChecksShareOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	checker := existence.Func(func(ctx context.Context, id string, t domain.ListingType) (bool, error) {
		calls.Add(1)
		<-release

		return true, nil
	})
	cached := newCached(checker, &memoryCache{values: map[string]bool{}})

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := cached.Exists(context.Background(), "abc123", domain.ListingTypeSalon)
			if err == nil {
				results <- ok
			}
		}()
	}

	// give every caller time to join the in-flight call
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	require.Equal(t, int32(1), calls.Load())
	n := 0
	for ok := range results {
		require.True(t, ok)
		n++
	}
	require.Equal(t, callers, n)

	// subsequent checks are answered by the cache
	ok, err := cached.Exists(context.Background(), "abc123", domain.ListingTypeSalon)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), calls.Load())
}

func TestCached_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	checker := existence.Func(func(ctx context.Context, id string, t domain.ListingType) (bool, error) {
		<-release

		return true, nil
	})
	cached := newCached(checker, &memoryCache{values: map[string]bool{}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := cached.Exists(ctx, "slow", domain.ListingTypeJob)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCached_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	checker := existence.Func(func(ctx context.Context, id string, t domain.ListingType) (bool, error) {
		close(started)
		select {
		case <-release:
			return true, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	})
	cached := newCached(checker, &memoryCache{values: map[string]bool{}})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cached.Exists(ctxA, "abc123", domain.ListingTypeSalon)
		errA <- err
	}()
	<-started

	type result struct {
		ok  bool
		err error
	}
	resB := make(chan result, 1)
	go func() {
		ok, err := cached.Exists(context.Background(), "abc123", domain.ListingTypeSalon)
		resB <- result{ok: ok, err: err}
	}()

	// let the second caller join the in-flight call before the first one leaves
	time.Sleep(20 * time.Millisecond)
	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	res := <-resB
	require.NoError(t, res.err)
	require.True(t, res.ok)
}

func TestCached_SharedCallIsBounded(t *testing.T) {
	checker := existence.Func(func(ctx context.Context, id string, t domain.ListingType) (bool, error) {
		<-ctx.Done()

		return false, ctx.Err()
	})
	cached := existence.NewCached(checker, &memoryCache{values: map[string]bool{}}, existence.CachedOptions{
		CallTimeout: 10 * time.Millisecond,
	})

	_, err := cached.Exists(context.Background(), "stuck", domain.ListingTypeJob)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
