package credentials

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheSingleFlight(t *testing.T) {
	cache := newResolutionCache(time.Minute)

	var computes int32
	release := make(chan struct{})

	const callers = 25
	results := make([]*ResolvedToken, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.resolve(context.Background(), "github.com", func(ctx context.Context) *ResolvedToken {
				atomic.AddInt32(&computes, 1)
				<-release
				return &ResolvedToken{Token: "shared", Source: SourceKeychain}
			})
		}(i)
	}

	// Let every caller reach the flight before releasing the computation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&computes); got != 1 {
		t.Fatalf("compute ran %d times, want 1", got)
	}
	for i, result := range results {
		if result == nil || result.Token != "shared" {
			t.Errorf("caller %d got %+v, want shared token", i, result)
		}
	}
}

func TestCacheFlightDetachedFromCallerCancellation(t *testing.T) {
	cache := newResolutionCache(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	got := cache.resolve(ctx, "github.com", func(flightCtx context.Context) *ResolvedToken {
		// Cancel the initiating caller mid-flight; the shared
		// computation must keep running so waiters do not inherit a
		// poisoned outcome for the full TTL.
		cancel()
		if flightCtx.Err() != nil {
			return nil
		}
		return &ResolvedToken{Token: "survived", Source: SourceKeychain}
	})

	if got == nil || got.Token != "survived" {
		t.Fatalf("resolve = %+v, want token despite cancellation", got)
	}
	if cached, ok := cache.get("github.com"); !ok || cached == nil || cached.Token != "survived" {
		t.Errorf("cached entry = %+v, %v, want the completed result", cached, ok)
	}
}

func TestCacheHitWithinTTL(t *testing.T) {
	cache := newResolutionCache(time.Minute)

	var computes int
	compute := func(ctx context.Context) *ResolvedToken {
		computes++
		return &ResolvedToken{Token: "cached"}
	}

	first := cache.resolve(context.Background(), "github.com", compute)
	second := cache.resolve(context.Background(), "github.com", compute)

	if computes != 1 {
		t.Errorf("compute ran %d times, want 1", computes)
	}
	if first.Token != "cached" || second.Token != "cached" {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}
}

func TestCacheCachesNotFound(t *testing.T) {
	cache := newResolutionCache(time.Minute)

	var computes int
	compute := func(ctx context.Context) *ResolvedToken {
		computes++
		return nil
	}

	if got := cache.resolve(context.Background(), "github.com", compute); got != nil {
		t.Errorf("first resolve = %+v, want nil", got)
	}
	if got := cache.resolve(context.Background(), "github.com", compute); got != nil {
		t.Errorf("second resolve = %+v, want nil", got)
	}
	if computes != 1 {
		t.Errorf("compute ran %d times, want 1 (not-found must be cached)", computes)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := newResolutionCache(20 * time.Millisecond)

	var computes int
	compute := func(ctx context.Context) *ResolvedToken {
		computes++
		return &ResolvedToken{Token: "v"}
	}

	cache.resolve(context.Background(), "github.com", compute)
	time.Sleep(40 * time.Millisecond)
	cache.resolve(context.Background(), "github.com", compute)

	if computes != 2 {
		t.Errorf("compute ran %d times, want 2 after TTL expiry", computes)
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache := newResolutionCache(time.Minute)

	var computes int
	compute := func(ctx context.Context) *ResolvedToken {
		computes++
		return &ResolvedToken{Token: "v"}
	}

	cache.resolve(context.Background(), "github.com", compute)
	cache.resolve(context.Background(), "gitlab.com", compute)

	cache.invalidate("github.com")
	cache.resolve(context.Background(), "github.com", compute)
	cache.resolve(context.Background(), "gitlab.com", compute)

	if computes != 3 {
		t.Errorf("compute ran %d times, want 3 (only github.com invalidated)", computes)
	}

	cache.invalidateAll()
	cache.resolve(context.Background(), "github.com", compute)
	cache.resolve(context.Background(), "gitlab.com", compute)

	if computes != 5 {
		t.Errorf("compute ran %d times, want 5 after invalidateAll", computes)
	}
}
