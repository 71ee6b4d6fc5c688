package ratelimit_test

import (
	"sync"
	"testing"

	"github.com/blackroad/gateway/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestCheck_DisabledWhenLimitZero(t *testing.T) {
	l := ratelimit.New()
	for i := 0; i < 100; i++ {
		l.Record("a")
	}
	assert.True(t, l.Check("a", 0))
}

func TestCheck_UsageTracksRecords(t *testing.T) {
	l := ratelimit.New()
	assert.Equal(t, 0, l.Usage("a"))
	l.Record("a")
	l.Record("a")
	assert.Equal(t, 2, l.Usage("a"))
	assert.True(t, l.Check("a", 3))
	assert.False(t, l.Check("a", 2))
}

func TestReserve_GrantsUpToLimit(t *testing.T) {
	l := ratelimit.New()
	for i := 0; i < 5; i++ {
		ok, _ := l.Reserve("agent", 5)
		assert.True(t, ok)
	}
	ok, _ := l.Reserve("agent", 5)
	assert.False(t, ok, "sixth reservation must be denied at limit 5")
}

func TestReserve_ReleaseFreesSlot(t *testing.T) {
	l := ratelimit.New()
	ok, release := l.Reserve("agent", 1)
	assert.True(t, ok)

	ok2, _ := l.Reserve("agent", 1)
	assert.False(t, ok2, "slot still held")

	release()

	ok3, _ := l.Reserve("agent", 1)
	assert.True(t, ok3, "slot freed after release")
}

func TestReserve_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	l := ratelimit.New()
	const limit = 5
	const attempts = 50

	var granted int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Reserve("agent", limit); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, granted, limit)
	assert.Equal(t, limit, granted, "exactly the limit should be granted when attempts exceed it")
}
