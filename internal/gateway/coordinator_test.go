package gateway

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCoordinator_SingleLeader(t *testing.T) {
	c := NewRefreshCoordinator()
	current := func() string { return "A1" }

	first := c.AcquireOrWait("A1", current)
	require.True(t, first.Leader)
	require.True(t, c.Refreshing())

	second := c.AcquireOrWait("A1", current)
	require.False(t, second.Leader)
	require.NotNil(t, second.Wait)
	require.Equal(t, 1, c.Waiting())

	require.Equal(t, 1, c.Resolve(Outcome{Access: "A2"}))
	require.Equal(t, Outcome{Access: "A2"}, <-second.Wait)
	require.False(t, c.Refreshing())
	require.Zero(t, c.Waiting())
}

func TestCoordinator_ReleasesInEnqueueOrderWithSameOutcome(t *testing.T) {
	c := NewRefreshCoordinator()
	current := func() string { return "A1" }
	require.True(t, c.AcquireOrWait("A1", current).Leader)

	const n = 8
	var chans []<-chan Outcome
	for i := 0; i < n; i++ {
		tk := c.AcquireOrWait("A1", current)
		chans = append(chans, tk.Wait)
	}
	// queue mirrors arrival order
	c.mu.Lock()
	for i, ch := range c.waiters {
		require.Equal(t, chans[i], (<-chan Outcome)(ch))
	}
	c.mu.Unlock()

	fail := errors.New("refresh failed")
	require.Equal(t, n, c.Resolve(Outcome{Err: fail}))
	for _, ch := range chans {
		o := <-ch
		require.ErrorIs(t, o.Err, fail)
		require.Empty(t, o.Access)
	}
}

func TestCoordinator_RenewedWhenCredentialMovedOn(t *testing.T) {
	c := NewRefreshCoordinator()
	tk := c.AcquireOrWait("A1", func() string { return "A2" })
	require.True(t, tk.Renewed)
	require.Equal(t, "A2", tk.Access)
	require.False(t, c.Refreshing())

	tk = c.AcquireOrWait("A1", func() string { return "" })
	require.True(t, tk.Renewed)
	require.Empty(t, tk.Access)
}

func TestCoordinator_ConcurrentAcquireHasOneLeader(t *testing.T) {
	c := NewRefreshCoordinator()
	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	leaders, waiters := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := c.AcquireOrWait("A1", func() string { return "A1" })
			mu.Lock()
			defer mu.Unlock()
			if tk.Leader {
				leaders++
			} else if tk.Wait != nil {
				waiters++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, leaders)
	require.Equal(t, n-1, waiters)
	require.Equal(t, n-1, c.Resolve(Outcome{Access: "A2"}))
}
