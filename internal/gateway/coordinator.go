package gateway

import "sync"

// Outcome is what an in-flight refresh resolves to: a new access credential or a terminal error.
type Outcome struct {
	Access string
	Err    error
}

// Ticket is the answer of AcquireOrWait. Exactly one of the three shapes is returned:
//   - Leader: the caller must perform the refresh and then call Resolve.
//   - Wait != nil: a refresh is in flight; the outcome arrives on Wait.
//   - Renewed: the credential already changed since the request was sent; Access holds
//     the current one (empty when the session has been cleared).
type Ticket struct {
	Leader  bool
	Renewed bool
	Access  string
	Wait    <-chan Outcome
}

// RefreshCoordinator makes credential refresh single-flight. It owns the refreshing
// flag and the FIFO list of waiters; one instance lives as long as the Gateway.
type RefreshCoordinator struct {
	mu         sync.Mutex
	refreshing bool
	waiters    []chan Outcome
}

func NewRefreshCoordinator() *RefreshCoordinator { return &RefreshCoordinator{} }

// AcquireOrWait is called by a request that got an authorization failure while carrying
// sentWith. current reads the credential store; it is evaluated under the coordinator
// lock so a refresh that committed its result is always observed.
func (c *RefreshCoordinator) AcquireOrWait(sentWith string, current func() string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshing {
		ch := make(chan Outcome, 1)
		c.waiters = append(c.waiters, ch)
		return Ticket{Wait: ch}
	}
	if now := current(); now != sentWith {
		return Ticket{Renewed: true, Access: now}
	}
	c.refreshing = true
	return Ticket{Leader: true}
}

// Resolve ends the in-flight refresh and releases every queued waiter, in enqueue
// order, with the same outcome. It returns the number of waiters released.
func (c *RefreshCoordinator) Resolve(o Outcome) int {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- o // buffered, never blocks
	}
	return len(waiters)
}

// Refreshing reports whether a refresh is in flight.
func (c *RefreshCoordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Waiting returns the number of queued waiters.
func (c *RefreshCoordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
