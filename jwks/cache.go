package jwks

import "sync/atomic"

// RefreshState tells the scheduler whether the key set should be fetched
// again on its next tick.
type RefreshState uint32

const (
	// RefreshNotNeeded means the current key set is up to date.
	RefreshNotNeeded RefreshState = iota
	// RefreshNeeded means a lookup missed, or the last refresh failed.
	RefreshNeeded
)

// String implements fmt.Stringer.
func (s RefreshState) String() string {
	switch s {
	case RefreshNotNeeded:
		return "not_needed"
	case RefreshNeeded:
		return "needed"
	default:
		return "unknown"
	}
}

// keyCache holds the current key set and the refresh flag of one strategy.
//
// Readers never block: the key set is an immutable snapshot behind an
// atomic pointer and the flag is a single atomic word. The scheduler is
// the only writer of the key set and the only one clearing the flag.
//
// A miss that lands while a refresh is in flight finds the flag already
// set; it marks the cache dirty instead so install keeps the flag set and
// the next tick fetches again.
type keyCache struct {
	keys  atomic.Pointer[KeySet]
	state atomic.Uint32
	dirty atomic.Bool
}

// signers returns the installed key set, or false when no refresh has
// succeeded yet.
func (c *keyCache) signers() (*KeySet, bool) {
	ks := c.keys.Load()
	return ks, ks != nil
}

// markNeeded flags the cache for refresh. It reports whether this call
// performed the transition from RefreshNotNeeded.
func (c *keyCache) markNeeded() bool {
	if c.state.CompareAndSwap(uint32(RefreshNotNeeded), uint32(RefreshNeeded)) {
		return true
	}
	c.dirty.Store(true)
	return false
}

// beginRefresh forgets misses seen before the fetch starts; the fetch
// about to run covers them.
func (c *keyCache) beginRefresh() {
	c.dirty.Store(false)
}

// forceNeeded sets the flag regardless of its current value.
func (c *keyCache) forceNeeded() {
	c.state.Store(uint32(RefreshNeeded))
}

func (c *keyCache) refreshState() RefreshState {
	return RefreshState(c.state.Load())
}

// install swaps in a complete key set and clears the flag, unless a miss
// arrived after the fetch began.
func (c *keyCache) install(ks *KeySet) {
	c.keys.Store(ks)
	if c.dirty.Swap(false) {
		c.state.Store(uint32(RefreshNeeded))
		return
	}
	c.state.Store(uint32(RefreshNotNeeded))
}

// reset drops the key set.
func (c *keyCache) reset() {
	c.keys.Store(nil)
	c.forceNeeded()
}
