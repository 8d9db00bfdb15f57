package peer

import "sync"

// Canceller fans a single abort signal out to every worker blocked on a
// peer call, mirroring the ZMQ SUB "stop scan" endpoint in
// original_source's scanner: any worker can be mid-poll when an operator
// or a reorg needs every worker to give up its current batch and
// resynchronize.
type Canceller struct {
	mu   sync.RWMutex
	subs map[chan struct{}]struct{}
}

// NewCanceller returns an empty broadcaster.
func NewCanceller() *Canceller {
	return &Canceller{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new listener. The returned channel is closed on
// the next Broadcast; the returned func removes the subscription
// without waiting for a broadcast (call it once the caller no longer
// needs to listen, to avoid leaking the entry).
func (c *Canceller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{})
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	unsubscribe := func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
		}
		c.mu.Unlock()
	}
	return ch, unsubscribe
}

// Broadcast closes every subscriber's channel, waking any worker
// blocked on a peer call or poll, then clears the subscriber list so a
// later Broadcast does not attempt to close an already-closed channel.
func (c *Canceller) Broadcast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		close(ch)
	}
	c.subs = make(map[chan struct{}]struct{})
}
