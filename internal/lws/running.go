package lws

import "sync/atomic"

// Running is the process-wide shutdown flag. The supervisor's epoch
// loop checks it before starting each epoch; scan workers do not read
// it and stop only on the cancel broadcast or their context. Stop only
// clears the flag; callers still need to publish a cancel broadcast (see
// internal/lws/peer.Canceller) to wake anything already blocked.
type Running struct {
	flag atomic.Bool
}

// NewRunning returns a Running flag initialized to true.
func NewRunning() *Running {
	r := &Running{}
	r.flag.Store(true)
	return r
}

// IsRunning reports whether the process has not yet been told to stop.
func (r *Running) IsRunning() bool { return r.flag.Load() }

// Stop flips the flag false. It is idempotent and safe for concurrent use.
func (r *Running) Stop() { r.flag.Store(false) }
