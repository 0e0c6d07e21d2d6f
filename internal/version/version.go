// Package version holds the two atomic monotonic counters that drive xDS
// response freshness: a version bumped on every successful store mutation,
// and a nonce issued per outgoing discovery response. Both render as
// decimal strings, per the xDS wire contract.
package version

import (
	"strconv"
	"sync/atomic"
)

// Tracker holds the process-lifetime version and nonce counters.
type Tracker struct {
	version atomic.Uint64
	nonce   atomic.Uint64
}

// NewTracker returns a Tracker whose version starts at 0 (no mutation has
// happened yet) and whose nonce starts at 0.
func NewTracker() *Tracker {
	return &Tracker{}
}

// BumpVersion advances the version counter and returns its new value.
// Call once per successful store mutation.
func (t *Tracker) BumpVersion() uint64 {
	return t.version.Add(1)
}

// CurrentVersion returns the current version without advancing it.
func (t *Tracker) CurrentVersion() uint64 {
	return t.version.Load()
}

// CurrentVersionString renders CurrentVersion as a decimal string.
func (t *Tracker) CurrentVersionString() string {
	return strconv.FormatUint(t.CurrentVersion(), 10)
}

// NextNonce issues a fresh nonce, rendered as a decimal string. Call once
// per outgoing discovery response.
func (t *Tracker) NextNonce() string {
	return strconv.FormatUint(t.nonce.Add(1), 10)
}
