// Package broadcast implements a publish-subscribe primitive for "the store
// changed" wake-ups. Subscribers don't need to learn what changed — only
// that a materialization pass is worth retrying — so publish is
// non-blocking and coalesces: a subscriber channel never holds more than
// one pending tick.
package broadcast

import "sync"

// Broadcaster fans out wake-up ticks to any number of subscribers.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered (capacity 1) so Publish
// never blocks on a slow or absent reader.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish wakes every current subscriber. Non-blocking: a subscriber whose
// buffer already holds a pending tick is left alone — it hasn't drained the
// last one yet, and a single tick is all it needs before it re-reads
// current store state at its own pace.
func (b *Broadcaster) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount reports the number of currently active subscribers, for
// observability.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
