package broadcast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envoyage/envoyage/internal/broadcast"
)

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	b := broadcast.New()
	ch1, unsub1 := b.Subscribe()
	defer unsub1()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	b.Publish()

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("ch1 did not receive publish")
	}
	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Fatal("ch2 did not receive publish")
	}
}

func TestPublish_NonBlockingWhenBufferFull(t *testing.T) {
	b := broadcast.New()
	_, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		b.Publish()
		b.Publish() // second publish must not block even though the first tick is unread
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := broadcast.New()
	ch, unsub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())
	unsub()
	require.Equal(t, 0, b.SubscriberCount())

	b.Publish()
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
