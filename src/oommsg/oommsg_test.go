package oommsg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifyDeliversToWaitingReceiver(t *testing.T) {
	done := make(chan Oommsg_t, 1)
	go func() {
		done <- <-OomCh
	}()

	// Give the goroutine a chance to block on the receive before notifying.
	time.Sleep(10 * time.Millisecond)
	Notify(3)

	select {
	case msg := <-done:
		require.Equal(t, 3, msg.Need)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for oommsg delivery")
	}
}

func TestNotifyDropsWithoutReceiver(t *testing.T) {
	require.NotPanics(t, func() { Notify(1) })
}
