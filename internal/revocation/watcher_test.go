package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSessionKeyRevokedTopicConstant(t *testing.T) {
	// Must match keccak256("SessionKeyRevoked(address,bytes32)") exactly —
	// a typo here would silently disable the whole watcher.
	assert.Equal(t, "0xe334efb55400a03a30f4eb9eb593e6a17a62f03d00926a8ed4be8dc6c4838c83", SessionKeyRevokedTopic)
}

func TestWatcherRunIsNoOpWhenDisabled(t *testing.T) {
	cache := NewCache()
	w := NewWatcher(cache, zap.NewNop(), "", "0xsession")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestHandleLogExtractsAddressFromTopic(t *testing.T) {
	cache := NewCache()
	w := NewWatcher(cache, zap.NewNop(), "wss://example", "0xsession")

	notif := logNotification{
		Address: "0xsession",
		Topics: []string{
			SessionKeyRevokedTopic,
			"0x000000000000000000000000dead000000000000000000000000000000000001",
		},
	}
	w.handleLog(notif)

	assert.True(t, cache.IsRevoked("0xdead000000000000000000000000000000000001"))
}

func TestHandleLogIgnoresShortTopics(t *testing.T) {
	cache := NewCache()
	w := NewWatcher(cache, zap.NewNop(), "wss://example", "0xsession")

	w.handleLog(logNotification{Address: "0xsession", Topics: []string{SessionKeyRevokedTopic}})
	// no panic, no revocation recorded for anything
	assert.False(t, cache.IsRevoked("0xdead00000000000000000000000000000001"))
}
