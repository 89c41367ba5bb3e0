package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractIOCPopulatesAllFields(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	ioc := ExtractIOC("0xfrom", "0xto", "0xdata", "threatfeed", "THREAT FEED HIT", []string{"d1"}, SeverityHigh, now)

	assert.Equal(t, "0xfrom", ioc.From)
	assert.Equal(t, "0xto", ioc.To)
	assert.Equal(t, "0xdata", ioc.Data)
	assert.Equal(t, "threatfeed", ioc.Source)
	assert.Equal(t, "THREAT FEED HIT", ioc.Reason)
	assert.Equal(t, []string{"d1"}, ioc.Detail)
	assert.Equal(t, SeverityHigh, ioc.Severity)
	assert.Equal(t, now, ioc.Timestamp)
}

func TestQueueIsNoOpWhenURLEmpty(t *testing.T) {
	u := NewUplinker("", 0, zap.NewNop())
	u.Queue(IOC{From: "0xa"})
	// queue must stay empty since url=="" short-circuits
	assert.Equal(t, 0, len(u.queue))
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	u := NewUplinker("http://example.invalid", 2, zap.NewNop())
	u.Queue(IOC{From: "first"})
	u.Queue(IOC{From: "second"})
	u.Queue(IOC{From: "third"})

	assert.Equal(t, 2, len(u.queue))
	first := <-u.queue
	second := <-u.queue
	assert.Equal(t, "second", first.From)
	assert.Equal(t, "third", second.From)
}

func TestRunPostsQueuedIOCsToCollector(t *testing.T) {
	var mu sync.Mutex
	var received []IOC

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ioc IOC
		_ = json.NewDecoder(r.Body).Decode(&ioc)
		mu.Lock()
		received = append(received, ioc)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := NewUplinker(srv.URL, 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go u.Run(ctx)

	u.Queue(IOC{From: "0xbeef", Reason: "PHYSICS VIOLATION"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "0xbeef", received[0].From)
	assert.Equal(t, "PHYSICS VIOLATION", received[0].Reason)
}

func TestRunReturnsWhenContextCancelled(t *testing.T) {
	u := NewUplinker("http://example.invalid", 4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
