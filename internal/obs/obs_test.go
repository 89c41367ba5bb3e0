package obs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest/observer"

	"go.uber.org/zap"
)

func TestInitLoggerReturnsUsableLogger(t *testing.T) {
	log, sync, err := InitLogger()
	require.NoError(t, err)
	require.NotNil(t, log)
	defer sync()
}

func TestInitStatsdDialsWithoutError(t *testing.T) {
	client, err := InitStatsd("127.0.0.1:8125")
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()
}

func TestTimerEmitIsNoOpWithNilClient(t *testing.T) {
	tm := NewTimer(nil, MetricRequestTiming, "eth_call")
	assert.NotPanics(t, func() { tm.Emit() })
}

func TestIncrIsNoOpWithNilClient(t *testing.T) {
	assert.NotPanics(t, func() { Incr(nil, MetricPolicyBlock, "eth_sendTransaction", "THREAT FEED HIT") })
}

func TestLogPolicyBlockEmitsStructuredWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	LogPolicyBlock(log, "eth_sendTransaction", "PHYSICS VIOLATION")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "policy block", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "eth_sendTransaction", fields[tagMethod])
	assert.Equal(t, "PHYSICS VIOLATION", fields[tagReason])
}
