// Package obs is the proxy's observability stack: structured logging via
// zap and metrics via dogstatsd. No APM tracer or profiler — this proxy
// has no need for distributed tracing.
package obs

import (
	"fmt"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"go.uber.org/zap"
)

const (
	MetricRequestTiming   = "aegis.dispatch.timing"
	MetricPolicyBlock     = "aegis.policy.block"
	MetricIOCEmitted      = "aegis.ioc.emitted"
	MetricIOCUplinkFailed = "aegis.ioc.uplink_failed"
	MetricSeverLatched    = "aegis.paymaster.severed"
	MetricSyntheticSend   = "aegis.synthetic.send"

	tagMethod = "method"
	tagReason = "reason"
)

// InitLogger builds a zap production logger and returns a flush function
// for use with `defer`.
func InitLogger() (*zap.Logger, func(), error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, nil, err
	}
	sync := func() {
		if syncErr := log.Sync(); syncErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to sync log: %v\n", syncErr)
		}
	}
	return log, sync, nil
}

// InitStatsd dials a dogstatsd agent at addr.
func InitStatsd(addr string) (*statsd.Client, error) {
	return statsd.New(addr)
}

// Timer measures and emits call latency.
type Timer struct {
	client    *statsd.Client
	name      string
	tags      []string
	startTime time.Time
}

// NewTimer starts a timer for name, tagged with method.
func NewTimer(client *statsd.Client, name, method string) *Timer {
	return &Timer{
		client:    client,
		name:      name,
		tags:      []string{tagMethod + ":" + method},
		startTime: time.Now(),
	}
}

// Emit reports the elapsed time since NewTimer.
func (t *Timer) Emit() {
	if t.client == nil {
		return
	}
	_ = t.client.Timing(t.name, time.Since(t.startTime), t.tags, 1)
}

// Incr increments a counter, tagged with method and reason.
func Incr(client *statsd.Client, name, method, reason string) {
	if client == nil {
		return
	}
	tags := []string{tagMethod + ":" + method}
	if reason != "" {
		tags = append(tags, tagReason+":"+reason)
	}
	_ = client.Incr(name, tags, 1)
}

// LogPolicyBlock logs a structured warning for a blocked request.
func LogPolicyBlock(log *zap.Logger, method, reason string) {
	log.Warn("policy block",
		zap.String(tagMethod, method),
		zap.String(tagReason, reason),
	)
}
