// Package telemetry extracts indicator-of-compromise (IOC) records from
// blocked requests and ships them to a remote collector on a buffered,
// non-blocking queue so uplink never stalls the request path.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IOC is a single indicator-of-compromise record emitted whenever a
// PolicyBlock is tied to an identifiable attack (bloom hit, physics
// violation, dangerous typed-data).
type IOC struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Data      string    `json:"data,omitempty"`
	Source    string    `json:"source"`
	Reason    string    `json:"reason"`
	Detail    []string  `json:"detail,omitempty"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Severity levels used across the dispatcher's PolicyBlock paths.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ExtractIOC builds an IOC record. It never fails: every field is
// optional for the wire format, so there is nothing to validate here —
// uplink is what can fail.
func ExtractIOC(from, to, data, source, reason string, detail []string, severity string, now time.Time) IOC {
	return IOC{
		From: from, To: to, Data: data,
		Source: source, Reason: reason, Detail: detail,
		Severity: severity, Timestamp: now,
	}
}

// Uplinker queues IOCs for best-effort delivery to a remote collector.
// Queue is non-blocking: a full queue drops the oldest pending IOC rather
// than stalling the caller, since the request path must never wait on
// telemetry.
type Uplinker struct {
	url    string
	queue  chan IOC
	client *http.Client
	log    *zap.Logger
}

// NewUplinker constructs an Uplinker targeting url with a bounded
// in-memory queue. url == "" makes Queue a silent no-op.
func NewUplinker(url string, queueSize int, log *zap.Logger) *Uplinker {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Uplinker{
		url:    url,
		queue:  make(chan IOC, queueSize),
		client: &http.Client{Timeout: 3 * time.Second},
		log:    log,
	}
}

// Queue enqueues ioc for background uplink. Never blocks the caller.
func (u *Uplinker) Queue(ioc IOC) {
	if u.url == "" {
		return
	}
	select {
	case u.queue <- ioc:
	default:
		select {
		case <-u.queue:
		default:
		}
		select {
		case u.queue <- ioc:
		default:
		}
	}
}

// Run drains the queue and ships each IOC to url, swallowing all
// failures. It blocks until ctx is cancelled.
func (u *Uplinker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ioc := <-u.queue:
			u.uplinkOne(ctx, ioc)
		}
	}
}

func (u *Uplinker) uplinkOne(ctx context.Context, ioc IOC) {
	body, err := json.Marshal(ioc)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		u.log.Debug("IOC uplink failed, dropping", zap.Error(err))
		return
	}
	_ = resp.Body.Close()
}
