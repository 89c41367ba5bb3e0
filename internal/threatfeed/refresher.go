package threatfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// indicator is the wire shape the threat feed publishes: one malicious
// (contract, selector) pair per entry.
type indicator struct {
	To       string `json:"to"`
	Selector string `json:"selector"`
}

// Refresher periodically polls feedURL for the current indicator set and
// swaps it into a Feed as a pull-and-replace cycle, since the threat feed
// is a plain HTTP resource rather than a streaming RPC.
type Refresher struct {
	feed     *Feed
	feedURL  string
	interval time.Duration
	client   *http.Client
	log      *zap.Logger
}

// NewRefresher builds a Refresher. feedURL == "" makes Run a permanent
// no-op — the feed simply never matches anything, which is a safe
// degraded mode: a pre-filter miss always forwards through simulation,
// it never grants a free pass.
func NewRefresher(feed *Feed, feedURL string, interval time.Duration, log *zap.Logger) *Refresher {
	return &Refresher{
		feed:     feed,
		feedURL:  feedURL,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

// Run blocks until ctx is cancelled, refreshing the feed on interval.
func (r *Refresher) Run(ctx context.Context) {
	if r.feedURL == "" {
		r.log.Info("threat feed disabled (no feed URL configured)")
		<-ctx.Done()
		return
	}

	if err := r.refreshOnce(ctx); err != nil {
		r.log.Warn("initial threat feed fetch failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.refreshOnce(ctx); err != nil {
				r.log.Warn("threat feed refresh failed, keeping previous generation", zap.Error(err))
			}
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("threat feed returned status %d", resp.StatusCode)
	}

	var indicators []indicator
	if err := json.NewDecoder(resp.Body).Decode(&indicators); err != nil {
		return fmt.Errorf("decoding threat feed body: %w", err)
	}

	next := New(uint64(len(indicators)))
	for _, ind := range indicators {
		next.Add(ind.To, ind.Selector)
	}

	r.feed.Swap(next)
	r.log.Info("threat feed refreshed", zap.Int("indicator_count", len(indicators)))
	return nil
}
