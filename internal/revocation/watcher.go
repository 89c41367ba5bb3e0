package revocation

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// SessionKeyRevokedTopic is keccak256("SessionKeyRevoked(address,bytes32)"),
// matching the AegisSessionManager.sol contract event.
const SessionKeyRevokedTopic = "0xe334efb55400a03a30f4eb9eb593e6a17a62f03d00926a8ed4be8dc6c4838c83"

// logNotification is the minimal shape of an eth_subscribe("logs", ...)
// notification we need: just enough to pull the revoked address out of
// topic[1]. We deliberately do not decode into go-ethereum's
// core/types.Log — we only ever read topics, so a narrow struct keeps the
// watcher decoupled from the rest of that type's JSON shape.
type logNotification struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
}

// Watcher is a long-running task that subscribes to pending
// SessionKeyRevoked logs and feeds revoked addresses into a Cache.
type Watcher struct {
	cache   Cache
	log     *zap.Logger
	wsURL   string
	session string
}

// NewWatcher builds a watcher that will revoke into cache. wsURL empty or
// "disabled" makes Run a permanent no-op.
func NewWatcher(cache Cache, log *zap.Logger, wsURL, sessionManagerAddress string) *Watcher {
	return &Watcher{
		cache:   cache,
		log:     log,
		wsURL:   wsURL,
		session: strings.ToLower(sessionManagerAddress),
	}
}

// Run blocks until ctx is cancelled. It reconnects with exponential
// backoff on any transport error and returns promptly once ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	if w.wsURL == "" || w.wsURL == "disabled" {
		w.log.Info("mempool revocation watcher disabled (no WS URL)")
		<-ctx.Done()
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		if err := w.runOnce(ctx); err != nil {
			w.log.Warn("mempool revocation watcher disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) error {
	var client *gethrpc.Client
	err := retry.Do(
		func() error {
			c, dialErr := gethrpc.DialContext(ctx, w.wsURL)
			if dialErr != nil {
				return dialErr
			}
			client = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	notifCh := make(chan logNotification, 64)
	filter := map[string]interface{}{
		"address": w.session,
		"topics":  []string{SessionKeyRevokedTopic},
	}

	sub, err := client.EthSubscribe(ctx, notifCh, "logs", filter)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	w.log.Info("mempool revocation watcher subscribed",
		zap.String("ws_url", w.wsURL), zap.String("contract", w.session))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case notif := <-notifCh:
			w.handleLog(notif)
		}
	}
}

func (w *Watcher) handleLog(notif logNotification) {
	if len(notif.Topics) < 2 {
		return
	}
	// topic[1] is the indexed `address` parameter, left-padded to 32
	// bytes; the low 20 bytes are the address.
	topic := notif.Topics[1]
	raw := strings.TrimPrefix(topic, "0x")
	if len(raw) < 40 {
		return
	}
	addr := "0x" + raw[len(raw)-40:]
	w.log.Info("session key pessimistically revoked from mempool", zap.String("session_key", addr))
	w.cache.Revoke(addr)
}
