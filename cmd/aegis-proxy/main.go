// Command aegis-proxy runs the Aegis blast-door JSON-RPC proxy: load
// config, build the collaborators, bootstrap the server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/aegisnetwork/aegis-rpc/internal/config"
	"github.com/aegisnetwork/aegis-rpc/internal/dispatcher"
	"github.com/aegisnetwork/aegis-rpc/internal/httpapi"
	"github.com/aegisnetwork/aegis-rpc/internal/indexer"
	"github.com/aegisnetwork/aegis-rpc/internal/obs"
	"github.com/aegisnetwork/aegis-rpc/internal/revocation"
	"github.com/aegisnetwork/aegis-rpc/internal/sanitizer"
	"github.com/aegisnetwork/aegis-rpc/internal/simulation"
	"github.com/aegisnetwork/aegis-rpc/internal/strikes"
	"github.com/aegisnetwork/aegis-rpc/internal/syntheticreceipt"
	"github.com/aegisnetwork/aegis-rpc/internal/telemetry"
	"github.com/aegisnetwork/aegis-rpc/internal/threatfeed"
	"github.com/aegisnetwork/aegis-rpc/internal/upstream"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "query-vaults" {
		runQueryVaults(os.Args[2:])
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("unable to load configuration: %v", err)
	}

	logger, flush, err := obs.InitLogger()
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}
	defer flush()

	statsdClient, err := obs.InitStatsd(cfg.StatsdAddress)
	if err != nil {
		logger.Warn("statsd client unavailable, metrics disabled", zap.Error(err))
		statsdClient = nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	upstreamClient, err := upstream.NewGethRPCClient(ctx, cfg.UpstreamRPCURL)
	if err != nil {
		log.Fatalf("unable to dial upstream RPC: %v", err)
	}
	defer upstreamClient.Close()

	ethClient, err := ethclient.DialContext(ctx, cfg.UpstreamRPCURL)
	if err != nil {
		log.Fatalf("unable to dial upstream RPC for simulation: %v", err)
	}

	receipts, err := syntheticreceipt.New(syntheticreceipt.DefaultCapacity)
	if err != nil {
		log.Fatalf("unable to initialize synthetic receipt store: %v", err)
	}

	revokedCache := revocation.NewCache()
	strikeTracker := strikes.New(cfg.RevertStrikeMax, cfg.RevertStrikeWindowSecs)
	feed := threatfeed.NewFeed()
	sim := simulation.NewGethForkSimulator(ethClient)

	uplinker := telemetry.NewUplinker(cfg.TelemetryUplinkURL, 1024, logger)
	go uplinker.Run(ctx)

	watcher := revocation.NewWatcher(revokedCache, logger, cfg.MempoolWSURL, cfg.SessionManagerAddress)
	go watcher.Run(ctx)

	refresher := threatfeed.NewRefresher(feed, cfg.ThreatFeedURL, time.Duration(cfg.ThreatFeedRefreshSecs)*time.Second, logger)
	go refresher.Run(ctx)

	d := dispatcher.New(
		cfg, logger, receipts, revokedCache, strikeTracker, feed,
		sim, sanitizer.ControlCharSanitizer{}, uplinker, upstreamClient, statsdClient,
	)

	router := httpapi.NewRouter(d, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if err := httpapi.Serve(ctx, addr, router, logger); err != nil {
		logger.Fatal("aegis proxy exited with error", zap.Error(err))
	}
}

// runQueryVaults is the operator CLI path for the indexer collaborator:
// `aegis-proxy query-vaults <owner>`. It never touches the dispatcher —
// purely an operational convenience wired on top of internal/indexer.
func runQueryVaults(args []string) {
	if len(args) < 1 {
		log.Fatalln("usage: aegis-proxy query-vaults <owner-address>")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("unable to load configuration: %v", err)
	}
	if cfg.IndexerBaseURL == "" {
		log.Fatalln("AEGIS_INDEXER_URL is not configured")
	}

	client := indexer.NewClient(cfg.IndexerBaseURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.VaultsByOwner(ctx, args[0])
	if err != nil {
		log.Fatalf("vault lookup failed: %v", err)
	}

	fmt.Printf("owner=%s count=%d\n", resp.Owner, resp.Count)
	for _, v := range resp.Vaults {
		fmt.Printf("  vault=%s chain=%s(%d) block=%d tx=%s\n",
			v.VaultAddress, v.ChainName, v.ChainID, v.BlockNumber, v.DeployTxHash)
	}
}
