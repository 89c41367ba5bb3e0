// Package config loads the Aegis proxy's configuration from AEGIS_-prefixed
// environment variables, with documented defaults for every field.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the full runtime configuration surface for the proxy.
type Config struct {
	UpstreamRPCURL string
	Host           string
	Port           uint16

	FeeBps       uint16
	FeeCollector string

	MaxLossPct            float64
	BlockApprovalChanges  bool
	FlashbotsEnabled      bool
	FlashbotsRelayURL     string
	ForkBlock             uint64
	SimulationGasCeiling  uint64
	SimulationTimeoutMs   uint64
	MaxBundleDeadlineSecs uint64

	SanitizeReadResponses bool
	DetectNonDeterminism  bool
	ExpectedChainID       uint64
	MaxUserOpGas          uint64

	RevertStrikeMax        uint32
	RevertStrikeWindowSecs uint64

	// MempoolWSURL is the upstream WebSocket endpoint the revocation
	// watcher subscribes on. Empty (or "disabled") turns the watcher
	// into a permanent no-op.
	MempoolWSURL           string
	SessionManagerAddress  string
	ThreatFeedURL          string
	ThreatFeedRefreshSecs  uint64
	TelemetryUplinkURL     string
	IndexerBaseURL         string
	StatsdAddress          string
}

// FromEnv loads configuration from AEGIS_-prefixed environment variables,
// falling back to the defaults below when a variable is unset.
func FromEnv() (*Config, error) {
	cfg := &Config{
		UpstreamRPCURL:        getEnv("AEGIS_UPSTREAM_RPC", "https://eth-mainnet.g.alchemy.com/v2/demo"),
		Host:                  getEnv("AEGIS_HOST", "0.0.0.0"),
		FeeCollector:          getEnv("AEGIS_FEE_COLLECTOR", "0x0000000000000000000000000000000000000000"),
		BlockApprovalChanges:  getEnvBoolDefault("AEGIS_BLOCK_APPROVALS", true),
		FlashbotsEnabled:      getEnvBoolDefault("AEGIS_FLASHBOTS_ENABLED", false),
		FlashbotsRelayURL:     getEnv("AEGIS_FLASHBOTS_RELAY", "https://relay.flashbots.net"),
		SanitizeReadResponses: getEnvBoolDefault("AEGIS_SANITIZE_READS", false),
		DetectNonDeterminism:  getEnvBoolDefault("AEGIS_DETECT_NONDET", false),
		MempoolWSURL:          getEnv("AEGIS_MEMPOOL_WS_URL", ""),
		SessionManagerAddress: getEnv("AEGIS_SESSION_MANAGER_ADDR", ""),
		ThreatFeedURL:         getEnv("AEGIS_THREAT_FEED_URL", ""),
		TelemetryUplinkURL:    getEnv("AEGIS_TELEMETRY_URL", "https://cloud.aegis.network/v1/ioc"),
		IndexerBaseURL:        getEnv("AEGIS_INDEXER_URL", ""),
		StatsdAddress:         getEnv("AEGIS_STATSD_ADDR", "127.0.0.1:8125"),
	}

	port, err := getEnvUint("AEGIS_PORT", 8545)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_PORT: %w", err)
	}
	cfg.Port = uint16(port)

	feeBps, err := getEnvUint("AEGIS_FEE_BPS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_FEE_BPS: %w", err)
	}
	cfg.FeeBps = uint16(feeBps)

	maxLossPct, err := getEnvFloat("AEGIS_MAX_LOSS_PCT", 20.0)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_MAX_LOSS_PCT: %w", err)
	}
	cfg.MaxLossPct = maxLossPct

	cfg.ForkBlock, err = getEnvUint("AEGIS_FORK_BLOCK", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_FORK_BLOCK: %w", err)
	}

	cfg.SimulationGasCeiling, err = getEnvUint("AEGIS_SIM_GAS_CEILING", 5_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_SIM_GAS_CEILING: %w", err)
	}

	cfg.SimulationTimeoutMs, err = getEnvUint("AEGIS_SIM_TIMEOUT_MS", 50)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_SIM_TIMEOUT_MS: %w", err)
	}

	cfg.MaxBundleDeadlineSecs, err = getEnvUint("AEGIS_MAX_BUNDLE_DEADLINE", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_MAX_BUNDLE_DEADLINE: %w", err)
	}

	cfg.ExpectedChainID, err = getEnvUint("AEGIS_EXPECTED_CHAIN_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_EXPECTED_CHAIN_ID: %w", err)
	}

	cfg.MaxUserOpGas, err = getEnvUint("AEGIS_MAX_USEROP_GAS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_MAX_USEROP_GAS: %w", err)
	}

	strikeMax, err := getEnvUint("AEGIS_REVERT_STRIKE_MAX", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_REVERT_STRIKE_MAX: %w", err)
	}
	cfg.RevertStrikeMax = uint32(strikeMax)

	cfg.RevertStrikeWindowSecs, err = getEnvUint("AEGIS_REVERT_STRIKE_WINDOW", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_REVERT_STRIKE_WINDOW: %w", err)
	}

	cfg.ThreatFeedRefreshSecs, err = getEnvUint("AEGIS_THREAT_FEED_REFRESH_SECS", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid AEGIS_THREAT_FEED_REFRESH_SECS: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBoolDefault(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvUint(key string, fallback uint64) (uint64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	return strconv.ParseUint(v, 10, 64)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
