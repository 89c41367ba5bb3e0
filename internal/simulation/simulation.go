// Package simulation implements the pre-flight simulation gate that
// stands between a parsed SEND request and the upstream RPC: a candidate
// transaction is dry-run against a simulator collaborator before it is
// ever broadcast, and rejected if it fails any of the configured
// physics checks.
package simulation

import (
	"context"
	"fmt"
	"time"
)

// Result is what the external simulator collaborator reports back for a
// single candidate transaction.
type Result struct {
	// LossPct is the simulator's estimate of value lost to the sender, as
	// a percentage of the sender's balance before the transaction (0 for
	// no loss).
	LossPct float64
	// ApprovalDelta lists token-approval changes the simulated call would
	// make; empty means "no approvals touched".
	ApprovalDelta []ApprovalChange
	// NonDeterministic is true if the simulator observed an environmental
	// opcode (TIMESTAMP, DIFFICULTY/PREVRANDAO, COINBASE, ...) feeding a
	// conditional branch during execution.
	NonDeterministic bool
	// SimulatedBlock and TargetCodehash are logged for downstream block
	// pinning but never consulted by the gate itself.
	SimulatedBlock  uint64
	TargetCodehash  string
}

// ApprovalChange describes a single ERC20/ERC721 approval the simulated
// call would create or widen.
type ApprovalChange struct {
	Token   string
	Spender string
	Amount  string
}

// Simulator dry-runs a candidate transaction and reports what it would
// do, without broadcasting it.
type Simulator interface {
	Simulate(ctx context.Context, from, to, value, data string, gasCeiling uint64) (Result, error)
}

// Config bundles the gate's tunables, sourced from the proxy's
// AEGIS_MAX_LOSS_PCT, AEGIS_BLOCK_APPROVALS, AEGIS_SIM_GAS_CEILING,
// AEGIS_SIM_TIMEOUT_MS, and AEGIS_DETECT_NONDET settings.
type Config struct {
	MaxLossPct           float64
	BlockApprovalChanges bool
	GasCeiling           uint64
	TimeoutMs            uint64
	DetectNonDeterminism bool
}

// Verdict is the gate's decision for one candidate transaction.
type Verdict struct {
	Blocked bool
	Reason  string
	Result  Result
}

// Gate runs the full pre-flight decision: timeout-bounded simulate, then
// physics checks, then (optionally) non-determinism detection.
func Gate(ctx context.Context, sim Simulator, cfg Config, from, to, value, data string) Verdict {
	if sim == nil {
		return Verdict{
			Blocked: true,
			Reason:  "SIMULATION FAILED: no simulator configured",
		}
	}

	simCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	result, err := sim.Simulate(simCtx, from, to, value, data, cfg.GasCeiling)
	if err != nil {
		return Verdict{
			Blocked: true,
			Reason:  fmt.Sprintf("SIMULATION FAILED: %s", err.Error()),
		}
	}

	if result.LossPct > cfg.MaxLossPct {
		return Verdict{
			Blocked: true,
			Reason: fmt.Sprintf(
				"PHYSICS VIOLATION: simulated loss_pct=%.2f exceeds max_loss_pct=%.2f — transaction would drain value from the agent",
				result.LossPct, cfg.MaxLossPct,
			),
			Result: result,
		}
	}

	if cfg.BlockApprovalChanges && len(result.ApprovalDelta) > 0 {
		return Verdict{
			Blocked: true,
			Reason: fmt.Sprintf(
				"PHYSICS VIOLATION: transaction would alter %d token approval(s), which AEGIS_BLOCK_APPROVALS forbids",
				len(result.ApprovalDelta),
			),
			Result: result,
		}
	}

	if cfg.DetectNonDeterminism && result.NonDeterministic {
		return Verdict{
			Blocked: true,
			Reason:  "NON-DETERMINISM DETECTED: simulated call branches on an environmental opcode — outcome cannot be trusted across blocks",
			Result:  result,
		}
	}

	return Verdict{Blocked: false, Result: result}
}
