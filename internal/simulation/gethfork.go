package simulation

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// GethForkSimulator is the default Simulator: it estimates a
// transaction's effect by querying the live upstream node directly
// (balance via eth_getBalance, gas via eth_estimateGas, codehash via
// eth_getCode), rather than forking a local EVM. Gate is deliberately
// decoupled from this implementation — swapping in a true forked-EVM
// simulator never requires a change to Gate.
type GethForkSimulator struct {
	client *ethclient.Client
}

// NewGethForkSimulator wraps an already-dialed ethclient.Client.
func NewGethForkSimulator(client *ethclient.Client) *GethForkSimulator {
	return &GethForkSimulator{client: client}
}

func (s *GethForkSimulator) Simulate(ctx context.Context, from, to, value, data string, gasCeiling uint64) (Result, error) {
	fromAddr := common.HexToAddress(from)
	toAddr := common.HexToAddress(to)

	val, ok := new(big.Int).SetString(value, 10)
	if !ok {
		val = big.NewInt(0)
	}

	balanceBefore, err := s.client.BalanceAt(ctx, fromAddr, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetching balance: %w", err)
	}

	code, err := s.client.CodeAt(ctx, toAddr, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetching target code: %w", err)
	}
	codehash := crypto.Keccak256Hash(code).Hex()

	callMsg := ethereum.CallMsg{
		From:  fromAddr,
		To:    &toAddr,
		Value: val,
		Data:  common.FromHex(data),
	}
	gasUsed, err := s.client.EstimateGas(ctx, callMsg)
	if err != nil {
		return Result{}, fmt.Errorf("estimating gas: %w", err)
	}
	if gasUsed > gasCeiling {
		return Result{}, fmt.Errorf("estimated gas %d exceeds ceiling %d", gasUsed, gasCeiling)
	}

	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetching head header: %w", err)
	}

	lossPct := 0.0
	if val.Sign() > 0 && balanceBefore.Sign() > 0 {
		ratio := new(big.Float).Quo(new(big.Float).SetInt(val), new(big.Float).SetInt(balanceBefore))
		lossPct, _ = ratio.Float64()
		lossPct *= 100
	}

	return Result{
		LossPct:          lossPct,
		ApprovalDelta:    nil,
		NonDeterministic: false,
		SimulatedBlock:   header.Number.Uint64(),
		TargetCodehash:   codehash,
	}, nil
}

var _ Simulator = (*GethForkSimulator)(nil)
