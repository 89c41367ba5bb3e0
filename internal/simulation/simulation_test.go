package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSimulator struct {
	mock.Mock
}

func (m *mockSimulator) Simulate(ctx context.Context, from, to, value, data string, gasCeiling uint64) (Result, error) {
	args := m.Called(ctx, from, to, value, data, gasCeiling)
	return args.Get(0).(Result), args.Error(1)
}

func baseConfig() Config {
	return Config{MaxLossPct: 20, BlockApprovalChanges: true, GasCeiling: 1_000_000, TimeoutMs: 1000, DetectNonDeterminism: true}
}

func TestGateAllowsCleanSimulation(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, "0xfrom", "0xto", "0", "0x", uint64(1_000_000)).
		Return(Result{LossPct: 1.0}, nil)

	v := Gate(context.Background(), sim, baseConfig(), "0xfrom", "0xto", "0", "0x")
	assert.False(t, v.Blocked)
}

func TestGateBlocksOnSimulatorError(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{}, errors.New("rpc timeout"))

	v := Gate(context.Background(), sim, baseConfig(), "a", "b", "0", "0x")
	assert.True(t, v.Blocked)
	assert.Contains(t, v.Reason, "SIMULATION FAILED")
}

func TestGateBlocksOnExcessiveLoss(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{LossPct: 99.0}, nil)

	cfg := baseConfig()
	v := Gate(context.Background(), sim, cfg, "a", "b", "0", "0x")
	assert.True(t, v.Blocked)
	assert.Contains(t, v.Reason, "PHYSICS VIOLATION")
	assert.Contains(t, v.Reason, "loss_pct")
}

func TestGateBlocksOnApprovalChangeWhenConfigured(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{ApprovalDelta: []ApprovalChange{{Token: "0xtoken", Spender: "0xbad", Amount: "max"}}}, nil)

	v := Gate(context.Background(), sim, baseConfig(), "a", "b", "0", "0x")
	assert.True(t, v.Blocked)
	assert.Contains(t, v.Reason, "token approval")
}

func TestGateAllowsApprovalChangeWhenNotConfigured(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{ApprovalDelta: []ApprovalChange{{Token: "0xtoken", Spender: "0xbad", Amount: "max"}}}, nil)

	cfg := baseConfig()
	cfg.BlockApprovalChanges = false
	v := Gate(context.Background(), sim, cfg, "a", "b", "0", "0x")
	assert.False(t, v.Blocked)
}

func TestGateBlocksOnNonDeterminismWhenConfigured(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{NonDeterministic: true}, nil)

	v := Gate(context.Background(), sim, baseConfig(), "a", "b", "0", "0x")
	assert.True(t, v.Blocked)
	assert.Contains(t, v.Reason, "NON-DETERMINISM")
}

func TestGateIgnoresNonDeterminismWhenNotConfigured(t *testing.T) {
	sim := new(mockSimulator)
	sim.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(Result{NonDeterministic: true}, nil)

	cfg := baseConfig()
	cfg.DetectNonDeterminism = false
	v := Gate(context.Background(), sim, cfg, "a", "b", "0", "0x")
	assert.False(t, v.Blocked)
}
