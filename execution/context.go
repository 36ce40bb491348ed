package execution

import (
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/vm"
)

// MaxCallDepth bounds the call tree; deeper recursion fails with
// ErrMaxCallDepth.
const MaxCallDepth = 100

// ExecutionMode affects which syscalls an entry point may perform.
type ExecutionMode uint8

const (
	// ModeExecute is normal execution.
	ModeExecute ExecutionMode = iota
	// ModeValidate is account validation: nested calls and deploys are
	// forbidden so validation cannot depend on foreign state.
	ModeValidate
)

// BlockInfo describes the block the transaction executes in.
type BlockInfo struct {
	BlockNumber      uint64     `json:"block_number"`
	BlockTimestamp   uint64     `json:"block_timestamp"`
	SequencerAddress *felt.Felt `json:"sequencer_address"`
}

// GeneralConfig carries the chain parameters the execution core needs.
type GeneralConfig struct {
	// The fee-token contract; fees are debited from the sender's balance
	// cell and credited to the sequencer's.
	FeeTokenAddress  *felt.Felt `json:"fee_token_address" validate:"required"`
	SequencerAddress *felt.Felt `json:"sequencer_address" validate:"required"`
	// L1 gas price used to turn weighted resources into a fee.
	GasPrice uint64 `json:"gas_price"`
	// Weight of each resource in the fee formula, keyed by resource name;
	// VM steps use the "n_steps" key.
	ResourceFeeWeights map[string]float64 `json:"resource_fee_weights"`
	// Gas handed to the outermost entry point of each transaction phase.
	InitialGas uint64 `json:"initial_gas"`
}

// DefaultConfig returns a config with mainnet-flavoured weights, usable for
// tests and local runs.
func DefaultConfig() *GeneralConfig {
	return &GeneralConfig{
		FeeTokenAddress:  new(felt.Felt).SetBytes([]byte("fee_token")),
		SequencerAddress: new(felt.Felt).SetBytes([]byte("sequencer")),
		GasPrice:         1,
		ResourceFeeWeights: map[string]float64{
			"n_steps":     0.01,
			"pedersen":    0.32,
			"range_check": 0.16,
			"ecdsa":       20.48,
			"bitwise":     0.64,
		},
		InitialGas: 100_000_000,
	}
}

// ExecutionContext is what one transaction's call tree shares: the VM, the
// resource ledger, chain parameters, and the transaction-global event and
// message ordering counters. It is passed down the call stack by exclusive
// reference, never aliased.
type ExecutionContext struct {
	VM        vm.VM
	Resources *ResourcesManager
	Config    *GeneralConfig
	Block     BlockInfo
	Mode      ExecutionMode

	depth             uint64
	nEmittedEvents    uint64
	nSentMessagesToL1 uint64
}

func NewExecutionContext(virtualMachine vm.VM, config *GeneralConfig, block BlockInfo) *ExecutionContext {
	return &ExecutionContext{
		VM:        virtualMachine,
		Resources: NewResourcesManager(),
		Config:    config,
		Block:     block,
	}
}
