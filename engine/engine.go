// Package engine exposes the high-level transaction execution facade: direct
// execution against a caller-owned state, and speculative paths (fee
// estimation, simulation, read-only calls) that run on throwaway clones.
package engine

import (
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/execution"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/transaction"
	"github.com/NethermindEth/starkexec/utils"
	"github.com/NethermindEth/starkexec/validator"
	"github.com/NethermindEth/starkexec/vm"
)

type Engine struct {
	vm       vm.VM
	config   *execution.GeneralConfig
	log      utils.SimpleLogger
	listener EventListener
}

func New(virtualMachine vm.VM, config *execution.GeneralConfig, log utils.SimpleLogger) (*Engine, error) {
	if err := validator.Validator().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		vm:       virtualMachine,
		config:   config,
		log:      log,
		listener: &SelectiveListener{},
	}, nil
}

// WithListener registers l to receive execution events.
func (e *Engine) WithListener(l EventListener) *Engine {
	e.listener = l
	return e
}

func (e *Engine) newContext(block execution.BlockInfo) *execution.ExecutionContext {
	return execution.NewExecutionContext(e.vm, e.config, block)
}

// ExecuteTx applies tx to st. On error st's cache may hold reads recorded
// before the failure but no writes survive through merged scopes; callers
// that need a pristine state on failure should execute against a clone.
func (e *Engine) ExecuteTx(
	tx core.Transaction,
	st *state.CachedState,
	block execution.BlockInfo,
) (*execution.TransactionExecutionInfo, error) {
	info, err := transaction.Execute(tx, st, e.newContext(block))
	if err != nil {
		e.listener.OnRevert(tx.Type())
		e.log.Debugw("transaction reverted", "type", tx.Type(), "hash", tx.Hash(), "err", err)
		return nil, err
	}
	e.listener.OnExecute(tx.Type(), info.TotalResources.Steps)
	e.log.Debugw("transaction executed",
		"type", tx.Type(), "hash", tx.Hash(), "steps", info.TotalResources.Steps, "fee", info.ActualFee)
	return info, nil
}

// SimulateTx executes tx on a clone of st and returns the execution info
// together with the state diff the transaction would have produced. st is
// left untouched.
func (e *Engine) SimulateTx(
	tx core.Transaction,
	st *state.CachedState,
	block execution.BlockInfo,
) (*execution.TransactionExecutionInfo, *state.StateDiff, error) {
	scope := st.Clone()
	info, err := transaction.Execute(tx, scope, e.newContext(block))
	if err != nil {
		return nil, nil, err
	}
	return info, scope.Diff(), nil
}

// EstimateFee executes tx on a clone of st and returns the fee it would be
// charged along with the resources it consumed. st is left untouched.
func (e *Engine) EstimateFee(
	tx core.Transaction,
	st *state.CachedState,
	block execution.BlockInfo,
) (uint64, execution.ExecutionResources, error) {
	info, _, err := e.SimulateTx(tx, st, block)
	if err != nil {
		return 0, execution.ExecutionResources{}, err
	}
	return info.ActualFee, info.TotalResources, nil
}

// BatchEstimateFee estimates every transaction concurrently, each on its own
// clone of st. The underlying state reader must be safe for concurrent
// reads. The first error aborts the batch.
func (e *Engine) BatchEstimateFee(
	txs []core.Transaction,
	st *state.CachedState,
	block execution.BlockInfo,
) ([]uint64, error) {
	fees := make([]uint64, len(txs))
	p := pool.New().WithErrors()
	for i, tx := range txs {
		p.Go(func() error {
			fee, _, err := e.EstimateFee(tx, st, block)
			if err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			fees[i] = fee
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return fees, nil
}

// CallContract runs a read-only external call on a clone of st and returns
// its retdata. Writes the call makes are discarded.
func (e *Engine) CallContract(
	st *state.CachedState,
	block execution.BlockInfo,
	contractAddress, selector *felt.Felt,
	calldata []felt.Felt,
) ([]felt.Felt, error) {
	call := &execution.EntryPoint{
		CallerAddress:   &felt.Zero,
		ContractAddress: contractAddress,
		Selector:        selector,
		Calldata:        calldata,
		EntryPointType:  core.External,
		CallType:        execution.CallTypeCall,
		InitialGas:      e.config.InitialGas,
	}
	info, err := call.Execute(st.Clone(), e.newContext(block))
	if err != nil {
		return nil, err
	}
	return info.Retdata, nil
}
