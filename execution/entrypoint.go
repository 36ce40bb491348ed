package execution

import (
	"fmt"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/vm"
)

// EntryPoint drives one entry-point invocation: it resolves the target code,
// allocates a nested state scope when needed, runs the VM with a
// SyscallHandler attached, and finalizes a CallInfo.
type EntryPoint struct {
	CallerAddress   *felt.Felt
	ContractAddress *felt.Felt
	// ClassHash can be nil, in which case it is resolved from the storage
	// address. Library calls set it explicitly.
	ClassHash *felt.Felt
	Selector  *felt.Felt
	Calldata  []felt.Felt

	EntryPointType core.EntryPointType
	CallType       CallType
	InitialGas     uint64
}

// Execute runs the entry point directly against st. Isolating a call that
// may revert is the caller's concern: the syscall bridge hands Execute a
// clone of its frame's scope and merges the writes back only on success, so
// a reverted nested call never leaks into its caller.
func (ep *EntryPoint) Execute(st *state.CachedState, ctx *ExecutionContext) (*CallInfo, error) {
	if ctx.VM == nil {
		return nil, ErrNoVM
	}
	if ctx.depth >= MaxCallDepth {
		return nil, ErrMaxCallDepth
	}

	classHash := ep.ClassHash
	if classHash == nil {
		storageClassHash, err := st.ContractClassHash(ep.ContractAddress)
		if err != nil {
			return nil, err
		}
		if storageClassHash.IsZero() {
			return nil, fmt.Errorf("%w: %s", state.ErrContractNotDeployed, ep.ContractAddress)
		}
		classHash = &storageClassHash
	}

	class, err := st.Class(classHash)
	if err != nil {
		return nil, err
	}
	entryPoint, err := class.EntryPointAt(ep.Selector, ep.EntryPointType)
	if err != nil {
		return nil, err
	}

	handler := newSyscallHandler(st, ep, classHash, ctx)

	ctx.depth++
	result, err := ctx.VM.Run(&vm.RunRequest{
		Program:          class.Bytecode,
		EntryPointOffset: entryPoint.Offset,
		Calldata:         ep.Calldata,
		InitialGas:       ep.InitialGas,
		Syscalls:         handler,
	})
	ctx.depth--
	if err != nil {
		return nil, fmt.Errorf("entry point %s of %s reverted: %w", ep.Selector, ep.ContractAddress, err)
	}

	ctx.Resources.AddRun(result)

	for i := range handler.events {
		handler.events[i].From = new(felt.Felt).Set(ep.ContractAddress)
	}
	for i := range handler.messages {
		handler.messages[i].From = new(felt.Felt).Set(ep.ContractAddress)
	}

	return &CallInfo{
		CallerAddress:      *ep.CallerAddress,
		ContractAddress:    *ep.ContractAddress,
		ClassHash:          classHash,
		EntryPointSelector: ep.Selector,
		EntryPointType:     ep.EntryPointType,
		CallType:           ep.CallType,
		Calldata:           ep.Calldata,
		Retdata:            result.Retdata,
		Events:             handler.events,
		Messages:           handler.messages,
		InternalCalls:      handler.internalCalls,
		Resources: ExecutionResources{
			Steps:                  result.Steps,
			MemoryHoles:            result.MemoryHoles,
			BuiltinInstanceCounter: result.BuiltinCounts,
		},
		GasConsumed: ep.InitialGas - handler.gas,
	}, nil
}

// DeployAndRunConstructor assigns classHash to address and runs the class's
// constructor when it has one. A class without a constructor deploys with no
// constructor call, provided the calldata is empty.
func DeployAndRunConstructor(
	st *state.CachedState,
	ctx *ExecutionContext,
	caller, address, classHash *felt.Felt,
	constructorCalldata []felt.Felt,
	initialGas uint64,
) (*CallInfo, error) {
	if err := st.DeployContract(address, classHash); err != nil {
		return nil, err
	}

	class, err := st.Class(classHash)
	if err != nil {
		return nil, err
	}
	if len(class.EntryPoints.Constructor) == 0 {
		if len(constructorCalldata) > 0 {
			return nil, fmt.Errorf("%w: class %s has no constructor but calldata was given",
				core.ErrEntryPointNotFound, classHash)
		}
		return nil, nil
	}

	constructor := &EntryPoint{
		CallerAddress:   caller,
		ContractAddress: address,
		ClassHash:       classHash,
		Selector:        core.ConstructorSelector,
		Calldata:        constructorCalldata,
		EntryPointType:  core.Constructor,
		CallType:        CallTypeCall,
		InitialGas:      initialGas,
	}
	return constructor.Execute(st, ctx)
}
