package execution

import (
	"fmt"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/vm"
)

// Syscall selectors are the ascii encoding of the syscall name, as laid out
// by the compiler in the request's first cell.
var (
	selStorageRead        = *new(felt.Felt).SetBytes([]byte("StorageRead"))
	selStorageWrite       = *new(felt.Felt).SetBytes([]byte("StorageWrite"))
	selCallContract       = *new(felt.Felt).SetBytes([]byte("CallContract"))
	selLibraryCall        = *new(felt.Felt).SetBytes([]byte("LibraryCall"))
	selDeploy             = *new(felt.Felt).SetBytes([]byte("Deploy"))
	selEmitEvent          = *new(felt.Felt).SetBytes([]byte("EmitEvent"))
	selSendMessageToL1    = *new(felt.Felt).SetBytes([]byte("SendMessageToL1"))
	selGetCallerAddress   = *new(felt.Felt).SetBytes([]byte("GetCallerAddress"))
	selGetContractAddress = *new(felt.Felt).SetBytes([]byte("GetContractAddress"))
	selGetBlockInfo       = *new(felt.Felt).SetBytes([]byte("GetBlockInfo"))
)

// Fixed gas cost of each syscall, deducted before the request is performed.
const (
	storageReadGasCost        = 100
	storageWriteGasCost       = 100
	callContractGasCost       = 860
	libraryCallGasCost        = 860
	deployGasCost             = 1130
	emitEventGasCost          = 610
	sendMessageToL1GasCost    = 1160
	getCallerAddressGasCost   = 10
	getContractAddressGasCost = 10
	getBlockInfoGasCost       = 10
)

type syscallSpec struct {
	name string
	cost uint64
	run  func(h *SyscallHandler, memory vm.Memory, argsPtr vm.Relocatable) error
}

var syscallTable = map[felt.Felt]syscallSpec{
	selStorageRead:        {"storage_read", storageReadGasCost, (*SyscallHandler).storageRead},
	selStorageWrite:       {"storage_write", storageWriteGasCost, (*SyscallHandler).storageWrite},
	selCallContract:       {"call_contract", callContractGasCost, (*SyscallHandler).callContract},
	selLibraryCall:        {"library_call", libraryCallGasCost, (*SyscallHandler).libraryCall},
	selDeploy:             {"deploy", deployGasCost, (*SyscallHandler).deploy},
	selEmitEvent:          {"emit_event", emitEventGasCost, (*SyscallHandler).emitEvent},
	selSendMessageToL1:    {"send_message_to_l1", sendMessageToL1GasCost, (*SyscallHandler).sendMessageToL1},
	selGetCallerAddress:   {"get_caller_address", getCallerAddressGasCost, (*SyscallHandler).getCallerAddress},
	selGetContractAddress: {"get_contract_address", getContractAddressGasCost, (*SyscallHandler).getContractAddress},
	selGetBlockInfo:       {"get_block_info", getBlockInfoGasCost, (*SyscallHandler).getBlockInfo},
}

// SyscallHandler bridges VM-issued syscall requests into typed operations
// against one CachedState scope, metering their cost on the shared resource
// ledger.
//
// Request layout: the cell at syscallPtr holds the selector, followed by the
// syscall-specific arguments. The response is written in place directly
// after the arguments, starting with the gas remaining after deduction.
type SyscallHandler struct {
	state *state.CachedState
	ctx   *ExecutionContext
	// The frame this handler is attached to.
	contractAddress felt.Felt
	callerAddress   felt.Felt
	classHash       felt.Felt

	gas           uint64
	events        []OrderedEvent
	messages      []OrderedL2toL1Message
	internalCalls []*CallInfo
}

var _ vm.SyscallHandler = (*SyscallHandler)(nil)

func newSyscallHandler(scope *state.CachedState, call *EntryPoint, classHash *felt.Felt, ctx *ExecutionContext) *SyscallHandler {
	return &SyscallHandler{
		state:           scope,
		ctx:             ctx,
		contractAddress: *call.ContractAddress,
		callerAddress:   *call.CallerAddress,
		classHash:       *classHash,
		gas:             call.InitialGas,
	}
}

// Execute implements vm.SyscallHandler.
func (h *SyscallHandler) Execute(memory vm.Memory, syscallPtr vm.Relocatable) error {
	selector, err := memory.Felt(syscallPtr)
	if err != nil {
		return err
	}

	spec, ok := syscallTable[selector]
	if !ok {
		return fmt.Errorf("%w: selector %s", ErrUnknownSyscall, &selector)
	}

	h.ctx.Resources.IncrementSyscall(spec.name)
	if h.gas < spec.cost {
		return fmt.Errorf("%w: %s needs %d gas, %d remaining", ErrOutOfGas, spec.name, spec.cost, h.gas)
	}
	h.gas -= spec.cost

	return spec.run(h, memory, syscallPtr.Add(1))
}

// readUint64 decodes a felt that must fit a fixed-width index, e.g. a length.
func readUint64(memory vm.Memory, addr vm.Relocatable) (uint64, error) {
	value, err := memory.Felt(addr)
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit uint64", vm.ErrIntegerOverflow, &value)
	}
	return value.Uint64(), nil
}

// readFeltSpan reads a (pointer, length) argument pair and resolves the
// pointed-to range.
func readFeltSpan(memory vm.Memory, addr vm.Relocatable) ([]felt.Felt, error) {
	dataPtr, err := memory.Pointer(addr)
	if err != nil {
		return nil, err
	}
	length, err := readUint64(memory, addr.Add(1))
	if err != nil {
		return nil, err
	}
	return memory.FeltRange(dataPtr, length)
}

// respond writes the gas balance followed by the payload at addr.
func (h *SyscallHandler) respond(memory vm.Memory, addr vm.Relocatable, payload ...felt.Felt) error {
	response := make([]felt.Felt, 0, len(payload)+1)
	response = append(response, *new(felt.Felt).SetUint64(h.gas))
	response = append(response, payload...)
	return memory.WriteFeltRange(addr, response)
}

// respondSpan writes the gas balance, then the payload length and a pointer
// to a fresh segment holding the payload.
func (h *SyscallHandler) respondSpan(memory vm.Memory, addr vm.Relocatable, payload []felt.Felt) error {
	if err := h.respond(memory, addr, *new(felt.Felt).SetUint64(uint64(len(payload)))); err != nil {
		return err
	}
	segment := memory.AddSegment()
	if err := memory.WriteFeltRange(segment, payload); err != nil {
		return err
	}
	return memory.WritePointer(addr.Add(2), segment)
}

// args: [key] -> response: [gas, value]
func (h *SyscallHandler) storageRead(memory vm.Memory, argsPtr vm.Relocatable) error {
	key, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	value, err := h.state.ContractStorage(&h.contractAddress, &key)
	if err != nil {
		return err
	}
	return h.respond(memory, argsPtr.Add(1), value)
}

// args: [key, value] -> response: [gas]
func (h *SyscallHandler) storageWrite(memory vm.Memory, argsPtr vm.Relocatable) error {
	key, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	value, err := memory.Felt(argsPtr.Add(1))
	if err != nil {
		return err
	}
	h.state.SetStorage(&h.contractAddress, &key, &value)
	return h.respond(memory, argsPtr.Add(2))
}

// runNested executes a nested entry point against a clone of this handler's
// scope, merging the clone back and folding the gas use and call info into
// the frame only on success. A reverted or overdrawn nested call leaves the
// frame's state untouched.
func (h *SyscallHandler) runNested(call *EntryPoint) (*CallInfo, error) {
	scope := h.state.Clone()
	info, err := call.Execute(scope, h.ctx)
	if err != nil {
		return nil, err
	}
	if info.GasConsumed > h.gas {
		// The nested call ran on this frame's remaining balance.
		h.gas = 0
		return nil, fmt.Errorf("%w: nested call consumed %d gas", ErrOutOfGas, info.GasConsumed)
	}
	h.gas -= info.GasConsumed
	h.state.MergeChild(scope)
	h.internalCalls = append(h.internalCalls, info)
	return info, nil
}

// args: [address, selector, calldataPtr, calldataLen]
// response: [gas, retdataLen, retdataPtr]
func (h *SyscallHandler) callContract(memory vm.Memory, argsPtr vm.Relocatable) error {
	if h.ctx.Mode == ModeValidate {
		return fmt.Errorf("%w: call_contract", ErrForbiddenInValidateMode)
	}

	address, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	selector, err := memory.Felt(argsPtr.Add(1))
	if err != nil {
		return err
	}
	calldata, err := readFeltSpan(memory, argsPtr.Add(2))
	if err != nil {
		return err
	}

	info, err := h.runNested(&EntryPoint{
		CallerAddress:   &h.contractAddress,
		ContractAddress: &address,
		Selector:        &selector,
		Calldata:        calldata,
		EntryPointType:  core.External,
		CallType:        CallTypeCall,
		InitialGas:      h.gas,
	})
	if err != nil {
		return err
	}
	return h.respondSpan(memory, argsPtr.Add(4), info.Retdata)
}

// args: [classHash, selector, calldataPtr, calldataLen]
// response: [gas, retdataLen, retdataPtr]
func (h *SyscallHandler) libraryCall(memory vm.Memory, argsPtr vm.Relocatable) error {
	classHash, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	selector, err := memory.Felt(argsPtr.Add(1))
	if err != nil {
		return err
	}
	calldata, err := readFeltSpan(memory, argsPtr.Add(2))
	if err != nil {
		return err
	}

	// A library call runs foreign code in this contract's storage context.
	info, err := h.runNested(&EntryPoint{
		CallerAddress:   &h.callerAddress,
		ContractAddress: &h.contractAddress,
		ClassHash:       &classHash,
		Selector:        &selector,
		Calldata:        calldata,
		EntryPointType:  core.External,
		CallType:        CallTypeDelegate,
		InitialGas:      h.gas,
	})
	if err != nil {
		return err
	}
	return h.respondSpan(memory, argsPtr.Add(4), info.Retdata)
}

// args: [classHash, salt, calldataPtr, calldataLen, deployFromZero]
// response: [gas, contractAddress, retdataLen, retdataPtr]
func (h *SyscallHandler) deploy(memory vm.Memory, argsPtr vm.Relocatable) error {
	if h.ctx.Mode == ModeValidate {
		return fmt.Errorf("%w: deploy", ErrForbiddenInValidateMode)
	}

	classHash, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	salt, err := memory.Felt(argsPtr.Add(1))
	if err != nil {
		return err
	}
	calldata, err := readFeltSpan(memory, argsPtr.Add(2))
	if err != nil {
		return err
	}
	deployFromZero, err := readUint64(memory, argsPtr.Add(4))
	if err != nil {
		return err
	}

	deployer := &h.contractAddress
	if deployFromZero != 0 {
		deployer = &felt.Zero
	}
	calldataPtrs := make([]*felt.Felt, len(calldata))
	for i := range calldata {
		calldataPtrs[i] = &calldata[i]
	}
	address := core.ContractAddress(deployer, &classHash, &salt, calldataPtrs)

	// As with runNested, the deployment and its constructor run on a clone so
	// a revert discards them both.
	scope := h.state.Clone()
	info, err := DeployAndRunConstructor(scope, h.ctx, &h.contractAddress, address, &classHash, calldata, h.gas)
	if err != nil {
		return err
	}

	retdata := []felt.Felt{}
	if info != nil {
		if info.GasConsumed > h.gas {
			h.gas = 0
			return fmt.Errorf("%w: constructor consumed %d gas", ErrOutOfGas, info.GasConsumed)
		}
		h.gas -= info.GasConsumed
		h.internalCalls = append(h.internalCalls, info)
		retdata = info.Retdata
	}
	h.state.MergeChild(scope)

	if err := h.respond(memory, argsPtr.Add(5), *address, *new(felt.Felt).SetUint64(uint64(len(retdata)))); err != nil {
		return err
	}
	segment := memory.AddSegment()
	if err := memory.WriteFeltRange(segment, retdata); err != nil {
		return err
	}
	return memory.WritePointer(argsPtr.Add(8), segment)
}

// args: [keysPtr, keysLen, dataPtr, dataLen] -> response: [gas]
func (h *SyscallHandler) emitEvent(memory vm.Memory, argsPtr vm.Relocatable) error {
	keys, err := readFeltSpan(memory, argsPtr)
	if err != nil {
		return err
	}
	data, err := readFeltSpan(memory, argsPtr.Add(2))
	if err != nil {
		return err
	}

	h.events = append(h.events, OrderedEvent{
		Order: h.ctx.nEmittedEvents,
		Keys:  feltPtrs(keys),
		Data:  feltPtrs(data),
	})
	h.ctx.nEmittedEvents++
	return h.respond(memory, argsPtr.Add(4))
}

// args: [toAddress, payloadPtr, payloadLen] -> response: [gas]
func (h *SyscallHandler) sendMessageToL1(memory vm.Memory, argsPtr vm.Relocatable) error {
	toAddress, err := memory.Felt(argsPtr)
	if err != nil {
		return err
	}
	payload, err := readFeltSpan(memory, argsPtr.Add(1))
	if err != nil {
		return err
	}

	h.messages = append(h.messages, OrderedL2toL1Message{
		Order:   h.ctx.nSentMessagesToL1,
		To:      &toAddress,
		Payload: feltPtrs(payload),
	})
	h.ctx.nSentMessagesToL1++
	return h.respond(memory, argsPtr.Add(3))
}

// response: [gas, callerAddress]
func (h *SyscallHandler) getCallerAddress(memory vm.Memory, argsPtr vm.Relocatable) error {
	return h.respond(memory, argsPtr, h.callerAddress)
}

// response: [gas, contractAddress]
func (h *SyscallHandler) getContractAddress(memory vm.Memory, argsPtr vm.Relocatable) error {
	return h.respond(memory, argsPtr, h.contractAddress)
}

// response: [gas, blockNumber, blockTimestamp, sequencerAddress]
func (h *SyscallHandler) getBlockInfo(memory vm.Memory, argsPtr vm.Relocatable) error {
	sequencer := felt.Zero
	if h.ctx.Block.SequencerAddress != nil {
		sequencer = *h.ctx.Block.SequencerAddress
	}
	return h.respond(memory, argsPtr,
		*new(felt.Felt).SetUint64(h.ctx.Block.BlockNumber),
		*new(felt.Felt).SetUint64(h.ctx.Block.BlockTimestamp),
		sequencer,
	)
}

func feltPtrs(values []felt.Felt) []*felt.Felt {
	ptrs := make([]*felt.Felt, len(values))
	for i := range values {
		ptrs[i] = new(felt.Felt).Set(&values[i])
	}
	return ptrs
}
