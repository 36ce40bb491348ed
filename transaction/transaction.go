package transaction

import (
	"fmt"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/execution"
	"github.com/NethermindEth/starkexec/state"
)

var (
	validateSelector        = core.Selector("__validate__")
	validateDeclareSelector = core.Selector("__validate_declare__")
	validateDeploySelector  = core.Selector("__validate_deploy__")
	executeSelector         = core.Selector("__execute__")
	transferSelector        = core.Selector("transfer")
)

// Execute runs one transaction against st and returns its execution info, or
// a typed error with none of the transaction's effects applied through any
// surviving scope. The variant set is closed; anything else is a programming
// error.
func Execute(
	tx core.Transaction,
	st *state.CachedState,
	ctx *execution.ExecutionContext,
) (*execution.TransactionExecutionInfo, error) {
	switch t := tx.(type) {
	case *core.InvokeTransaction:
		return executeInvoke(t, st, ctx)
	case *core.DeclareTransaction:
		return executeDeclare(t, st, ctx)
	case *core.DeployTransaction:
		return executeDeploy(t, st, ctx)
	case *core.DeployAccountTransaction:
		return executeDeployAccount(t, st, ctx)
	default:
		return nil, fmt.Errorf("unsupported transaction type %T", tx)
	}
}

func executeInvoke(
	tx *core.InvokeTransaction,
	st *state.CachedState,
	ctx *execution.ExecutionContext,
) (*execution.TransactionExecutionInfo, error) {
	if err := checkVersion(tx.Version); err != nil {
		return nil, err
	}
	if err := checkNonce(st, tx.SenderAddress, tx.Nonce); err != nil {
		return nil, err
	}

	validateInfo, err := runValidate(st, ctx, tx.SenderAddress, validateSelector, asValues(tx.CallData))
	if err != nil {
		return nil, err
	}

	if err := st.IncrementNonce(tx.SenderAddress); err != nil {
		return nil, err
	}

	executeCall := &execution.EntryPoint{
		CallerAddress:   &felt.Zero,
		ContractAddress: tx.SenderAddress,
		Selector:        executeSelector,
		Calldata:        asValues(tx.CallData),
		EntryPointType:  core.External,
		CallType:        execution.CallTypeCall,
		InitialGas:      ctx.Config.InitialGas,
	}
	callInfo, err := executeCall.Execute(st, ctx)
	if err != nil {
		return nil, err
	}

	fee, feeInfo, err := chargeFee(st, ctx, tx.SenderAddress, tx.MaxFee)
	if err != nil {
		return nil, err
	}

	return &execution.TransactionExecutionInfo{
		TxType:              core.TxnInvoke,
		ValidateCallInfo:    validateInfo,
		CallInfo:            callInfo,
		FeeTransferCallInfo: feeInfo,
		ActualFee:           fee,
		TotalResources:      ctx.Resources.Total(),
		SyscallCounter:      ctx.Resources.SyscallCounter(),
	}, nil
}

func executeDeclare(
	tx *core.DeclareTransaction,
	st *state.CachedState,
	ctx *execution.ExecutionContext,
) (*execution.TransactionExecutionInfo, error) {
	if err := checkVersion(tx.Version); err != nil {
		return nil, err
	}

	if tx.Class != nil && !tx.Class.Hash().Equal(tx.ClassHash) {
		return nil, fmt.Errorf("class hash mismatch: declared %s, computed %s", tx.ClassHash, tx.Class.Hash())
	}

	info := &execution.TransactionExecutionInfo{TxType: core.TxnDeclare}

	// Version 0 declares predate account validation and fees.
	if !tx.Version.IsZero() {
		if err := checkNonce(st, tx.SenderAddress, tx.Nonce); err != nil {
			return nil, err
		}
		validateInfo, err := runValidate(st, ctx, tx.SenderAddress, validateDeclareSelector, []felt.Felt{*tx.ClassHash})
		if err != nil {
			return nil, err
		}
		info.ValidateCallInfo = validateInfo
		if err := st.IncrementNonce(tx.SenderAddress); err != nil {
			return nil, err
		}
	}

	if tx.Class != nil {
		st.SetClass(tx.ClassHash, tx.Class)
	}

	if !tx.Version.IsZero() {
		fee, feeInfo, err := chargeFee(st, ctx, tx.SenderAddress, tx.MaxFee)
		if err != nil {
			return nil, err
		}
		info.ActualFee = fee
		info.FeeTransferCallInfo = feeInfo
	}

	info.TotalResources = ctx.Resources.Total()
	info.SyscallCounter = ctx.Resources.SyscallCounter()
	return info, nil
}

func executeDeploy(
	tx *core.DeployTransaction,
	st *state.CachedState,
	ctx *execution.ExecutionContext,
) (*execution.TransactionExecutionInfo, error) {
	if err := checkVersion(tx.Version); err != nil {
		return nil, err
	}

	constructorInfo, err := execution.DeployAndRunConstructor(
		st, ctx, &felt.Zero, tx.ContractAddress(), tx.ClassHash,
		asValues(tx.ConstructorCallData), ctx.Config.InitialGas,
	)
	if err != nil {
		return nil, err
	}

	// Legacy deploys carry no fee.
	return &execution.TransactionExecutionInfo{
		TxType:         core.TxnDeploy,
		CallInfo:       constructorInfo,
		TotalResources: ctx.Resources.Total(),
		SyscallCounter: ctx.Resources.SyscallCounter(),
	}, nil
}

func executeDeployAccount(
	tx *core.DeployAccountTransaction,
	st *state.CachedState,
	ctx *execution.ExecutionContext,
) (*execution.TransactionExecutionInfo, error) {
	if err := checkVersion(tx.Version); err != nil {
		return nil, err
	}

	contractAddress := tx.ContractAddress()
	constructorInfo, err := execution.DeployAndRunConstructor(
		st, ctx, &felt.Zero, contractAddress, tx.ClassHash,
		asValues(tx.ConstructorCallData), ctx.Config.InitialGas,
	)
	if err != nil {
		return nil, err
	}

	validateCalldata := make([]felt.Felt, 0, len(tx.ConstructorCallData)+2)
	validateCalldata = append(validateCalldata, *tx.ClassHash, *tx.ContractAddressSalt)
	validateCalldata = append(validateCalldata, asValues(tx.ConstructorCallData)...)
	validateInfo, err := runValidate(st, ctx, contractAddress, validateDeploySelector, validateCalldata)
	if err != nil {
		return nil, err
	}

	if err := checkNonce(st, contractAddress, tx.Nonce); err != nil {
		return nil, err
	}
	if err := st.IncrementNonce(contractAddress); err != nil {
		return nil, err
	}

	fee, feeInfo, err := chargeFee(st, ctx, contractAddress, tx.MaxFee)
	if err != nil {
		return nil, err
	}

	return &execution.TransactionExecutionInfo{
		TxType:              core.TxnDeployAccount,
		ValidateCallInfo:    validateInfo,
		CallInfo:            constructorInfo,
		FeeTransferCallInfo: feeInfo,
		ActualFee:           fee,
		TotalResources:      ctx.Resources.Total(),
		SyscallCounter:      ctx.Resources.SyscallCounter(),
	}, nil
}

func checkVersion(version *felt.Felt) error {
	if version == nil || version.IsZero() || version.IsOne() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidVersion, version)
}

func checkNonce(st *state.CachedState, addr, txNonce *felt.Felt) error {
	if txNonce == nil {
		// Version 0 transactions carry no nonce.
		return nil
	}
	nonce, err := st.ContractNonce(addr)
	if err != nil {
		return err
	}
	if !nonce.Equal(txNonce) {
		return fmt.Errorf("%w: account nonce %s, transaction nonce %s", ErrInvalidNonce, &nonce, txNonce)
	}
	return nil
}

// runValidate runs an account validation entry point in validate mode, where
// nested calls and deploys are forbidden.
func runValidate(
	st *state.CachedState,
	ctx *execution.ExecutionContext,
	account *felt.Felt,
	selector *felt.Felt,
	calldata []felt.Felt,
) (*execution.CallInfo, error) {
	previousMode := ctx.Mode
	ctx.Mode = execution.ModeValidate
	defer func() { ctx.Mode = previousMode }()

	call := &execution.EntryPoint{
		CallerAddress:   &felt.Zero,
		ContractAddress: account,
		Selector:        selector,
		Calldata:        calldata,
		EntryPointType:  core.External,
		CallType:        execution.CallTypeCall,
		InitialGas:      ctx.Config.InitialGas,
	}
	info, err := call.Execute(st, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	return info, nil
}

// chargeFee computes the actual fee from the accumulated resource ledger and
// moves it from the sender's fee-token balance cell to the sequencer's. The
// synthesized CallInfo mirrors what a fee-token transfer call would report.
func chargeFee(
	st *state.CachedState,
	ctx *execution.ExecutionContext,
	sender *felt.Felt,
	maxFee *felt.Felt,
) (uint64, *execution.CallInfo, error) {
	resources := ctx.Resources.Total()
	fee := CalculateFee(&resources, ctx.Config)
	if fee == 0 {
		return 0, nil, nil
	}

	feeFelt := new(felt.Felt).SetUint64(fee)
	if maxFee != nil && !maxFee.IsZero() && feeFelt.Cmp(maxFee) > 0 {
		return 0, nil, fmt.Errorf("%w: actual %d, max %s", ErrMaxFeeExceeded, fee, maxFee)
	}

	feeToken := ctx.Config.FeeTokenAddress
	sequencer := ctx.Config.SequencerAddress

	senderKey := FeeTokenBalanceKey(sender)
	senderBalance, err := st.ContractStorage(feeToken, senderKey)
	if err != nil {
		return 0, nil, err
	}
	if senderBalance.Cmp(feeFelt) < 0 {
		return 0, nil, fmt.Errorf("%w: balance %s, fee %d", ErrInsufficientBalance, &senderBalance, fee)
	}

	sequencerKey := FeeTokenBalanceKey(sequencer)
	sequencerBalance, err := st.ContractStorage(feeToken, sequencerKey)
	if err != nil {
		return 0, nil, err
	}

	st.SetStorage(feeToken, senderKey, new(felt.Felt).Sub(&senderBalance, feeFelt))
	st.SetStorage(feeToken, sequencerKey, new(felt.Felt).Add(&sequencerBalance, feeFelt))

	return fee, &execution.CallInfo{
		CallerAddress:      *sender,
		ContractAddress:    *feeToken,
		EntryPointSelector: transferSelector,
		EntryPointType:     core.External,
		CallType:           execution.CallTypeCall,
		Calldata:           []felt.Felt{*sequencer, *feeFelt},
		Retdata:            []felt.Felt{*new(felt.Felt).SetUint64(1)},
	}, nil
}

func asValues(felts []*felt.Felt) []felt.Felt {
	values := make([]felt.Felt, len(felts))
	for i, f := range felts {
		values[i] = *f
	}
	return values
}
