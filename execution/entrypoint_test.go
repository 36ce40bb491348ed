package execution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/mocks"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/vm"
)

var testSelector = core.Selector("test_function")

func testClass() *core.CompiledClass {
	return &core.CompiledClass{
		CompilerVersion: "0.10.1",
		Bytecode:        []*felt.Felt{new(felt.Felt).SetUint64(1)},
		EntryPoints: core.EntryPointsByType{
			External: []core.EntryPoint{
				{Selector: testSelector, Offset: 0},
			},
			Constructor: []core.EntryPoint{
				{Selector: core.ConstructorSelector, Offset: 4},
			},
		},
	}
}

// deployedState returns a state with class registered and a contract at addr.
func deployedState(t *testing.T, addr, classHash *felt.Felt) *state.CachedState {
	t.Helper()
	st := state.NewCachedState(state.NewMemoryStateReader())
	st.SetClass(classHash, testClass())
	require.NoError(t, st.DeployContract(addr, classHash))
	return st
}

func externalCall(addr *felt.Felt, gas uint64) *EntryPoint {
	return &EntryPoint{
		CallerAddress:   &felt.Zero,
		ContractAddress: addr,
		Selector:        testSelector,
		Calldata:        []felt.Felt{*new(felt.Felt).SetUint64(7)},
		EntryPointType:  core.External,
		CallType:        CallTypeCall,
		InitialGas:      gas,
	}
}

func TestEntryPointExecute(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)

	addr := new(felt.Felt).SetUint64(0xabc)
	classHash := testClass().Hash()

	t.Run("runs the resolved entry point", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		mockVM := mocks.NewMockVM(mockCtrl)
		ctx := NewExecutionContext(mockVM, DefaultConfig(), BlockInfo{BlockNumber: 1})

		retdata := []felt.Felt{*new(felt.Felt).SetUint64(42)}
		mockVM.EXPECT().Run(gomock.Any()).DoAndReturn(func(req *vm.RunRequest) (*vm.RunResult, error) {
			assert.Equal(t, uint64(0), req.EntryPointOffset)
			assert.Equal(t, externalCall(addr, 1000).Calldata, req.Calldata)
			assert.Equal(t, uint64(1000), req.InitialGas)
			return &vm.RunResult{
				Retdata: retdata,
				Steps:   17,
				BuiltinCounts: map[string]uint64{
					"pedersen": 2,
				},
			}, nil
		})

		info, err := externalCall(addr, 1000).Execute(st, ctx)
		require.NoError(t, err)
		assert.Equal(t, *addr, info.ContractAddress)
		assert.Equal(t, felt.Zero, info.CallerAddress)
		assert.Equal(t, classHash, info.ClassHash)
		assert.Equal(t, retdata, info.Retdata)
		assert.Equal(t, uint64(17), info.Resources.Steps)
		assert.Equal(t, uint64(0), info.GasConsumed)

		total := ctx.Resources.Total()
		assert.Equal(t, uint64(17), total.Steps)
		assert.Equal(t, uint64(2), total.BuiltinInstanceCounter["pedersen"])
	})

	t.Run("undeployed contract", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		assert.ErrorIs(t, err, state.ErrContractNotDeployed)
	})

	t.Run("missing class body", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		st.SetClassHash(addr, classHash)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		assert.ErrorIs(t, err, core.ErrClassNotFound)
	})

	t.Run("missing entry point", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		call := externalCall(addr, 1000)
		call.Selector = core.Selector("no_such_function")
		_, err := call.Execute(st, ctx)
		assert.ErrorIs(t, err, core.ErrEntryPointNotFound)
	})

	t.Run("call depth limit", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})
		ctx.depth = MaxCallDepth

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		assert.ErrorIs(t, err, ErrMaxCallDepth)
	})

	t.Run("no virtual machine", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		ctx := NewExecutionContext(nil, DefaultConfig(), BlockInfo{})

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		assert.ErrorIs(t, err, ErrNoVM)
	})
}

func TestExecuteScope(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)

	addr := new(felt.Felt).SetUint64(0xabc)
	classHash := testClass().Hash()
	key := new(felt.Felt).SetUint64(1)
	value := new(felt.Felt).SetUint64(2)

	// Execute runs on the scope it is handed; the caller decides whether
	// that scope is a discardable clone.
	t.Run("writes land on the given scope", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		mockVM := mocks.NewMockVM(mockCtrl)
		ctx := NewExecutionContext(mockVM, DefaultConfig(), BlockInfo{})

		mockVM.EXPECT().Run(gomock.Any()).DoAndReturn(func(req *vm.RunRequest) (*vm.RunResult, error) {
			scope := req.Syscalls.(*SyscallHandler).state
			assert.Same(t, st, scope)
			scope.SetStorage(addr, key, value)
			return &vm.RunResult{}, nil
		})

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		require.NoError(t, err)

		got, err := st.ContractStorage(addr, key)
		require.NoError(t, err)
		assert.Equal(t, *value, got)
	})

	t.Run("a revert wraps the virtual machine error", func(t *testing.T) {
		st := deployedState(t, addr, classHash)
		mockVM := mocks.NewMockVM(mockCtrl)
		ctx := NewExecutionContext(mockVM, DefaultConfig(), BlockInfo{})

		cause := errors.New("cairo assert failed")
		mockVM.EXPECT().Run(gomock.Any()).Return(nil, cause)

		_, err := externalCall(addr, 1000).Execute(st, ctx)
		require.ErrorContains(t, err, "reverted")
		assert.ErrorIs(t, err, cause)
	})
}

func TestDeployAndRunConstructor(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)

	classHash := testClass().Hash()
	address := new(felt.Felt).SetUint64(0xdef)

	t.Run("runs the constructor", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		st.SetClass(classHash, testClass())
		mockVM := mocks.NewMockVM(mockCtrl)
		ctx := NewExecutionContext(mockVM, DefaultConfig(), BlockInfo{})

		mockVM.EXPECT().Run(gomock.Any()).DoAndReturn(func(req *vm.RunRequest) (*vm.RunResult, error) {
			assert.Equal(t, uint64(4), req.EntryPointOffset)
			return &vm.RunResult{}, nil
		})

		info, err := DeployAndRunConstructor(st, ctx, &felt.Zero, address, classHash, []felt.Felt{}, 1000)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, core.Constructor, info.EntryPointType)

		got, err := st.ContractClassHash(address)
		require.NoError(t, err)
		assert.Equal(t, *classHash, got)
	})

	t.Run("constructorless class deploys without a call", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		class := testClass()
		class.EntryPoints.Constructor = nil
		bare := class.Hash()
		st.SetClass(bare, class)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		info, err := DeployAndRunConstructor(st, ctx, &felt.Zero, address, bare, nil, 1000)
		require.NoError(t, err)
		assert.Nil(t, info)

		got, err := st.ContractClassHash(address)
		require.NoError(t, err)
		assert.Equal(t, *bare, got)
	})

	t.Run("constructorless class rejects calldata", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		class := testClass()
		class.EntryPoints.Constructor = nil
		bare := class.Hash()
		st.SetClass(bare, class)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		_, err := DeployAndRunConstructor(st, ctx, &felt.Zero, address, bare,
			[]felt.Felt{*new(felt.Felt).SetUint64(1)}, 1000)
		assert.ErrorIs(t, err, core.ErrEntryPointNotFound)
	})

	t.Run("address collision", func(t *testing.T) {
		st := state.NewCachedState(state.NewMemoryStateReader())
		class := testClass()
		class.EntryPoints.Constructor = nil
		bare := class.Hash()
		st.SetClass(bare, class)
		ctx := NewExecutionContext(mocks.NewMockVM(mockCtrl), DefaultConfig(), BlockInfo{})

		_, err := DeployAndRunConstructor(st, ctx, &felt.Zero, address, bare, nil, 1000)
		require.NoError(t, err)
		_, err = DeployAndRunConstructor(st, ctx, &felt.Zero, address, bare, nil, 1000)
		assert.ErrorIs(t, err, state.ErrContractAlreadyDeployed)
	})
}
