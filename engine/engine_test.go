package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/engine"
	"github.com/NethermindEth/starkexec/execution"
	"github.com/NethermindEth/starkexec/mocks"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/transaction"
	"github.com/NethermindEth/starkexec/utils"
	"github.com/NethermindEth/starkexec/vm"
)

func accountClass() *core.CompiledClass {
	return &core.CompiledClass{
		CompilerVersion: "0.10.1",
		Bytecode:        []*felt.Felt{new(felt.Felt).SetUint64(1)},
		EntryPoints: core.EntryPointsByType{
			External: []core.EntryPoint{
				{Selector: core.Selector("__validate__"), Offset: 0},
				{Selector: core.Selector("__execute__"), Offset: 2},
				{Selector: core.Selector("get_value"), Offset: 4},
			},
		},
	}
}

type engineTestEnv struct {
	engine *engine.Engine
	st     *state.CachedState
	vm     *mocks.MockVM
	config *execution.GeneralConfig
	sender *felt.Felt
	block  execution.BlockInfo
}

func newEngineTestEnv(t *testing.T) *engineTestEnv {
	t.Helper()

	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)
	mockVM := mocks.NewMockVM(mockCtrl)

	config := execution.DefaultConfig()
	eng, err := engine.New(mockVM, config, utils.NewNopLogger())
	require.NoError(t, err)

	st := state.NewCachedState(state.NewMemoryStateReader())
	sender := new(felt.Felt).SetUint64(0xacc)
	classHash := accountClass().Hash()
	st.SetClass(classHash, accountClass())
	require.NoError(t, st.DeployContract(sender, classHash))
	st.SetStorage(config.FeeTokenAddress, transaction.FeeTokenBalanceKey(sender), new(felt.Felt).SetUint64(1_000))

	return &engineTestEnv{
		engine: eng,
		st:     st,
		vm:     mockVM,
		config: config,
		sender: sender,
		block:  execution.BlockInfo{BlockNumber: 1},
	}
}

func invokeTx(sender *felt.Felt) *core.InvokeTransaction {
	return &core.InvokeTransaction{
		SenderAddress: sender,
		CallData:      []*felt.Felt{new(felt.Felt).SetUint64(1)},
		MaxFee:        new(felt.Felt).SetUint64(1_000),
		Nonce:         &felt.Zero,
		Version:       new(felt.Felt).SetUint64(1),
	}
}

func TestNew(t *testing.T) {
	t.Run("rejects config without fee token", func(t *testing.T) {
		_, err := engine.New(nil, &execution.GeneralConfig{}, utils.NewNopLogger())
		require.ErrorContains(t, err, "invalid config")
	})

	t.Run("accepts default config", func(t *testing.T) {
		_, err := engine.New(nil, execution.DefaultConfig(), utils.NewNopLogger())
		require.NoError(t, err)
	})
}

func TestExecuteTx(t *testing.T) {
	t.Run("applies writes and notifies the listener", func(t *testing.T) {
		env := newEngineTestEnv(t)
		env.vm.EXPECT().Run(gomock.Any()).Return(&vm.RunResult{Steps: 100}, nil).Times(2)

		var executed []core.TransactionType
		var steps uint64
		env.engine.WithListener(&engine.SelectiveListener{
			OnExecuteCb: func(typ core.TransactionType, s uint64) {
				executed = append(executed, typ)
				steps = s
			},
		})

		info, err := env.engine.ExecuteTx(invokeTx(env.sender), env.st, env.block)
		require.NoError(t, err)
		assert.Equal(t, core.TxnInvoke, info.TxType)
		assert.Equal(t, []core.TransactionType{core.TxnInvoke}, executed)
		assert.Equal(t, uint64(200), steps)

		// The nonce bump landed on the caller's state.
		nonce, err := env.st.ContractNonce(env.sender)
		require.NoError(t, err)
		assert.Equal(t, *new(felt.Felt).SetUint64(1), nonce)
	})

	t.Run("notifies the listener on revert", func(t *testing.T) {
		env := newEngineTestEnv(t)
		env.vm.EXPECT().Run(gomock.Any()).Return(nil, assert.AnError)

		var reverted []core.TransactionType
		env.engine.WithListener(&engine.SelectiveListener{
			OnRevertCb: func(typ core.TransactionType) {
				reverted = append(reverted, typ)
			},
		})

		_, err := env.engine.ExecuteTx(invokeTx(env.sender), env.st, env.block)
		require.Error(t, err)
		assert.Equal(t, []core.TransactionType{core.TxnInvoke}, reverted)
	})
}

func TestSimulateTx(t *testing.T) {
	env := newEngineTestEnv(t)
	env.vm.EXPECT().Run(gomock.Any()).Return(&vm.RunResult{Steps: 100}, nil).Times(2)

	info, diff, err := env.engine.SimulateTx(invokeTx(env.sender), env.st, env.block)
	require.NoError(t, err)
	assert.Equal(t, core.TxnInvoke, info.TxType)
	assert.Contains(t, diff.Nonces, *env.sender)

	// The simulation ran on a clone; the caller's state is untouched.
	nonce, err := env.st.ContractNonce(env.sender)
	require.NoError(t, err)
	assert.True(t, nonce.IsZero())
}

func TestEstimateFee(t *testing.T) {
	env := newEngineTestEnv(t)
	env.vm.EXPECT().Run(gomock.Any()).Return(&vm.RunResult{Steps: 1000}, nil).Times(2)

	fee, resources, err := env.engine.EstimateFee(invokeTx(env.sender), env.st, env.block)
	require.NoError(t, err)
	// 2000 steps * 0.01 = 20 gas at gas price 1.
	assert.Equal(t, uint64(20), fee)
	assert.Equal(t, uint64(2000), resources.Steps)

	nonce, err := env.st.ContractNonce(env.sender)
	require.NoError(t, err)
	assert.True(t, nonce.IsZero())
}

func TestBatchEstimateFee(t *testing.T) {
	t.Run("estimates every transaction", func(t *testing.T) {
		env := newEngineTestEnv(t)
		env.vm.EXPECT().Run(gomock.Any()).Return(&vm.RunResult{Steps: 1000}, nil).Times(6)

		txs := []core.Transaction{invokeTx(env.sender), invokeTx(env.sender), invokeTx(env.sender)}
		fees, err := env.engine.BatchEstimateFee(txs, env.st, env.block)
		require.NoError(t, err)
		assert.Equal(t, []uint64{20, 20, 20}, fees)
	})

	t.Run("reports the failing transaction", func(t *testing.T) {
		env := newEngineTestEnv(t)
		env.vm.EXPECT().Run(gomock.Any()).Return(nil, assert.AnError).MinTimes(1)

		tx := invokeTx(env.sender)
		_, err := env.engine.BatchEstimateFee([]core.Transaction{tx}, env.st, env.block)
		require.ErrorContains(t, err, "transaction 0")
	})
}

func TestCallContract(t *testing.T) {
	env := newEngineTestEnv(t)
	selector := core.Selector("get_value")
	env.vm.EXPECT().Run(gomock.Any()).DoAndReturn(func(req *vm.RunRequest) (*vm.RunResult, error) {
		// get_value resolves to the third external entry point.
		assert.Equal(t, uint64(4), req.EntryPointOffset)
		return &vm.RunResult{Retdata: []felt.Felt{*new(felt.Felt).SetUint64(42)}}, nil
	})

	retdata, err := env.engine.CallContract(env.st, env.block, env.sender, selector, nil)
	require.NoError(t, err)
	require.Len(t, retdata, 1)
	assert.Equal(t, *new(felt.Felt).SetUint64(42), retdata[0])
}
