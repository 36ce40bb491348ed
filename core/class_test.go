package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
)

func testClass() *core.CompiledClass {
	return &core.CompiledClass{
		CompilerVersion: "0.10.1",
		Builtins:        []string{"pedersen", "range_check"},
		Bytecode: []*felt.Felt{
			new(felt.Felt).SetUint64(0x480680017fff8000),
			new(felt.Felt).SetUint64(0x208b7fff7fff7ffe),
		},
		EntryPoints: core.EntryPointsByType{
			External: []core.EntryPoint{
				{Selector: new(felt.Felt).SetUint64(100), Offset: 0},
				{Selector: new(felt.Felt).SetUint64(200), Offset: 4},
			},
			Constructor: []core.EntryPoint{
				{Selector: core.ConstructorSelector, Offset: 8},
			},
		},
	}
}

func TestEntryPointAt(t *testing.T) {
	class := testClass()

	t.Run("external entry point", func(t *testing.T) {
		ep, err := class.EntryPointAt(new(felt.Felt).SetUint64(200), core.External)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), ep.Offset)
	})

	t.Run("constructor entry point", func(t *testing.T) {
		ep, err := class.EntryPointAt(core.ConstructorSelector, core.Constructor)
		require.NoError(t, err)
		assert.Equal(t, uint64(8), ep.Offset)
	})

	t.Run("unknown selector", func(t *testing.T) {
		_, err := class.EntryPointAt(new(felt.Felt).SetUint64(999), core.External)
		assert.ErrorIs(t, err, core.ErrEntryPointNotFound)
	})

	t.Run("selector in the wrong table", func(t *testing.T) {
		_, err := class.EntryPointAt(new(felt.Felt).SetUint64(200), core.L1Handler)
		assert.ErrorIs(t, err, core.ErrEntryPointNotFound)
	})
}

func TestClassHash(t *testing.T) {
	class := testClass()
	hash := class.Hash()
	require.False(t, hash.IsZero())

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, hash, testClass().Hash())
	})

	t.Run("commits to bytecode", func(t *testing.T) {
		other := testClass()
		other.Bytecode[0] = new(felt.Felt).SetUint64(1)
		assert.NotEqual(t, hash, other.Hash())
	})

	t.Run("commits to entry points", func(t *testing.T) {
		other := testClass()
		other.EntryPoints.External[1].Offset = 6
		assert.NotEqual(t, hash, other.Hash())
	})
}
