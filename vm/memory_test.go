package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/vm"
)

func TestSegmentedMemory(t *testing.T) {
	t.Run("segments are allocated sequentially", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		first := memory.AddSegment()
		second := memory.AddSegment()
		assert.Equal(t, vm.Relocatable{Segment: 0}, first)
		assert.Equal(t, vm.Relocatable{Segment: 1}, second)
	})

	t.Run("felt write and read back", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()
		require.NoError(t, memory.WriteFelt(addr, new(felt.Felt).SetUint64(42)))

		value, err := memory.Felt(addr)
		require.NoError(t, err)
		assert.Equal(t, *new(felt.Felt).SetUint64(42), value)
	})

	t.Run("pointer write and read back", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()
		target := memory.AddSegment()
		require.NoError(t, memory.WritePointer(addr, target))

		got, err := memory.Pointer(addr)
		require.NoError(t, err)
		assert.Equal(t, target, got)
	})

	t.Run("unmapped reads fault", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()

		_, err := memory.Felt(addr)
		assert.ErrorIs(t, err, vm.ErrSegmentationFault)
		_, err = memory.Pointer(addr)
		assert.ErrorIs(t, err, vm.ErrSegmentationFault)
	})

	t.Run("mistyped reads fault", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()
		require.NoError(t, memory.WriteFelt(addr, &felt.Zero))
		require.NoError(t, memory.WritePointer(addr.Add(1), addr))

		_, err := memory.Pointer(addr)
		assert.ErrorIs(t, err, vm.ErrSegmentationFault)
		_, err = memory.Felt(addr.Add(1))
		assert.ErrorIs(t, err, vm.ErrSegmentationFault)
	})

	t.Run("felt range round trip", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()
		values := []felt.Felt{
			*new(felt.Felt).SetUint64(1),
			*new(felt.Felt).SetUint64(2),
			*new(felt.Felt).SetUint64(3),
		}
		require.NoError(t, memory.WriteFeltRange(addr, values))

		got, err := memory.FeltRange(addr, 3)
		require.NoError(t, err)
		assert.Equal(t, values, got)
	})

	t.Run("felt range faults past the mapped span", func(t *testing.T) {
		memory := vm.NewSegmentedMemory()
		addr := memory.AddSegment()
		require.NoError(t, memory.WriteFelt(addr, &felt.Zero))

		_, err := memory.FeltRange(addr, 2)
		assert.ErrorIs(t, err, vm.ErrSegmentationFault)
	})
}

func TestRelocatable(t *testing.T) {
	addr := vm.Relocatable{Segment: 2, Offset: 5}
	assert.Equal(t, vm.Relocatable{Segment: 2, Offset: 9}, addr.Add(4))
	assert.Equal(t, "2:9", addr.Add(4).String())
}
