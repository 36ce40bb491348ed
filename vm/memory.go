package vm

import (
	"fmt"

	"github.com/NethermindEth/starkexec/core/felt"
)

type memoryCell struct {
	felt      felt.Felt
	pointer   Relocatable
	isPointer bool
}

// SegmentedMemory is a minimal Memory implementation over growable segments.
// VM implementations and tests share it; the execution core itself only sees
// the Memory interface.
type SegmentedMemory struct {
	cells    map[Relocatable]memoryCell
	segments int
}

var _ Memory = (*SegmentedMemory)(nil)

func NewSegmentedMemory() *SegmentedMemory {
	return &SegmentedMemory{
		cells: make(map[Relocatable]memoryCell),
	}
}

// AddSegment allocates a fresh segment and returns its base address.
func (m *SegmentedMemory) AddSegment() Relocatable {
	base := Relocatable{Segment: m.segments}
	m.segments++
	return base
}

func (m *SegmentedMemory) Felt(addr Relocatable) (felt.Felt, error) {
	cell, ok := m.cells[addr]
	if !ok {
		return felt.Zero, fmt.Errorf("%w: read of unmapped address %s", ErrSegmentationFault, addr)
	}
	if cell.isPointer {
		return felt.Zero, fmt.Errorf("%w: felt read of pointer cell %s", ErrSegmentationFault, addr)
	}
	return cell.felt, nil
}

func (m *SegmentedMemory) Pointer(addr Relocatable) (Relocatable, error) {
	cell, ok := m.cells[addr]
	if !ok {
		return Relocatable{}, fmt.Errorf("%w: read of unmapped address %s", ErrSegmentationFault, addr)
	}
	if !cell.isPointer {
		return Relocatable{}, fmt.Errorf("%w: pointer read of felt cell %s", ErrSegmentationFault, addr)
	}
	return cell.pointer, nil
}

func (m *SegmentedMemory) FeltRange(addr Relocatable, n uint64) ([]felt.Felt, error) {
	values := make([]felt.Felt, 0, n)
	for i := uint64(0); i < n; i++ {
		value, err := m.Felt(addr.Add(i))
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func (m *SegmentedMemory) WriteFelt(addr Relocatable, value *felt.Felt) error {
	m.cells[addr] = memoryCell{felt: *value}
	return nil
}

func (m *SegmentedMemory) WriteFeltRange(addr Relocatable, values []felt.Felt) error {
	for i := range values {
		if err := m.WriteFelt(addr.Add(uint64(i)), &values[i]); err != nil {
			return err
		}
	}
	return nil
}

// WritePointer maps addr to a relocatable value.
func (m *SegmentedMemory) WritePointer(addr, value Relocatable) error {
	m.cells[addr] = memoryCell{pointer: value, isPointer: true}
	return nil
}
