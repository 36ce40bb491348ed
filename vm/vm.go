package vm

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starkexec/core/felt"
)

var (
	// ErrSegmentationFault reports an unmapped address or a mistyped memory
	// cell (e.g. a felt where a pointer is expected).
	ErrSegmentationFault = errors.New("segmentation fault")
	// ErrIntegerOverflow reports a felt that does not fit the fixed-width
	// integer it must decode into.
	ErrIntegerOverflow = errors.New("integer overflow")
)

// Relocatable is an opaque address into the VM's segmented memory.
type Relocatable struct {
	Segment int
	Offset  uint64
}

func (r Relocatable) String() string {
	return fmt.Sprintf("%d:%d", r.Segment, r.Offset)
}

// Add returns the address offset positions further into the same segment.
func (r Relocatable) Add(offset uint64) Relocatable {
	return Relocatable{Segment: r.Segment, Offset: r.Offset + offset}
}

// Memory is the syscall-visible face of the VM's segment memory. The
// execution core only reads and writes typed values at opaque addresses; the
// segment model itself belongs to the VM.
type Memory interface {
	// Felt reads the felt at addr. Unmapped addresses and pointer cells fail
	// with ErrSegmentationFault.
	Felt(addr Relocatable) (felt.Felt, error)
	// Pointer reads the relocatable at addr.
	Pointer(addr Relocatable) (Relocatable, error)
	// FeltRange reads n contiguous felts starting at addr.
	FeltRange(addr Relocatable, n uint64) ([]felt.Felt, error)
	// WriteFelt maps addr to a felt value.
	WriteFelt(addr Relocatable, value *felt.Felt) error
	// WriteFeltRange maps n contiguous cells starting at addr.
	WriteFeltRange(addr Relocatable, values []felt.Felt) error
	// WritePointer maps addr to a relocatable value.
	WritePointer(addr, value Relocatable) error
	// AddSegment allocates a fresh segment, used for variable-length
	// syscall response payloads.
	AddSegment() Relocatable
}

// SyscallHandler intercepts syscall instructions. The VM passes the memory
// and a pointer to the request area; the handler decodes the request,
// performs it and encodes the response in place.
type SyscallHandler interface {
	Execute(memory Memory, syscallPtr Relocatable) error
}

// RunRequest describes one entry-point invocation handed to the VM.
type RunRequest struct {
	// The executable body of the class being run.
	Program []*felt.Felt
	// Code offset of the resolved entry point within Program.
	EntryPointOffset uint64
	// Calldata laid out in the initial memory.
	Calldata []felt.Felt
	// Gas available to the invocation.
	InitialGas uint64
	// Handler attached for the duration of the run.
	Syscalls SyscallHandler
}

// RunResult reports a run that halted normally.
type RunResult struct {
	Retdata []felt.Felt
	// VM steps consumed by this invocation, nested calls excluded.
	Steps uint64
	// Builtin usage by builtin name.
	BuiltinCounts map[string]uint64
	MemoryHoles   uint64
}

// VM runs one entry point to a halt. A typed execution fault (including an
// error returned by the attached SyscallHandler) reports as a non-nil error;
// the partial RunResult is discarded by the caller.
//
//go:generate mockgen -destination=../mocks/mock_vm.go -package=mocks github.com/NethermindEth/starkexec/vm VM
type VM interface {
	Run(request *RunRequest) (*RunResult, error)
}
