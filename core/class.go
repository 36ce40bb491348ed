package core

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starkexec/core/crypto"
	"github.com/NethermindEth/starkexec/core/felt"
)

var (
	ErrClassNotFound      = errors.New("class not found")
	ErrEntryPointNotFound = errors.New("entry point not found")
)

// EntryPointType discriminates the three entry-point tables of a compiled class.
type EntryPointType uint8

const (
	External EntryPointType = iota
	L1Handler
	Constructor
)

func (t EntryPointType) String() string {
	switch t {
	case External:
		return "EXTERNAL"
	case L1Handler:
		return "L1_HANDLER"
	case Constructor:
		return "CONSTRUCTOR"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// EntryPoint uniquely identifies a Cairo function to execute.
type EntryPoint struct {
	// Starknet keccak of the function signature.
	Selector *felt.Felt `json:"selector"`
	// The offset of the instruction that should be called in the class's bytecode.
	Offset uint64 `json:"offset"`
}

// EntryPointsByType groups a class's entry points by table.
type EntryPointsByType struct {
	External    []EntryPoint `json:"EXTERNAL"`
	L1Handler   []EntryPoint `json:"L1_HANDLER"`
	Constructor []EntryPoint `json:"CONSTRUCTOR"`
}

// CompiledClass is the VM-loadable body of a contract class. It is immutable
// and content-addressed by its class hash.
type CompiledClass struct {
	// The version of the compiler that produced the class.
	CompilerVersion string `json:"compiler_version"`
	// An ascii-encoded array of builtin names imported by the class.
	Builtins []string `json:"builtins"`
	// The executable body handed to the VM.
	Bytecode []*felt.Felt `json:"bytecode"`
	// Entry-point tables, one per EntryPointType.
	EntryPoints EntryPointsByType `json:"entry_points_by_type"`
}

// EntryPointAt looks up the code offset of selector within the table for the
// requested entry-point type.
func (c *CompiledClass) EntryPointAt(selector *felt.Felt, typ EntryPointType) (EntryPoint, error) {
	var table []EntryPoint
	switch typ {
	case External:
		table = c.EntryPoints.External
	case L1Handler:
		table = c.EntryPoints.L1Handler
	case Constructor:
		table = c.EntryPoints.Constructor
	default:
		return EntryPoint{}, fmt.Errorf("%w: unknown entry point type %d", ErrEntryPointNotFound, typ)
	}

	for _, ep := range table {
		if ep.Selector.Equal(selector) {
			return ep, nil
		}
	}
	return EntryPoint{}, fmt.Errorf("%w: selector %s type %s", ErrEntryPointNotFound, selector, typ)
}

// Hash computes the class hash of the compiled class. The hash commits to the
// bytecode and every entry-point table.
func (c *CompiledClass) Hash() *felt.Felt {
	var digest crypto.PedersenDigest
	digest.Update(c.Bytecode...)
	for _, table := range [][]EntryPoint{
		c.EntryPoints.External,
		c.EntryPoints.L1Handler,
		c.EntryPoints.Constructor,
	} {
		for _, ep := range table {
			digest.Update(ep.Selector, new(felt.Felt).SetUint64(ep.Offset))
		}
	}
	return digest.Finish()
}
