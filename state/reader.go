package state

import (
	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
)

// StateReader is the read-only source of truth a CachedState falls through to
// on a cache miss.
//
//go:generate mockgen -destination=../mocks/mock_state_reader.go -package=mocks github.com/NethermindEth/starkexec/state StateReader
type StateReader interface {
	// ContractClassHash returns the class hash of the contract deployed at
	// addr, or ErrContractNotDeployed.
	ContractClassHash(addr *felt.Felt) (felt.Felt, error)
	// ContractNonce returns the nonce of addr. Undeployed contracts have a
	// zero nonce.
	ContractNonce(addr *felt.Felt) (felt.Felt, error)
	// ContractStorage returns the value of one storage cell. Cells that were
	// never written read as zero.
	ContractStorage(addr, key *felt.Felt) (felt.Felt, error)
	// Class returns the compiled class body for classHash, or
	// core.ErrClassNotFound.
	Class(classHash *felt.Felt) (*core.CompiledClass, error)
}

// MemoryStateReader is a StateReader over in-memory maps, used for tests and
// genesis setup.
type MemoryStateReader struct {
	ClassHashes map[felt.Felt]felt.Felt
	Nonces      map[felt.Felt]felt.Felt
	Storage     map[StorageEntry]felt.Felt
	Classes     map[felt.Felt]*core.CompiledClass
}

var _ StateReader = (*MemoryStateReader)(nil)

func NewMemoryStateReader() *MemoryStateReader {
	return &MemoryStateReader{
		ClassHashes: make(map[felt.Felt]felt.Felt),
		Nonces:      make(map[felt.Felt]felt.Felt),
		Storage:     make(map[StorageEntry]felt.Felt),
		Classes:     make(map[felt.Felt]*core.CompiledClass),
	}
}

func (r *MemoryStateReader) ContractClassHash(addr *felt.Felt) (felt.Felt, error) {
	classHash, ok := r.ClassHashes[*addr]
	if !ok {
		return felt.Zero, ErrContractNotDeployed
	}
	return classHash, nil
}

func (r *MemoryStateReader) ContractNonce(addr *felt.Felt) (felt.Felt, error) {
	return r.Nonces[*addr], nil
}

func (r *MemoryStateReader) ContractStorage(addr, key *felt.Felt) (felt.Felt, error) {
	return r.Storage[StorageEntry{ContractAddress: *addr, Key: *key}], nil
}

func (r *MemoryStateReader) Class(classHash *felt.Felt) (*core.CompiledClass, error) {
	class, ok := r.Classes[*classHash]
	if !ok {
		return nil, core.ErrClassNotFound
	}
	return class, nil
}
