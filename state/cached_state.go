package state

import (
	"errors"
	"maps"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
)

var feltOne = new(felt.Felt).SetUint64(1)

// CachedState composes a StateReader with a StateCache. It is the one
// State-capable object the execution layers touch: the authoritative
// top-level state, a speculative clone, or a nested-call scope.
//
// A CachedState is single-owner. Speculative branches work on independent
// Clones and fold their writes back through MergeChild, never through shared
// mutable references.
type CachedState struct {
	reader StateReader
	cache  *StateCache

	// Classes declared within this scope, checked before the reader. Class
	// bodies are immutable and content-addressed, so a shallow copy is
	// enough on Clone.
	classes map[felt.Felt]*core.CompiledClass
}

func NewCachedState(reader StateReader) *CachedState {
	return &CachedState{
		reader:  reader,
		cache:   NewStateCache(),
		classes: make(map[felt.Felt]*core.CompiledClass),
	}
}

// Cache exposes the underlying diff tracker, for state-diff reporting.
func (s *CachedState) Cache() *StateCache {
	return s.cache
}

// ContractClassHash returns the class hash at addr, reading through to the
// underlying reader on a cache miss and recording the fetched value as the
// cell's initial value.
func (s *CachedState) ContractClassHash(addr *felt.Felt) (felt.Felt, error) {
	if classHash, ok := s.cache.ClassHash(addr); ok {
		return classHash, nil
	}

	classHash, err := s.reader.ContractClassHash(addr)
	if err != nil {
		return felt.Zero, err
	}
	s.cache.recordClassHashInitial(addr, &classHash)
	return classHash, nil
}

// ContractNonce returns the nonce at addr, reading through on a cache miss.
func (s *CachedState) ContractNonce(addr *felt.Felt) (felt.Felt, error) {
	if nonce, ok := s.cache.Nonce(addr); ok {
		return nonce, nil
	}

	nonce, err := s.reader.ContractNonce(addr)
	if err != nil {
		return felt.Zero, err
	}
	s.cache.recordNonceInitial(addr, &nonce)
	return nonce, nil
}

// ContractStorage returns the value of one storage cell, reading through on a
// cache miss. Cells never written read as zero, per the reader contract.
func (s *CachedState) ContractStorage(addr, key *felt.Felt) (felt.Felt, error) {
	entry := StorageEntry{ContractAddress: *addr, Key: *key}
	if value, ok := s.cache.Storage(entry); ok {
		return value, nil
	}

	value, err := s.reader.ContractStorage(addr, key)
	if err != nil {
		return felt.Zero, err
	}
	s.cache.recordStorageInitial(entry, &value)
	return value, nil
}

// SetClassHash records a pending class-hash write for addr.
func (s *CachedState) SetClassHash(addr, classHash *felt.Felt) {
	s.cache.writeClassHash(addr, classHash)
}

// SetNonce records a pending nonce write for addr.
func (s *CachedState) SetNonce(addr, nonce *felt.Felt) {
	s.cache.writeNonce(addr, nonce)
}

// SetStorage records a pending write to one storage cell.
func (s *CachedState) SetStorage(addr, key, value *felt.Felt) {
	s.cache.writeStorage(StorageEntry{ContractAddress: *addr, Key: *key}, value)
}

// IncrementNonce bumps the nonce of addr by one.
func (s *CachedState) IncrementNonce(addr *felt.Felt) error {
	nonce, err := s.ContractNonce(addr)
	if err != nil {
		return err
	}
	s.SetNonce(addr, new(felt.Felt).Add(&nonce, feltOne))
	return nil
}

// DeployContract assigns classHash to a fresh address. Deploying to an
// address that already holds a contract fails with
// ErrContractAlreadyDeployed.
func (s *CachedState) DeployContract(addr, classHash *felt.Felt) error {
	existing, err := s.ContractClassHash(addr)
	if err != nil && !errors.Is(err, ErrContractNotDeployed) {
		return err
	}
	if err == nil && !existing.IsZero() {
		return ErrContractAlreadyDeployed
	}
	s.SetClassHash(addr, classHash)
	s.SetNonce(addr, &felt.Zero)
	return nil
}

// Class returns the compiled class body for classHash. Scope-declared classes
// shadow the reader; bodies are never cached here because they are immutable
// and content-addressed.
func (s *CachedState) Class(classHash *felt.Felt) (*core.CompiledClass, error) {
	if class, ok := s.classes[*classHash]; ok {
		return class, nil
	}
	return s.reader.Class(classHash)
}

// SetClass registers a class body declared within this scope.
func (s *CachedState) SetClass(classHash *felt.Felt, class *core.CompiledClass) {
	s.classes[*classHash] = class
}

// DeclaredClasses returns the class bodies declared within this scope, for
// persistence alongside the state diff.
func (s *CachedState) DeclaredClasses() map[felt.Felt]*core.CompiledClass {
	return maps.Clone(s.classes)
}

// Clone produces a deep, fully independent copy sharing only the read-only
// StateReader reference. Mutating the clone is never observable through the
// original.
func (s *CachedState) Clone() *CachedState {
	return &CachedState{
		reader:  s.reader,
		cache:   s.cache.clone(),
		classes: maps.Clone(s.classes),
	}
}

// MergeChild folds a completed child scope's writes into s, the commit path
// for a successful nested call or sub-transaction. A reverted child is simply
// dropped, never merged.
func (s *CachedState) MergeChild(child *CachedState) {
	s.cache.MergeWritesFrom(child.cache)
	maps.Copy(s.classes, child.classes)
}
