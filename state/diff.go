package state

import (
	"github.com/NethermindEth/starkexec/core/felt"
)

// StateDiff is the minimal state delta a transaction produced: exactly the
// write mappings of the outermost scope, grouped per contract.
type StateDiff struct {
	StorageDiffs map[felt.Felt]map[felt.Felt]felt.Felt `json:"storage_diffs"` // addr -> {key -> value, ...}
	Nonces       map[felt.Felt]felt.Felt               `json:"nonces"`        // addr -> nonce
	ClassHashes  map[felt.Felt]felt.Felt               `json:"class_hashes"`  // addr -> class hash
}

// Diff exports the pending writes of the scope. Only addresses in
// AccessedAddresses appear.
func (s *CachedState) Diff() *StateDiff {
	diff := &StateDiff{
		StorageDiffs: make(map[felt.Felt]map[felt.Felt]felt.Felt),
		Nonces:       make(map[felt.Felt]felt.Felt, len(s.cache.nonceWrites)),
		ClassHashes:  make(map[felt.Felt]felt.Felt, len(s.cache.classHashWrites)),
	}
	for addr, nonce := range s.cache.nonceWrites {
		diff.Nonces[addr] = nonce
	}
	for addr, classHash := range s.cache.classHashWrites {
		diff.ClassHashes[addr] = classHash
	}
	for entry, value := range s.cache.storageWrites {
		perContract, ok := diff.StorageDiffs[entry.ContractAddress]
		if !ok {
			perContract = make(map[felt.Felt]felt.Felt)
			diff.StorageDiffs[entry.ContractAddress] = perContract
		}
		perContract[entry.Key] = value
	}
	return diff
}
