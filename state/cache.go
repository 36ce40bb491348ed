package state

import (
	"maps"

	"github.com/NethermindEth/starkexec/core/felt"
)

// StorageEntry identifies one contract storage cell.
type StorageEntry struct {
	ContractAddress felt.Felt
	Key             felt.Felt
}

// StateCache tracks, for one execution scope, the state cells it has read and
// written. Initial values hold what was observed the first time a cell was
// read and never change afterwards; write values hold the most recent write
// and shadow the initial value on every read.
type StateCache struct {
	classHashInitialValues map[felt.Felt]felt.Felt
	nonceInitialValues     map[felt.Felt]felt.Felt
	storageInitialValues   map[StorageEntry]felt.Felt

	classHashWrites map[felt.Felt]felt.Felt
	nonceWrites     map[felt.Felt]felt.Felt
	storageWrites   map[StorageEntry]felt.Felt
}

func NewStateCache() *StateCache {
	return &StateCache{
		classHashInitialValues: make(map[felt.Felt]felt.Felt),
		nonceInitialValues:     make(map[felt.Felt]felt.Felt),
		storageInitialValues:   make(map[StorageEntry]felt.Felt),
		classHashWrites:        make(map[felt.Felt]felt.Felt),
		nonceWrites:            make(map[felt.Felt]felt.Felt),
		storageWrites:          make(map[StorageEntry]felt.Felt),
	}
}

// ClassHash returns the cached class hash of addr, writes shadowing initial
// values. The second return reports whether the cell is cached at all.
func (c *StateCache) ClassHash(addr *felt.Felt) (felt.Felt, bool) {
	if classHash, ok := c.classHashWrites[*addr]; ok {
		return classHash, true
	}
	classHash, ok := c.classHashInitialValues[*addr]
	return classHash, ok
}

// Nonce returns the cached nonce of addr.
func (c *StateCache) Nonce(addr *felt.Felt) (felt.Felt, bool) {
	if nonce, ok := c.nonceWrites[*addr]; ok {
		return nonce, true
	}
	nonce, ok := c.nonceInitialValues[*addr]
	return nonce, ok
}

// Storage returns the cached value of one storage cell.
func (c *StateCache) Storage(entry StorageEntry) (felt.Felt, bool) {
	if value, ok := c.storageWrites[entry]; ok {
		return value, true
	}
	value, ok := c.storageInitialValues[entry]
	return value, ok
}

// recordClassHashInitial records the first observed class hash of addr.
// Later observations are ignored so the "before" value stays stable.
func (c *StateCache) recordClassHashInitial(addr, classHash *felt.Felt) {
	if _, ok := c.classHashInitialValues[*addr]; !ok {
		c.classHashInitialValues[*addr] = *classHash
	}
}

func (c *StateCache) recordNonceInitial(addr, nonce *felt.Felt) {
	if _, ok := c.nonceInitialValues[*addr]; !ok {
		c.nonceInitialValues[*addr] = *nonce
	}
}

func (c *StateCache) recordStorageInitial(entry StorageEntry, value *felt.Felt) {
	if _, ok := c.storageInitialValues[entry]; !ok {
		c.storageInitialValues[entry] = *value
	}
}

func (c *StateCache) writeClassHash(addr, classHash *felt.Felt) {
	c.classHashWrites[*addr] = *classHash
}

func (c *StateCache) writeNonce(addr, nonce *felt.Felt) {
	c.nonceWrites[*addr] = *nonce
}

func (c *StateCache) writeStorage(entry StorageEntry, value *felt.Felt) {
	c.storageWrites[entry] = *value
}

// Seed bulk-loads the cache from a known snapshot, populating both the
// initial and the write mappings. It is strictly a one-time operation on a
// fresh cache: any pre-existing entry means genuine history would be
// overwritten, so Seed fails with ErrCacheAlreadyInitialized.
func (c *StateCache) Seed(
	classHashes map[felt.Felt]felt.Felt,
	nonces map[felt.Felt]felt.Felt,
	storage map[StorageEntry]felt.Felt,
) error {
	if len(c.classHashInitialValues) > 0 || len(c.classHashWrites) > 0 ||
		len(c.nonceInitialValues) > 0 || len(c.nonceWrites) > 0 ||
		len(c.storageInitialValues) > 0 || len(c.storageWrites) > 0 {
		return ErrCacheAlreadyInitialized
	}

	maps.Copy(c.classHashInitialValues, classHashes)
	maps.Copy(c.nonceInitialValues, nonces)
	maps.Copy(c.storageInitialValues, storage)
	maps.Copy(c.classHashWrites, classHashes)
	maps.Copy(c.nonceWrites, nonces)
	maps.Copy(c.storageWrites, storage)
	return nil
}

// MergeWritesFrom overlays other's write mappings onto c's, other taking
// precedence on key collision. Initial mappings are left untouched: a scope's
// "before" values are what it observed itself, not what a child observed.
func (c *StateCache) MergeWritesFrom(other *StateCache) {
	maps.Copy(c.classHashWrites, other.classHashWrites)
	maps.Copy(c.nonceWrites, other.nonceWrites)
	maps.Copy(c.storageWrites, other.storageWrites)
}

// AccessedAddresses returns every contract address appearing in any of the
// three write mappings, including addresses touched only through a storage
// cell.
func (c *StateCache) AccessedAddresses() map[felt.Felt]struct{} {
	set := make(map[felt.Felt]struct{}, len(c.classHashWrites)+len(c.nonceWrites))
	for addr := range c.classHashWrites {
		set[addr] = struct{}{}
	}
	for addr := range c.nonceWrites {
		set[addr] = struct{}{}
	}
	for entry := range c.storageWrites {
		set[entry.ContractAddress] = struct{}{}
	}
	return set
}

// clone returns a deep, fully independent copy of the cache.
func (c *StateCache) clone() *StateCache {
	return &StateCache{
		classHashInitialValues: maps.Clone(c.classHashInitialValues),
		nonceInitialValues:     maps.Clone(c.nonceInitialValues),
		storageInitialValues:   maps.Clone(c.storageInitialValues),
		classHashWrites:        maps.Clone(c.classHashWrites),
		nonceWrites:            maps.Clone(c.nonceWrites),
		storageWrites:          maps.Clone(c.storageWrites),
	}
}
