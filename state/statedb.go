package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/encoder"
)

// Pebble does not support buckets, so a global prefix list differentiates
// between groups of keys.
const (
	classHashBucket byte = 0 // contract address -> class hash
	nonceBucket     byte = 1 // contract address -> nonce
	storageBucket   byte = 2 // contract address + storage key -> value
	classBucket     byte = 3 // class hash -> cbor-encoded compiled class
)

// dbKey flattens a prefix and a series of byte arrays into a single []byte
func dbKey(prefix byte, key ...[]byte) []byte {
	return append([]byte{prefix}, bytes.Join(key, []byte{})...)
}

// DBState is a StateReader over a pebble database, the persistence face of
// the surrounding system. Execution itself never writes here; the outermost
// scope's diff is folded in through Commit once a transaction is accepted.
type DBState struct {
	db *pebble.DB
}

var _ StateReader = (*DBState)(nil)

// OpenDB opens the state database at the given path.
func OpenDB(path string, logger pebble.Logger) (*DBState, error) {
	db, err := pebble.Open(path, &pebble.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	return &DBState{db: db}, nil
}

// OpenMemDB opens an in-memory state database.
func OpenMemDB() (*DBState, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &DBState{db: db}, nil
}

func (d *DBState) Close() error {
	return d.db.Close()
}

func (d *DBState) get(key []byte) ([]byte, bool, error) {
	value, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, true, closer.Close()
}

func (d *DBState) ContractClassHash(addr *felt.Felt) (felt.Felt, error) {
	addrBytes := addr.Bytes()
	value, found, err := d.get(dbKey(classHashBucket, addrBytes[:]))
	if err != nil {
		return felt.Zero, err
	}
	if !found {
		return felt.Zero, ErrContractNotDeployed
	}
	return *new(felt.Felt).SetBytes(value), nil
}

func (d *DBState) ContractNonce(addr *felt.Felt) (felt.Felt, error) {
	addrBytes := addr.Bytes()
	value, found, err := d.get(dbKey(nonceBucket, addrBytes[:]))
	if err != nil || !found {
		return felt.Zero, err
	}
	return *new(felt.Felt).SetBytes(value), nil
}

func (d *DBState) ContractStorage(addr, key *felt.Felt) (felt.Felt, error) {
	addrBytes := addr.Bytes()
	keyBytes := key.Bytes()
	value, found, err := d.get(dbKey(storageBucket, addrBytes[:], keyBytes[:]))
	if err != nil || !found {
		return felt.Zero, err
	}
	return *new(felt.Felt).SetBytes(value), nil
}

func (d *DBState) Class(classHash *felt.Felt) (*core.CompiledClass, error) {
	hashBytes := classHash.Bytes()
	value, found, err := d.get(dbKey(classBucket, hashBytes[:]))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, core.ErrClassNotFound
	}

	class := new(core.CompiledClass)
	if err = encoder.Unmarshal(value, class); err != nil {
		return nil, fmt.Errorf("decode class %s: %w", classHash, err)
	}
	return class, nil
}

// Commit persists a state diff and newly declared classes atomically.
func (d *DBState) Commit(diff *StateDiff, classes map[felt.Felt]*core.CompiledClass) error {
	batch := d.db.NewBatch()
	defer batch.Close()

	for addr, classHash := range diff.ClassHashes {
		addrBytes, hashBytes := addr.Bytes(), classHash.Bytes()
		if err := batch.Set(dbKey(classHashBucket, addrBytes[:]), hashBytes[:], nil); err != nil {
			return err
		}
	}
	for addr, nonce := range diff.Nonces {
		addrBytes, nonceBytes := addr.Bytes(), nonce.Bytes()
		if err := batch.Set(dbKey(nonceBucket, addrBytes[:]), nonceBytes[:], nil); err != nil {
			return err
		}
	}
	for addr, cells := range diff.StorageDiffs {
		addrBytes := addr.Bytes()
		for key, value := range cells {
			keyBytes, valueBytes := key.Bytes(), value.Bytes()
			if err := batch.Set(dbKey(storageBucket, addrBytes[:], keyBytes[:]), valueBytes[:], nil); err != nil {
				return err
			}
		}
	}
	for classHash, class := range classes {
		classEnc, err := encoder.Marshal(class)
		if err != nil {
			return fmt.Errorf("encode class %s: %w", &classHash, err)
		}
		hashBytes := classHash.Bytes()
		if err := batch.Set(dbKey(classBucket, hashBytes[:]), classEnc, nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}
