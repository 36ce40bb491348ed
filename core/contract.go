package core

import (
	"github.com/NethermindEth/starkexec/core/crypto"
	"github.com/NethermindEth/starkexec/core/felt"
)

// ContractAddress computes the address of a Starknet contract.
func ContractAddress(callerAddress, classHash, salt *felt.Felt, constructorCallData []*felt.Felt) *felt.Felt {
	prefix := new(felt.Felt).SetBytes([]byte("STARKNET_CONTRACT_ADDRESS"))
	callDataHash := crypto.PedersenArray(constructorCallData...)

	// https://docs.starknet.io/documentation/architecture_and_concepts/Contracts/contract-address
	return crypto.PedersenArray(
		prefix,
		callerAddress,
		salt,
		classHash,
		callDataHash,
	)
}

// ConstructorSelector is the selector every constructor entry point is
// registered under.
var ConstructorSelector = Selector("constructor")

// Selector computes the entry-point selector of a function name.
func Selector(name string) *felt.Felt {
	sel, err := crypto.StarknetKeccak([]byte(name))
	if err != nil {
		// sha3 writes cannot fail on in-memory buffers.
		panic(err)
	}
	return sel
}
