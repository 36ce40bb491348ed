package crypto

import "github.com/NethermindEth/starkexec/core/felt"

type Digest interface {
	Update(...*felt.Felt) Digest
	Finish() *felt.Felt
}
