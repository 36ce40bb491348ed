package transaction

import (
	"math"

	"github.com/NethermindEth/starkexec/core/crypto"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/execution"
)

const stepsResource = "n_steps"

// CalculateFee turns the transaction's resource ledger into the fee actually
// charged: the gas usage is the weighted maximum over all resources (the
// proof cost is dominated by the most-used resource), priced at the config's
// gas price. Fee estimation and real execution both go through this one
// function, so estimate and actual agree for identical runs.
func CalculateFee(resources *execution.ExecutionResources, config *execution.GeneralConfig) uint64 {
	gasUsage := float64(0)
	for resource, weight := range config.ResourceFeeWeights {
		count := resources.BuiltinInstanceCounter[resource]
		if resource == stepsResource {
			count = resources.Steps
		}
		gasUsage = math.Max(gasUsage, weight*float64(count))
	}
	return uint64(math.Ceil(gasUsage)) * config.GasPrice
}

// FeeTokenBalanceKey is the storage cell holding addr's fee-token balance.
func FeeTokenBalanceKey(addr *felt.Felt) *felt.Felt {
	return crypto.Pedersen(new(felt.Felt).SetBytes([]byte("ERC20_balances")), addr)
}
