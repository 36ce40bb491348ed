package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NethermindEth/starkexec/execution"
)

func TestCalculateFee(t *testing.T) {
	config := &execution.GeneralConfig{
		GasPrice: 2,
		ResourceFeeWeights: map[string]float64{
			"n_steps":  0.01,
			"pedersen": 0.32,
		},
	}

	t.Run("steps dominate", func(t *testing.T) {
		resources := &execution.ExecutionResources{
			Steps:                  10_000,
			BuiltinInstanceCounter: map[string]uint64{"pedersen": 10},
		}
		// max(10000*0.01, 10*0.32) = 100 gas, at gas price 2.
		assert.Equal(t, uint64(200), CalculateFee(resources, config))
	})

	t.Run("builtin dominates", func(t *testing.T) {
		resources := &execution.ExecutionResources{
			Steps:                  100,
			BuiltinInstanceCounter: map[string]uint64{"pedersen": 1000},
		}
		// max(100*0.01, 1000*0.32) = 320 gas.
		assert.Equal(t, uint64(640), CalculateFee(resources, config))
	})

	t.Run("fractional gas rounds up", func(t *testing.T) {
		resources := &execution.ExecutionResources{Steps: 150}
		// 150*0.01 = 1.5, rounded up to 2 gas.
		assert.Equal(t, uint64(4), CalculateFee(resources, config))
	})

	t.Run("unweighted resources are free", func(t *testing.T) {
		resources := &execution.ExecutionResources{
			BuiltinInstanceCounter: map[string]uint64{"ecdsa": 1_000_000},
		}
		assert.Equal(t, uint64(0), CalculateFee(resources, config))
	})

	t.Run("no resources no fee", func(t *testing.T) {
		assert.Equal(t, uint64(0), CalculateFee(&execution.ExecutionResources{}, config))
	})
}
