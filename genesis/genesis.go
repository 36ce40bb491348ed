package genesis

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/NethermindEth/starkexec/core"
	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/execution"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/transaction"
	"github.com/NethermindEth/starkexec/validator"
	"github.com/NethermindEth/starkexec/vm"
)

var genesisBlock = execution.BlockInfo{
	BlockNumber:    0,
	BlockTimestamp: 0,
}

type GenesisConfig struct {
	Classes       []string                          `json:"classes"`                        // []path-to-class.json
	Contracts     map[felt.Felt]GenesisContractData `json:"contracts" validate:"dive"`      // address -> {classHash, constructorArgs}
	Balances      map[felt.Felt]uint64              `json:"balances"`                       // address -> fee-token prefund
	FunctionCalls []FunctionCall                    `json:"function_calls" validate:"dive"` // list of calls to run after deployment
}

type GenesisContractData struct {
	ClassHash       *felt.Felt  `json:"class_hash" validate:"required"`
	ConstructorArgs []felt.Felt `json:"constructor_args"`
}

type FunctionCall struct {
	ContractAddress    *felt.Felt  `json:"contract_address" validate:"required"`
	EntryPointSelector *felt.Felt  `json:"entry_point_selector" validate:"required"`
	Calldata           []felt.Felt `json:"calldata"`
}

func Read(path string) (*GenesisConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config GenesisConfig
	if err = config.UnmarshalJSON(file); err != nil {
		return nil, err
	}
	return &config, nil
}

func (g *GenesisConfig) UnmarshalJSON(data []byte) error {
	var aux struct {
		Classes       []string                       `json:"classes"`
		Contracts     map[string]GenesisContractData `json:"contracts"`
		Balances      map[string]uint64              `json:"balances"`
		FunctionCalls []FunctionCall                 `json:"function_calls"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	g.Classes = aux.Classes
	g.FunctionCalls = aux.FunctionCalls
	g.Contracts = make(map[felt.Felt]GenesisContractData, len(aux.Contracts))
	for address, contractData := range aux.Contracts {
		key, err := new(felt.Felt).SetString(address)
		if err != nil {
			return err
		}
		g.Contracts[*key] = contractData
	}
	g.Balances = make(map[felt.Felt]uint64, len(aux.Balances))
	for address, balance := range aux.Balances {
		key, err := new(felt.Felt).SetString(address)
		if err != nil {
			return err
		}
		g.Balances[*key] = balance
	}
	return nil
}

func (g *GenesisConfig) Validate() error {
	return validator.Validator().Struct(g)
}

// GenesisState builds an in-memory state from the genesis-config data:
// declares the listed classes, deploys the listed contracts (running their
// constructors), prefunds fee-token balances and finally runs the configured
// function calls.
func GenesisState(
	config *GenesisConfig,
	v vm.VM,
	execConfig *execution.GeneralConfig,
) (*state.CachedState, error) {
	newClasses, err := loadClasses(config.Classes)
	if err != nil {
		return nil, err
	}

	genesisState := state.NewCachedState(state.NewMemoryStateReader())
	ctx := execution.NewExecutionContext(v, execConfig, genesisBlock)

	for classHash, class := range newClasses {
		genesisState.SetClass(&classHash, class)
	}

	for address, contractData := range config.Contracts {
		if _, err = execution.DeployAndRunConstructor(
			genesisState, ctx, &felt.Zero, &address, contractData.ClassHash,
			contractData.ConstructorArgs, execConfig.InitialGas,
		); err != nil {
			return nil, fmt.Errorf("deploy contract %s: %w", &address, err)
		}
	}

	for address, balance := range config.Balances {
		genesisState.SetStorage(
			execConfig.FeeTokenAddress,
			transaction.FeeTokenBalanceKey(&address),
			new(felt.Felt).SetUint64(balance),
		)
	}

	for _, fnCall := range config.FunctionCalls {
		call := &execution.EntryPoint{
			CallerAddress:   &felt.Zero,
			ContractAddress: fnCall.ContractAddress,
			Selector:        fnCall.EntryPointSelector,
			Calldata:        fnCall.Calldata,
			EntryPointType:  core.External,
			CallType:        execution.CallTypeCall,
			InitialGas:      execConfig.InitialGas,
		}
		if _, err = call.Execute(genesisState, ctx); err != nil {
			return nil, fmt.Errorf("execute function call: %w", err)
		}
	}

	return genesisState, nil
}

func loadClasses(classes []string) (map[felt.Felt]*core.CompiledClass, error) {
	classMap := make(map[felt.Felt]*core.CompiledClass, len(classes))
	for _, classPath := range classes {
		bytes, err := os.ReadFile(classPath)
		if err != nil {
			return nil, errors.Wrapf(err, "read class file %s", classPath)
		}

		var class core.CompiledClass
		if err = json.Unmarshal(bytes, &class); err != nil {
			return nil, errors.Wrapf(err, "unmarshal class %s", classPath)
		}
		classMap[*class.Hash()] = &class
	}
	return classMap, nil
}
