package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NethermindEth/starkexec/core/felt"
	"github.com/NethermindEth/starkexec/execution"
	"github.com/NethermindEth/starkexec/genesis"
	"github.com/NethermindEth/starkexec/state"
	"github.com/NethermindEth/starkexec/utils"
)

var Version string

const greeting = `
      _             _
  ___| |_ __ _ _ __| | _____  _____  ___
 / __| __/ _` + "`" + ` | '__| |/ / _ \/ \ \ \/ / __|
 \__ \ || (_| | |  |   <  __/>  <  __/ (__
 |___/\__\__,_|_|  |_|\_\___/_/\_\___|\___|

Starkexec is a local execution engine for Starknet transactions.

`

const (
	configF    = "config"
	verbosityF = "verbosity"
	colourF    = "colour"
	dbPathF    = "db-path"
	genesisF   = "genesis"
	contractF  = "contract"
	keyF       = "key"

	defaultConfig  = ""
	defaultColour  = true
	defaultDBPath  = ""
	defaultGenesis = ""

	configFlagUsage    = "The yaml configuration file."
	verbosityFlagUsage = "Verbosity of the logs. Options: debug, info, warn, error."
	colourUsage        = "Use --colour=false command flag to disable colourized outputs (ANSI Escape Codes)."
	dbPathUsage        = "Location of the database files."
	genesisUsage       = "Path of the genesis configuration file."
	contractUsage      = "The contract address to inspect."
	keyUsage           = "A storage key of the contract to read."
)

var cfgFile string

func NewCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "starkexec [flags]",
		Short:   "Local Starknet transaction execution engine.",
		Version: Version,
	}

	defaultVerbosity := utils.INFO
	rootCmd.PersistentFlags().StringVar(&cfgFile, configF, defaultConfig, configFlagUsage)
	rootCmd.PersistentFlags().Var(&defaultVerbosity, verbosityF, verbosityFlagUsage)
	rootCmd.PersistentFlags().Bool(colourF, defaultColour, colourUsage)
	rootCmd.PersistentFlags().String(dbPathF, defaultDBPath, dbPathUsage)

	rootCmd.AddCommand(seedCmd(), inspectCmd())

	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if _, err := fmt.Fprint(cmd.OutOrStdout(), greeting); err != nil {
			return err
		}
		return cmd.Help()
	}

	return rootCmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a database from a genesis configuration",
		Long: `This subcommand declares the classes, deploys the contracts and sets the balances
listed in the genesis configuration, then commits the resulting state to the database.`,
		RunE: seed,
	}
	cmd.Flags().String(genesisF, defaultGenesis, genesisUsage)
	return cmd
}

func seed(cmd *cobra.Command, _ []string) error {
	log, dbPath, err := setup(cmd)
	if err != nil {
		return err
	}

	genesisPath, err := cmd.Flags().GetString(genesisF)
	if err != nil {
		return err
	}
	if genesisPath == "" {
		return errors.New("no genesis configuration given")
	}

	config, err := genesis.Read(genesisPath)
	if err != nil {
		return err
	}
	if err = config.Validate(); err != nil {
		return err
	}
	// Constructors and function calls need a Cairo virtual machine, which
	// only embedders of the engine API provide.
	if len(config.FunctionCalls) > 0 {
		return errors.New("genesis function calls are not supported by the seed command")
	}
	for address, contractData := range config.Contracts {
		if len(contractData.ConstructorArgs) > 0 {
			return fmt.Errorf("contract %s: constructor arguments are not supported by the seed command", &address)
		}
	}

	genesisState, err := genesis.GenesisState(config, nil, execution.DefaultConfig())
	if err != nil {
		return err
	}

	database, err := state.OpenDB(dbPath, log)
	if err != nil {
		return err
	}
	defer database.Close()

	if err = database.Commit(genesisState.Diff(), genesisState.DeclaredClasses()); err != nil {
		return err
	}
	log.Infow("seeded database", "path", dbPath,
		"classes", len(config.Classes), "contracts", len(config.Contracts), "balances", len(config.Balances))
	return nil
}

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Retrieve contract information from the database",
		Long:  `This subcommand reads a contract's class hash, nonce and optionally a storage cell.`,
		RunE:  inspect,
	}
	cmd.Flags().String(contractF, "", contractUsage)
	cmd.Flags().String(keyF, "", keyUsage)
	return cmd
}

func inspect(cmd *cobra.Command, _ []string) error {
	log, dbPath, err := setup(cmd)
	if err != nil {
		return err
	}

	contractHex, err := cmd.Flags().GetString(contractF)
	if err != nil {
		return err
	}
	address, err := new(felt.Felt).SetString(contractHex)
	if err != nil {
		return fmt.Errorf("invalid contract address: %w", err)
	}

	database, err := state.OpenDB(dbPath, log)
	if err != nil {
		return err
	}
	defer database.Close()

	classHash, err := database.ContractClassHash(address)
	if err != nil {
		return err
	}
	nonce, err := database.ContractNonce(address)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "class hash: %s\nnonce: %s\n", &classHash, &nonce)

	if keyHex, err := cmd.Flags().GetString(keyF); err != nil {
		return err
	} else if keyHex != "" {
		key, err := new(felt.Felt).SetString(keyHex)
		if err != nil {
			return fmt.Errorf("invalid storage key: %w", err)
		}
		value, err := database.ContractStorage(address, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "storage[%s]: %s\n", key, &value)
	}
	return nil
}

// setup binds the persistent flags to the yaml configuration, builds the
// logger and resolves the database path.
func setup(cmd *cobra.Command) (utils.Logger, string, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", err
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, "", err
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, "", err
	}

	var verbosity utils.LogLevel
	if err := verbosity.Set(v.GetString(verbosityF)); err != nil {
		return nil, "", err
	}
	log, err := utils.NewZapLogger(verbosity, v.GetBool(colourF))
	if err != nil {
		return nil, "", err
	}

	dbPath := v.GetString(dbPathF)
	if dbPath == "" {
		return nil, "", errors.New("no database path given")
	}
	return log, dbPath, nil
}
