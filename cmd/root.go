package cmd

import (
	"os"
	"strings"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "contract-activity",
	Short: "Extract, decode and normalize the transactions and event logs of smart contracts",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP(config.NetworkName, "n", "polygon", `The network to use, as named in the networks file (e.g. "ethereum", "polygon", "bsc")`)
	rootCmd.PersistentFlags().String(config.NetworksFilePath, "", `Path to a networks yaml file (defaults to the bundled networks)`)
	rootCmd.PersistentFlags().Duration(config.HttpTimeout, config.DefaultHttpTimeout, `Timeout of a single explorer or node request`)

	rootCmd.PersistentFlags().String(config.ExplorerApiUrl, "", `Overrides the explorer API url of the network`)
	rootCmd.PersistentFlags().String(config.ExplorerApiKey, "", `Explorer API key, defaults to $<NETWORK>_API_KEY`)
	rootCmd.PersistentFlags().Float64(config.ExplorerRequestsPerSecond, 0, `Client side explorer rate limit, 0 to disable`)

	rootCmd.PersistentFlags().String(config.EthereumNodeUrl, "", `Overrides the node url of the network`)
	rootCmd.PersistentFlags().String(config.EthereumNodeKey, "", `Node provider key, defaults to $ALCHEMY_<NETWORK>_NODE_KEY`)

	rootCmd.PersistentFlags().Int(config.FetcherMaxAttempts, config.DefaultFetcherMaxAttempts, `Attempts per explorer page before giving up`)
	rootCmd.PersistentFlags().Duration(config.FetcherMaxBackoff, config.DefaultFetcherMaxBackoff, `Longest wait between two attempts of a page`)

	rootCmd.PersistentFlags().Int(config.AbiMaxTrials, config.DefaultAbiMaxTrials, `Attempts to retrieve a contract ABI`)
	rootCmd.PersistentFlags().Bool(config.AbiIpfsEnabled, false, `Fall back to the IPFS metadata of the bytecode when the explorer has no ABI`)
	rootCmd.PersistentFlags().String(config.AbiIpfsGateway, config.DefaultIpfsGateway, `IPFS gateway used to load contract metadata`)

	rootCmd.PersistentFlags().Int(config.BatchConcurrency, config.DefaultBatchConcurrency, `Contracts extracted concurrently by "extract batch"`)
	rootCmd.PersistentFlags().Int(config.BatchMaxAttempts, config.DefaultBatchMaxAttempts, `Attempts per contract in "extract batch"`)

	rootCmd.PersistentFlags().String(config.OutputCsvDir, "", `Directory receiving one csv file per contract and kind`)
	rootCmd.PersistentFlags().Bool(config.OutputPostgres, false, `Store extracted rows in PostgreSQL`)

	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "contract_activity", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "contract_activity", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().Bool(config.DatabaseCreateDb, false, `Create the database when it does not exist`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL ssl mode (disable, require, verify-ca, verify-full)`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLCert, "", `Path to the client certificate`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLKey, "", `Path to the client key`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLRootCert, "", `Path to the root certificate`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Float64(config.DataDogStatsdSampleRate, 1, `Statsd sample rate in (0, 1]`)
	rootCmd.PersistentFlags().Bool(config.DataDogTracingEnabled, false, `e.g. "true" or "false"`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(resolveCmd)

	extractCmd.AddCommand(extractTransactionsCmd)
	extractCmd.AddCommand(extractLogsCmd)
	extractCmd.AddCommand(extractBatchCmd)

	// bind any subcommand flags
	extractCmd.PersistentFlags().Uint64(flagStartBlock, 0, `First block of the range`)
	extractCmd.PersistentFlags().Uint64(flagEndBlock, 0, `Last block of the range, 0 for the latest block`)
	extractCmd.PersistentFlags().Bool(flagProgress, true, `Show progress bars while decoding`)
	extractCmd.PersistentFlags().Bool(flagResume, false, `With --output.postgres, start from the latest stored block of each contract`)
	extractCmd.PersistentFlags().Bool(flagReplace, false, `With --output.postgres, delete the stored rows of the block range before extracting it again`)

	extractBatchCmd.Flags().String(flagAddresses, "", `Comma separated contract addresses, instead of a category`)
	extractBatchCmd.Flags().Bool(flagSkipTransactions, false, `Only extract logs`)
	extractBatchCmd.Flags().Bool(flagSkipLogs, false, `Only extract transactions`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
