package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/Layr-Labs/contract-activity/pkg/batchExtractor"
	"github.com/Layr-Labs/contract-activity/pkg/service/contractActivityService"
	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	flagStartBlock       = "start-block"
	flagEndBlock         = "end-block"
	flagProgress         = "progress"
	flagResume           = "resume"
	flagReplace          = "replace"
	flagAddresses        = "addresses"
	flagSkipTransactions = "skip-transactions"
	flagSkipLogs         = "skip-logs"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the activity of contracts over a block range",
}

var extractTransactionsCmd = &cobra.Command{
	Use:   "transactions <address>",
	Short: "Extract and decode the transactions sent to a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, []string{args[0]}, false, true)
	},
}

var extractLogsCmd = &cobra.Command{
	Use:   "logs <address>",
	Short: "Extract and decode the event logs emitted by a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, []string{args[0]}, true, false)
	},
}

var extractBatchCmd = &cobra.Command{
	Use:   "batch [category]",
	Short: "Extract transactions and logs of many contracts, listed by --addresses or by a category of the networks file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addressList, _ := cmd.Flags().GetString(flagAddresses)
		skipTxs, _ := cmd.Flags().GetBool(flagSkipTransactions)
		skipLogs, _ := cmd.Flags().GetBool(flagSkipLogs)

		addresses := config.ParseAddressList(addressList)
		if len(args) == 1 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fromCategory, err := cfg.ContractsForCategory(args[0])
			if err != nil {
				return err
			}
			addresses = append(addresses, fromCategory...)
		}
		if len(addresses) == 0 {
			return fmt.Errorf("no contracts given, pass a category or --%s", flagAddresses)
		}
		return runExtract(cmd, addresses, skipTxs, skipLogs)
	},
}

func runExtract(cmd *cobra.Command, addresses []string, skipTransactions bool, skipLogs bool) error {
	startBlock, _ := cmd.Flags().GetUint64(flagStartBlock)
	endBlock, _ := cmd.Flags().GetUint64(flagEndBlock)
	showProgress, _ := cmd.Flags().GetBool(flagProgress)
	resume, _ := cmd.Flags().GetBool(flagResume)
	replace, _ := cmd.Flags().GetBool(flagReplace)
	if resume && replace {
		return fmt.Errorf("--%s and --%s cannot be combined", flagResume, flagReplace)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := newComponents(ctx, showProgress)
	if err != nil {
		return err
	}
	defer c.close()

	if (resume || replace) && c.pgStore == nil {
		return fmt.Errorf("--%s and --%s need --%s", flagResume, flagReplace, config.OutputPostgres)
	}

	workers := c.cfg.BatchConfig.Concurrency
	if len(addresses) == 1 {
		workers = 1
	}
	batchCfg := &batchExtractor.BatchExtractorConfig{
		Workers:          workers,
		MaxAttempts:      c.cfg.BatchConfig.MaxAttempts,
		SkipTransactions: skipTransactions,
		SkipLogs:         skipLogs,
	}
	if resume {
		batchCfg.ResumeFrom = c.resumeFrom(skipTransactions, skipLogs)
	}
	if replace {
		batchCfg.ClearRange = c.clearRange(skipTransactions, skipLogs)
	}

	be := batchExtractor.NewBatchExtractor(c.transactions, c.logs, c.sinks, batchCfg, c.metricsSink, c.logger)
	res, err := be.Run(ctx, addresses, startBlock, endBlock)
	if err != nil {
		return err
	}

	if len(c.sinks) == 0 {
		if err := writeStdout(res); err != nil {
			return err
		}
	}

	failed := res.Failed()
	for _, r := range failed {
		c.logger.Sugar().Errorw("Contract extraction failed",
			zap.String("runId", res.RunId),
			zap.String("address", r.Address),
			zap.Int("attempts", r.Attempts),
			zap.Error(r.Err),
		)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d contracts failed, first error: %w", len(failed), len(addresses), failed[0].Err)
	}
	return nil
}

func extractedModels(skipTransactions bool, skipLogs bool) []interface{} {
	models := make([]interface{}, 0, 2)
	if !skipTransactions {
		models = append(models, &storage.ContractTransaction{})
	}
	if !skipLogs {
		models = append(models, &storage.ContractLog{})
	}
	return models
}

// clearRange drops the stored rows of the range about to be extracted, for
// the kinds extracted only.
func (c *components) clearRange(skipTransactions bool, skipLogs bool) func(ctx context.Context, address string, startBlock uint64, endBlock uint64) error {
	models := extractedModels(skipTransactions, skipLogs)

	return func(ctx context.Context, address string, startBlock uint64, endBlock uint64) error {
		if len(models) == 0 {
			return nil
		}
		if endBlock == 0 {
			latest, err := c.node.GetBlockNumber(ctx)
			if err != nil {
				return err
			}
			endBlock = latest
		}
		return c.pgStore.DeleteContractRange(ctx, address, startBlock, endBlock, models...)
	}
}

// resumeFrom resumes at the lowest latest block stored over the extracted
// kinds, so neither table misses blocks.
func (c *components) resumeFrom(skipTransactions bool, skipLogs bool) func(ctx context.Context, address string) (uint64, bool, error) {
	models := extractedModels(skipTransactions, skipLogs)

	return func(ctx context.Context, address string) (uint64, bool, error) {
		var resumeAt uint64
		for i, model := range models {
			latest, ok, err := c.pgStore.LatestBlockNumber(ctx, model, address)
			if err != nil || !ok {
				return 0, false, err
			}
			if i == 0 || latest < resumeAt {
				resumeAt = latest
			}
		}
		return resumeAt, len(models) > 0, nil
	}
}

// writeStdout prints the extracted rows as csv when no sink is configured.
func writeStdout(res *batchExtractor.BatchResult) error {
	txs := make([]*storage.ContractTransaction, 0)
	logs := make([]*storage.ContractLog, 0)
	for _, r := range res.Results {
		if r.Err != nil {
			continue
		}
		if r.Transactions != nil {
			rows, err := storage.TransactionsFromTable(r.Transactions, r.Address, res.RunId)
			if err != nil {
				return err
			}
			txs = append(txs, rows...)
		}
		if r.Logs != nil {
			rows, err := storage.LogsFromTable(r.Logs, r.Address, res.RunId)
			if err != nil {
				return err
			}
			logs = append(logs, rows...)
		}
	}

	if len(txs) > 0 {
		if err := gocsv.Marshal(&txs, os.Stdout); err != nil {
			return fmt.Errorf("failed to write %s: %w", contractActivityService.Kind_Transactions, err)
		}
	}
	if len(logs) > 0 {
		if len(txs) > 0 {
			fmt.Fprintln(os.Stdout)
		}
		if err := gocsv.Marshal(&logs, os.Stdout); err != nil {
			return fmt.Errorf("failed to write %s: %w", contractActivityService.Kind_Logs, err)
		}
	}
	return nil
}
