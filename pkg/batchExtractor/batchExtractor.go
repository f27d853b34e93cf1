// Package batchExtractor extracts the transactions and logs of many
// contracts over one block range with a bounded pool of workers, optionally
// handing the rows to storage sinks.
package batchExtractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/contract-activity/pkg/service/contractActivityService"
	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/Layr-Labs/contract-activity/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultWorkers     = 4
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
)

var ErrAttemptsExhausted = errors.New("extraction attempts exhausted")

type TransactionExtractor interface {
	FetchContractTransactions(ctx context.Context, address string, startBlock uint64, endBlock uint64) (*table.Table, error)
}

type LogExtractor interface {
	FetchContractLogs(ctx context.Context, address string, startBlock uint64, endBlock uint64) (*table.Table, error)
}

type BatchExtractorConfig struct {
	// Workers is the number of addresses extracted concurrently
	Workers int
	// MaxAttempts bounds how often one address is extracted as a whole
	MaxAttempts int
	// RetryDelay is waited between two attempts of the same address
	RetryDelay time.Duration
	// SkipTransactions and SkipLogs leave one of the two tables out
	SkipTransactions bool
	SkipLogs         bool
	// ResumeFrom, when set, returns the block an address was already stored
	// up to. Extraction of that address then starts there.
	ResumeFrom func(ctx context.Context, address string) (uint64, bool, error)
	// ClearRange, when set, is called once per address before its first
	// attempt with the block range about to be extracted, so stored rows of
	// that range can be dropped and written again.
	ClearRange func(ctx context.Context, address string, startBlock uint64, endBlock uint64) error
}

// AddressResult is the outcome for one address. Err is set when every
// attempt failed; the tables are then nil.
type AddressResult struct {
	Address      string
	Transactions *table.Table
	Logs         *table.Table
	Attempts     int
	Err          error
}

// BatchResult lists one AddressResult per input address, in input order.
type BatchResult struct {
	RunId   string
	Results []*AddressResult
}

// Failed returns the results that carry an error.
func (br *BatchResult) Failed() []*AddressResult {
	return utils.Filter(br.Results, func(r *AddressResult) bool {
		return r.Err != nil
	})
}

type BatchExtractor struct {
	transactions TransactionExtractor
	logs         LogExtractor
	sinks        []storage.ActivitySink
	config       *BatchExtractorConfig
	metricsSink  *metrics.MetricsSink
	logger       *zap.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewBatchExtractor(
	txs TransactionExtractor,
	logs LogExtractor,
	sinks []storage.ActivitySink,
	cfg *BatchExtractorConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *BatchExtractor {
	if cfg == nil {
		cfg = &BatchExtractorConfig{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &BatchExtractor{
		transactions: txs,
		logs:         logs,
		sinks:        sinks,
		config:       cfg,
		metricsSink:  ms,
		logger:       l,
		sleep:        sleepContext,
	}
}

// Run extracts every address between startBlock and endBlock. A failing
// address does not stop the others; its error is reported in its result.
// The returned error is only set when ctx ends before all addresses ran.
func (b *BatchExtractor) Run(ctx context.Context, addresses []string, startBlock uint64, endBlock uint64) (*BatchResult, error) {
	runId := uuid.New().String()
	result := &BatchResult{
		RunId:   runId,
		Results: make([]*AddressResult, len(addresses)),
	}

	b.logger.Sugar().Infow("Starting batch extraction",
		zap.String("runId", runId),
		zap.Int("addresses", len(addresses)),
		zap.Int("workers", b.config.Workers),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("endBlock", endBlock),
	)

	queue := make(chan int, len(addresses))
	for i := range addresses {
		queue <- i
	}
	close(queue)

	wg := &sync.WaitGroup{}
	workers := min(b.config.Workers, len(addresses))
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range queue {
				result.Results[i] = b.extractAddress(ctx, runId, addresses[i], startBlock, endBlock)
			}
		}()
	}
	wg.Wait()

	failed := len(result.Failed())
	b.logger.Sugar().Infow("Finished batch extraction",
		zap.String("runId", runId),
		zap.Int("addresses", len(addresses)),
		zap.Int("failed", failed),
	)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (b *BatchExtractor) extractAddress(ctx context.Context, runId string, address string, startBlock uint64, endBlock uint64) *AddressResult {
	res := &AddressResult{Address: address}

	if b.config.ResumeFrom != nil {
		stored, ok, err := b.config.ResumeFrom(ctx, address)
		if err != nil {
			res.Err = err
			return res
		}
		if ok && stored > startBlock {
			// the stored block may be partial, so it is extracted again
			startBlock = stored
			if endBlock != 0 && startBlock > endBlock {
				startBlock = endBlock
			}
			b.logger.Sugar().Infow("Resuming address",
				zap.String("runId", runId),
				zap.String("address", address),
				zap.Uint64("startBlock", startBlock),
			)
		}
	}

	if b.config.ClearRange != nil {
		if err := b.config.ClearRange(ctx, address, startBlock, endBlock); err != nil {
			res.Err = err
			return res
		}
	}

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		txs, logs, err := b.extractOnce(ctx, runId, address, startBlock, endBlock)
		if err == nil {
			res.Transactions = txs
			res.Logs = logs
			res.Err = nil
			return res
		}
		res.Err = err

		b.logger.Sugar().Warnw("Failed to extract address",
			zap.String("runId", runId),
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", b.config.MaxAttempts),
			zap.Error(err),
		)
		if attempt < b.config.MaxAttempts {
			if err := b.sleep(ctx, b.config.RetryDelay); err != nil {
				res.Err = err
				return res
			}
		}
	}

	res.Err = errors.Wrapf(ErrAttemptsExhausted, "%s after %d attempts: %v", address, res.Attempts, res.Err)
	return res
}

func (b *BatchExtractor) extractOnce(ctx context.Context, runId string, address string, startBlock uint64, endBlock uint64) (*table.Table, *table.Table, error) {
	var txs, logs *table.Table
	var err error

	if !b.config.SkipTransactions {
		txs, err = b.transactions.FetchContractTransactions(ctx, address, startBlock, endBlock)
		if err != nil {
			return nil, nil, err
		}
	}
	if !b.config.SkipLogs {
		logs, err = b.logs.FetchContractLogs(ctx, address, startBlock, endBlock)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := b.persist(ctx, runId, contractLabel(address), txs, logs); err != nil {
		return nil, nil, err
	}
	return txs, logs, nil
}

// persist hands both tables to every sink. Sinks skip rows they already
// hold, so persisting again after a failed attempt is safe.
func (b *BatchExtractor) persist(ctx context.Context, runId string, contract string, txs *table.Table, logs *table.Table) error {
	if len(b.sinks) == 0 {
		return nil
	}

	var txRows []*storage.ContractTransaction
	var logRows []*storage.ContractLog
	var err error
	if txs != nil {
		if txRows, err = storage.TransactionsFromTable(txs, contract, runId); err != nil {
			return err
		}
	}
	if logs != nil {
		if logRows, err = storage.LogsFromTable(logs, contract, runId); err != nil {
			return err
		}
	}

	for _, sink := range b.sinks {
		if len(txRows) > 0 {
			n, err := sink.InsertTransactions(ctx, txRows)
			if err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			b.recordPersisted(contractActivityService.Kind_Transactions, sink.Name(), n)
		}
		if len(logRows) > 0 {
			n, err := sink.InsertLogs(ctx, logRows)
			if err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			b.recordPersisted(contractActivityService.Kind_Logs, sink.Name(), n)
		}
	}
	return nil
}

func (b *BatchExtractor) recordPersisted(kind string, sink string, n int) {
	_ = b.metricsSink.Incr(metricsTypes.Metric_Incr_RecordsPersisted, []metricsTypes.MetricsLabel{
		{Name: "kind", Value: kind},
		{Name: "sink", Value: sink},
	}, float64(n))
}

// contractLabel renders valid addresses checksummed so rows of one contract
// share the same label whatever the input casing.
func contractLabel(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return strings.TrimSpace(address)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
