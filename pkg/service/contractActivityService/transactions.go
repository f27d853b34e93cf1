package contractActivityService

import (
	"context"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/fetcher"
	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/contract-activity/pkg/service/baseDataService"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/Layr-Labs/contract-activity/pkg/transactionParser"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type ContractTransactionsService struct {
	extraction
	parser *transactionParser.TransactionParser
}

func NewContractTransactionsService(
	node baseDataService.BlockHeightReader,
	resolver Resolver,
	pf PageFetcher,
	tp *transactionParser.TransactionParser,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *ContractTransactionsService {
	return &ContractTransactionsService{
		extraction: newExtraction(node, resolver, pf, ms, l),
		parser:     tp,
	}
}

// FetchContractTransactions returns one row per transaction sent to address
// between startBlock and endBlock, with function_name and
// function_parameters decoded where the ABI allows. An endBlock of 0 means
// the latest block.
func (s *ContractTransactionsService) FetchContractTransactions(ctx context.Context, address string, startBlock uint64, endBlock uint64) (t *table.Table, err error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "contractActivity.FetchContractTransactions")
	span.SetTag("address", address)
	span.SetTag("startBlock", startBlock)
	span.SetTag("endBlock", endBlock)
	start := time.Now()
	defer func() {
		s.observe(Kind_Transactions, start, err)
		span.Finish(ddTracer.WithError(err))
	}()

	resolution, records, endBlock, err := s.run(ctx, Kind_Transactions, fetcher.TransactionProtocol, address, startBlock, endBlock)
	if err != nil {
		return nil, err
	}

	decoded := s.parser.DecodeTransactions(records, resolution.Abi)

	rows := make([]map[string]interface{}, 0, len(decoded))
	undecoded := 0
	for _, tx := range decoded {
		if !tx.IsDecoded() {
			undecoded++
		}
		rows = append(rows, tx.ToRecord())
	}
	if undecoded > 0 {
		_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_UndecodedRecord, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: Kind_Transactions},
		}, float64(undecoded))
	}

	t, err = s.normalize(Kind_Transactions, address, startBlock, endBlock, rows, table.TransactionSchema)
	if err != nil {
		return nil, err
	}

	s.logger.Sugar().Infow("Extracted contract transactions",
		zap.String("address", address),
		zap.Bool("isProxy", resolution.IsProxy),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("endBlock", endBlock),
		zap.Int("transactions", t.Len()),
		zap.Int("undecoded", undecoded),
	)
	return t, nil
}
