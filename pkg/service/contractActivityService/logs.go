package contractActivityService

import (
	"context"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/fetcher"
	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/Layr-Labs/contract-activity/pkg/service/baseDataService"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"github.com/Layr-Labs/contract-activity/pkg/transactionLogParser"
	"go.uber.org/zap"
	ddTracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type ContractLogsService struct {
	extraction
	parser *transactionLogParser.TransactionLogParser
}

func NewContractLogsService(
	node baseDataService.BlockHeightReader,
	resolver Resolver,
	pf PageFetcher,
	tlp *transactionLogParser.TransactionLogParser,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *ContractLogsService {
	return &ContractLogsService{
		extraction: newExtraction(node, resolver, pf, ms, l),
		parser:     tlp,
	}
}

// FetchContractLogs returns one row per event log emitted by address between
// startBlock and endBlock. Decoded events are spread over decoded_data.N
// columns, N being the topic position that matched. An endBlock of 0 means
// the latest block.
func (s *ContractLogsService) FetchContractLogs(ctx context.Context, address string, startBlock uint64, endBlock uint64) (t *table.Table, err error) {
	span, ctx := ddTracer.StartSpanFromContext(ctx, "contractActivity.FetchContractLogs")
	span.SetTag("address", address)
	span.SetTag("startBlock", startBlock)
	span.SetTag("endBlock", endBlock)
	start := time.Now()
	defer func() {
		s.observe(Kind_Logs, start, err)
		span.Finish(ddTracer.WithError(err))
	}()

	resolution, records, endBlock, err := s.run(ctx, Kind_Logs, fetcher.LogProtocol, address, startBlock, endBlock)
	if err != nil {
		return nil, err
	}

	decoded := s.parser.DecodeLogs(records, resolution.EventIndex)

	rows := make([]map[string]interface{}, 0, len(decoded))
	undecoded := 0
	for _, log := range decoded {
		if !hasDecodedEvent(log) {
			undecoded++
		}
		rows = append(rows, log.ToRecord())
	}
	if undecoded > 0 {
		_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_UndecodedRecord, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: Kind_Logs},
		}, float64(undecoded))
	}

	t, err = s.normalize(Kind_Logs, address, startBlock, endBlock, rows, table.LogSchema)
	if err != nil {
		return nil, err
	}

	s.logger.Sugar().Infow("Extracted contract logs",
		zap.String("address", address),
		zap.Bool("isProxy", resolution.IsProxy),
		zap.Uint64("startBlock", startBlock),
		zap.Uint64("endBlock", endBlock),
		zap.Int("logs", t.Len()),
		zap.Int("undecoded", undecoded),
	)
	return t, nil
}

func hasDecodedEvent(log *parser.DecodedLog) bool {
	for _, e := range log.DecodedData {
		if !e.IsEmpty() {
			return true
		}
	}
	return false
}
