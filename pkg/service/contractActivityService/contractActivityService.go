// Package contractActivityService extracts the transactions and event logs of
// a contract into normalized tables. Both services share the same stateless
// capabilities: ABI resolution, paginated fetching and column normalization.
package contractActivityService

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/abiResolver"
	"github.com/Layr-Labs/contract-activity/pkg/fetcher"
	"github.com/Layr-Labs/contract-activity/pkg/hexCodec"
	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/Layr-Labs/contract-activity/pkg/service/baseDataService"
	"github.com/Layr-Labs/contract-activity/pkg/table"
	"go.uber.org/zap"
)

const (
	Kind_Transactions = "transactions"
	Kind_Logs         = "logs"
)

// Resolver resolves the ABI of a contract, following proxies.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*abiResolver.Resolution, error)
}

// PageFetcher returns every record of a list endpoint over a block range.
type PageFetcher interface {
	FetchAll(ctx context.Context, p fetcher.Protocol, address string, startBlock uint64, endBlock uint64) ([]parser.RawRecord, error)
}

// extraction holds what both services share.
type extraction struct {
	baseDataService.BaseDataService
	resolver    Resolver
	fetcher     PageFetcher
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

func newExtraction(
	node baseDataService.BlockHeightReader,
	resolver Resolver,
	pf PageFetcher,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) extraction {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return extraction{
		BaseDataService: baseDataService.BaseDataService{Node: node},
		resolver:        resolver,
		fetcher:         pf,
		metricsSink:     ms,
		logger:          l,
	}
}

// run resolves the block range and the ABI, then fetches the raw records.
// Any failure is returned as a *RetrievalError.
func (e *extraction) run(
	ctx context.Context,
	kind string,
	p fetcher.Protocol,
	address string,
	startBlock uint64,
	endBlock uint64,
) (*abiResolver.Resolution, []parser.RawRecord, uint64, error) {
	fail := func(end uint64, err error) error {
		e.logger.Sugar().Errorw("Extraction failed",
			zap.String("kind", kind),
			zap.String("address", address),
			zap.Uint64("startBlock", startBlock),
			zap.Uint64("endBlock", end),
			zap.Error(err),
		)
		_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_ExtractionFailed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: kind},
		}, 1)
		return &RetrievalError{Kind: kind, Address: address, StartBlock: startBlock, EndBlock: end, Err: err}
	}

	endBlock, err := e.GetCurrentBlockHeightIfNotPresent(ctx, endBlock)
	if err != nil {
		return nil, nil, endBlock, fail(endBlock, err)
	}
	if startBlock > endBlock {
		return nil, nil, endBlock, fail(endBlock, fmt.Errorf("start block %d is after end block %d", startBlock, endBlock))
	}

	resolution, err := e.resolver.Resolve(ctx, address)
	if err != nil {
		return nil, nil, endBlock, fail(endBlock, err)
	}

	records, err := e.fetcher.FetchAll(ctx, p, resolution.QueryAddress.Hex(), startBlock, endBlock)
	if err != nil {
		return nil, nil, endBlock, fail(endBlock, err)
	}
	return resolution, records, endBlock, nil
}

func (e *extraction) normalize(kind string, address string, startBlock uint64, endBlock uint64, rows []map[string]interface{}, schema table.Schema) (*table.Table, error) {
	t := table.FromRecords(rows)
	if err := hexCodec.NormalizeTable(t, schema); err != nil {
		_ = e.metricsSink.Incr(metricsTypes.Metric_Incr_ExtractionFailed, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: kind},
		}, 1)
		return nil, &RetrievalError{Kind: kind, Address: address, StartBlock: startBlock, EndBlock: endBlock, Err: err}
	}
	_ = e.metricsSink.Gauge(metricsTypes.Metric_Gauge_RecordsExtracted, float64(t.Len()), []metricsTypes.MetricsLabel{
		{Name: "kind", Value: kind},
	})
	return t, nil
}

func (e *extraction) observe(kind string, start time.Time, err error) {
	_ = e.metricsSink.Timing(metricsTypes.Metric_Timing_ExtractionDuration, time.Since(start), []metricsTypes.MetricsLabel{
		{Name: "kind", Value: kind},
		{Name: "hasError", Value: strconv.FormatBool(err != nil)},
	})
}
