// Package fetcher retrieves every record of a contract over a block range
// from the cursor based list endpoints of a block explorer. Pages are
// retried with a bounded backoff and the cursor only ever moves forward.
package fetcher

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrPageRetriesExhausted = errors.New("page retries exhausted")

// PageSource returns one page of a list endpoint.
type PageSource interface {
	ListRecords(ctx context.Context, params url.Values) ([]map[string]interface{}, error)
}

// FetcherConfig contains the configuration specific to the Fetcher
type FetcherConfig struct {
	// MaxAttempts is the number of requests made for a single page before giving up
	MaxAttempts int
	// MaxBackoff caps the wait between two attempts
	MaxBackoff time.Duration
}

// Fetcher pages through explorer list endpoints.
type Fetcher struct {
	Source        PageSource
	Logger        *zap.Logger
	FetcherConfig *FetcherConfig
	metricsSink   *metrics.MetricsSink

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a new Fetcher with the provided page source, configuration, and logger.
func NewFetcher(
	source PageSource,
	cfg *FetcherConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *Fetcher {
	if cfg == nil {
		cfg = &FetcherConfig{}
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	l.Sugar().Infow("Created fetcher", zap.Any("config", cfg))
	return &Fetcher{
		Source:        source,
		Logger:        l,
		FetcherConfig: cfg,
		metricsSink:   ms,
		sleep:         sleepContext,
	}
}

// RetryPolicyFor builds the page retry policy of a protocol, starting at the
// protocol's backoff.
func (f *Fetcher) RetryPolicyFor(p Protocol) *RetryPolicy {
	policy := NewRetryPolicy(p.Backoff)
	if f.FetcherConfig.MaxAttempts > 0 {
		policy.MaxAttempts = f.FetcherConfig.MaxAttempts
	}
	if f.FetcherConfig.MaxBackoff > 0 {
		policy.MaxBackoff = f.FetcherConfig.MaxBackoff
	}
	return policy
}

// FetchAll returns every record of address between startBlock and endBlock,
// in arrival order.
//
// A full page whose highest block is still below endBlock moves the cursor
// to that block, so records of the boundary block can appear twice. Short
// or empty pages end the walk.
func (f *Fetcher) FetchAll(ctx context.Context, p Protocol, address string, startBlock uint64, endBlock uint64) ([]parser.RawRecord, error) {
	cursor := Cursor{StartBlock: startBlock, EndBlock: endBlock}
	records := make([]parser.RawRecord, 0)

	for {
		page, maxBlock, err := f.fetchPageWithRetry(ctx, p, address, cursor)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			records = append(records, parser.RawRecord(r))
		}
		f.Logger.Sugar().Debugw("Fetched page",
			zap.String("action", p.Action),
			zap.String("address", address),
			zap.Uint64("startBlock", cursor.StartBlock),
			zap.Uint64("endBlock", cursor.EndBlock),
			zap.Int("records", len(page)),
		)

		if len(page) < p.PageSize || maxBlock >= cursor.EndBlock {
			break
		}

		if maxBlock <= cursor.StartBlock {
			f.Logger.Sugar().Warnw("Full page did not advance the cursor, skipping a block",
				zap.String("action", p.Action),
				zap.String("address", address),
				zap.Uint64("block", cursor.StartBlock),
			)
			cursor.StartBlock++
			continue
		}
		cursor.StartBlock = maxBlock
	}

	f.Logger.Sugar().Infow("Fetched records",
		zap.String("action", p.Action),
		zap.String("address", address),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (f *Fetcher) fetchPageWithRetry(ctx context.Context, p Protocol, address string, cursor Cursor) ([]map[string]interface{}, uint64, error) {
	policy := f.RetryPolicyFor(p)
	labels := []metricsTypes.MetricsLabel{{Name: "action", Value: p.Action}}

	for attempt := 1; ; attempt++ {
		start := time.Now()
		page, maxBlock, err := f.fetchPage(ctx, p, address, cursor)
		_ = f.metricsSink.Timing(metricsTypes.Metric_Timing_PageFetchDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "action", Value: p.Action},
			{Name: "hasError", Value: strconv.FormatBool(err != nil)},
		})
		if err == nil {
			_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_PageFetched, labels, 1)
			return page, maxBlock, nil
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		if attempt >= policy.MaxAttempts {
			f.Logger.Sugar().Errorw("Giving up on page",
				zap.String("action", p.Action),
				zap.String("address", address),
				zap.Uint64("startBlock", cursor.StartBlock),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return nil, 0, errors.Wrapf(ErrPageRetriesExhausted, "%s for %s from block %d after %d attempts: %v", p.Action, address, cursor.StartBlock, attempt, err)
		}

		backoff := policy.Backoff(attempt)
		f.Logger.Sugar().Warnw("Failed to fetch page, retrying",
			zap.String("action", p.Action),
			zap.String("address", address),
			zap.Uint64("startBlock", cursor.StartBlock),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_PageRetried, labels, 1)
		if err := f.sleep(ctx, backoff); err != nil {
			return nil, 0, err
		}
	}
}

// fetchPage requests a page and reads its highest block number. A record
// without a readable block number fails the whole page.
func (f *Fetcher) fetchPage(ctx context.Context, p Protocol, address string, cursor Cursor) ([]map[string]interface{}, uint64, error) {
	params := url.Values{
		"module":     {p.Module},
		"action":     {p.Action},
		"address":    {address},
		p.StartParam: {p.FormatBlock(cursor.StartBlock)},
		p.EndParam:   {p.FormatBlock(cursor.EndBlock)},
		"page":       {"1"},
		"offset":     {strconv.Itoa(p.PageSize)},
	}
	if p.Sort != "" {
		params.Set("sort", p.Sort)
	}

	page, err := f.Source.ListRecords(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	var maxBlock uint64
	for i, r := range page {
		n, err := p.ParseBlock(r["blockNumber"])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "record %d", i)
		}
		if n > maxBlock {
			maxBlock = n
		}
	}
	return page, maxBlock, nil
}
