package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_PageFetched      = "fetcher_page_fetched"
	Metric_Incr_PageRetried      = "fetcher_page_retried"
	Metric_Incr_UndecodedRecord  = "decoder_record_undecoded"
	Metric_Incr_AbiResolved      = "abi_resolved"
	Metric_Incr_ExtractionFailed = "extraction_failed"
	Metric_Incr_RecordsPersisted = "storage_records_persisted"

	Metric_Gauge_RecordsExtracted = "extraction_records"
	Metric_Gauge_LatestBlock      = "node_latest_block"

	Metric_Timing_PageFetchDuration  = "fetcher_page_duration"
	Metric_Timing_ExtractionDuration = "extraction_duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name: Metric_Incr_PageFetched,
			Labels: []string{
				"action",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_PageRetried,
			Labels: []string{
				"action",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_UndecodedRecord,
			Labels: []string{
				"kind",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_AbiResolved,
			Labels: []string{
				"is_proxy",
				"has_abi",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_ExtractionFailed,
			Labels: []string{
				"kind",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_RecordsPersisted,
			Labels: []string{
				"kind",
				"sink",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name: Metric_Gauge_RecordsExtracted,
			Labels: []string{
				"kind",
			},
		},
		MetricsTypeConfig{
			Name:   Metric_Gauge_LatestBlock,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_PageFetchDuration,
			Labels: []string{
				"action",
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_ExtractionDuration,
			Labels: []string{
				"kind",
				"hasError",
			},
		},
	},
}
