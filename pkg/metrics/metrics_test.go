package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/stretchr/testify/assert"
)

type recordingClient struct {
	names  []string
	labels [][]metricsTypes.MetricsLabel
	err    error
	flush  int
}

func (r *recordingClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	r.names = append(r.names, name)
	r.labels = append(r.labels, labels)
	return r.err
}

func (r *recordingClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	r.names = append(r.names, name)
	r.labels = append(r.labels, labels)
	return r.err
}

func (r *recordingClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	r.names = append(r.names, name)
	r.labels = append(r.labels, labels)
	return r.err
}

func (r *recordingClient) Flush() {
	r.flush++
}

func Test_MetricsSink(t *testing.T) {
	t.Run("Should fan out to every client with default labels", func(t *testing.T) {
		a := &recordingClient{}
		b := &recordingClient{}
		sink, err := NewMetricsSink(&MetricsSinkConfig{
			DefaultLabels: []metricsTypes.MetricsLabel{{Name: "network", Value: "polygon"}},
		}, []metricsTypes.IMetricsClient{a, b})
		assert.Nil(t, err)

		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_PageFetched, []metricsTypes.MetricsLabel{{Name: "action", Value: "txlist"}}, 1))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_LatestBlock, 1, nil))
		assert.Nil(t, sink.Timing(metricsTypes.Metric_Timing_ExtractionDuration, time.Second, nil))
		sink.Flush()

		for _, c := range []*recordingClient{a, b} {
			assert.Equal(t, []string{
				metricsTypes.Metric_Incr_PageFetched,
				metricsTypes.Metric_Gauge_LatestBlock,
				metricsTypes.Metric_Timing_ExtractionDuration,
			}, c.names)
			assert.Equal(t, []metricsTypes.MetricsLabel{
				{Name: "action", Value: "txlist"},
				{Name: "network", Value: "polygon"},
			}, c.labels[0])
			assert.Equal(t, 1, c.flush)
		}
	})
	t.Run("Should report client errors", func(t *testing.T) {
		failing := &recordingClient{err: errors.New("boom")}
		sink, _ := NewMetricsSink(nil, []metricsTypes.IMetricsClient{failing, &recordingClient{}})
		assert.NotNil(t, sink.Incr(metricsTypes.Metric_Incr_PageFetched, nil, 1))
	})
	t.Run("Should do nothing without clients", func(t *testing.T) {
		assert.Nil(t, NewNoopMetricsSink().Incr(metricsTypes.Metric_Incr_PageFetched, nil, 1))
	})
}

func Test_InitMetricsSinksFromConfig(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	clients, err := InitMetricsSinksFromConfig(&config.Config{}, l)
	assert.Nil(t, err)
	assert.Len(t, clients, 0)
}
