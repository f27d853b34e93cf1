package cmd

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/contract-activity/internal/config"
	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/internal/tracer"
	"github.com/Layr-Labs/contract-activity/pkg/abiResolver"
	"github.com/Layr-Labs/contract-activity/pkg/abiSource"
	abiSourceEtherscan "github.com/Layr-Labs/contract-activity/pkg/abiSource/etherscan"
	"github.com/Layr-Labs/contract-activity/pkg/abiSource/ipfs"
	"github.com/Layr-Labs/contract-activity/pkg/clients/ethereum"
	etherscanClient "github.com/Layr-Labs/contract-activity/pkg/clients/etherscan"
	"github.com/Layr-Labs/contract-activity/pkg/fetcher"
	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/prometheus"
	"github.com/Layr-Labs/contract-activity/pkg/parser"
	"github.com/Layr-Labs/contract-activity/pkg/postgres"
	"github.com/Layr-Labs/contract-activity/pkg/service/contractActivityService"
	"github.com/Layr-Labs/contract-activity/pkg/storage"
	"github.com/Layr-Labs/contract-activity/pkg/storage/csvSink"
	pgStorage "github.com/Layr-Labs/contract-activity/pkg/storage/postgres"
	"github.com/Layr-Labs/contract-activity/pkg/transactionLogParser"
	"github.com/Layr-Labs/contract-activity/pkg/transactionParser"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// components is everything a command needs, built once from the config.
type components struct {
	cfg         *config.Config
	logger      *zap.Logger
	metricsSink *metrics.MetricsSink

	node         *ethereum.Client
	resolver     *abiResolver.AbiResolver
	transactions *contractActivityService.ContractTransactionsService
	logs         *contractActivityService.ContractLogsService

	sinks      []storage.ActivitySink
	pgStore    *pgStorage.PostgresActivityStore
	closeFuncs []func()
}

// loadConfig reads flags and env, applies the networks file and validates
// the result before any network call.
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()

	nf, err := config.LoadNetworksFile(cfg.NetworksFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyNetworks(nf); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newComponents(ctx context.Context, showProgress bool) (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, logger: l}
	if err := c.init(ctx, showProgress); err != nil {
		l.Sugar().Errorw("Failed to initialize", zap.Error(err))
		c.close()
		return nil, err
	}
	return c, nil
}

func (c *components) init(ctx context.Context, showProgress bool) error {
	cfg := c.cfg
	l := c.logger
	c.closeFuncs = append(c.closeFuncs, func() { _ = l.Sync() })

	tracer.StartTracer(cfg.DataDogConfig.TracingConfig.Enabled, cfg.Network)
	c.closeFuncs = append(c.closeFuncs, tracer.StopTracer)

	metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to setup metrics clients: %w", err)
	}
	c.metricsSink, err = metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
	if err != nil {
		return fmt.Errorf("failed to setup metrics sink: %w", err)
	}
	c.closeFuncs = append(c.closeFuncs, c.metricsSink.Flush)

	if cfg.PrometheusConfig.Enabled {
		if _, err := prometheus.StartMetricsServer(ctx, cfg.PrometheusConfig.Port, l); err != nil {
			return err
		}
	}

	c.node = ethereum.NewClient(&ethereum.EthereumClientConfig{
		BaseUrl: cfg.EthereumRpcConfig.NodeEndpoint(),
		Timeout: cfg.HttpTimeout,
	}, l)
	latest, err := c.node.Ping(ctx)
	if err != nil {
		return err
	}
	l.Sugar().Infow("Connected to node",
		zap.String("network", cfg.Network),
		zap.Uint64("latestBlock", latest),
	)

	explorer := etherscanClient.NewEtherscanClient(etherscanClient.NewHttpClient(cfg.HttpTimeout), l, &etherscanClient.EtherscanClientConfig{
		ApiUrl:            cfg.ExplorerConfig.ApiUrl,
		ApiKey:            cfg.ExplorerConfig.ApiKey,
		RequestsPerSecond: cfg.ExplorerConfig.RequestsPerSecond,
	})

	sources := []abiSource.AbiSource{abiSourceEtherscan.NewEtherscan(explorer, l)}
	if cfg.AbiConfig.IpfsEnabled {
		sources = append(sources, ipfs.NewIpfs(c.node, ipfs.DefaultHttpClient(), cfg.AbiConfig.IpfsGateway, l))
	}
	c.resolver = abiResolver.NewAbiResolver(c.node, sources, &abiResolver.AbiResolverConfig{
		MaxTrials: cfg.AbiConfig.MaxTrials,
	}, c.metricsSink, l)

	pf := fetcher.NewFetcher(explorer, &fetcher.FetcherConfig{
		MaxAttempts: cfg.FetcherConfig.MaxAttempts,
		MaxBackoff:  cfg.FetcherConfig.MaxBackoff,
	}, c.metricsSink, l)

	tp := transactionParser.NewTransactionParser(l)
	tlp := transactionLogParser.NewTransactionLogParser(l)
	if showProgress {
		tp.SetProgressFactory(progressBars)
		tlp.SetProgressFactory(progressBars)
	}

	c.transactions = contractActivityService.NewContractTransactionsService(c.node, c.resolver, pf, tp, c.metricsSink, l)
	c.logs = contractActivityService.NewContractLogsService(c.node, c.resolver, pf, tlp, c.metricsSink, l)

	return c.openSinks(ctx)
}

func (c *components) openSinks(ctx context.Context) error {
	if c.cfg.OutputConfig.CsvDir != "" {
		cs, err := csvSink.NewCsvSink(c.cfg.OutputConfig.CsvDir, c.logger)
		if err != nil {
			return err
		}
		c.sinks = append(c.sinks, cs)
	}
	if c.cfg.OutputConfig.Postgres {
		db, grm, err := postgres.OpenAndMigrate(ctx, &c.cfg.DatabaseConfig, c.logger)
		if err != nil {
			return err
		}
		c.closeFuncs = append(c.closeFuncs, func() { _ = db.Close() })
		c.pgStore = pgStorage.NewPostgresActivityStore(grm, c.logger)
		c.sinks = append(c.sinks, c.pgStore)
	}
	return nil
}

// close releases resources in reverse order of acquisition.
func (c *components) close() {
	for i := len(c.closeFuncs) - 1; i >= 0; i-- {
		c.closeFuncs[i]()
	}
}

// progressBars reports decoding progress on stderr.
func progressBars(total int, description string) parser.ProgressReporter {
	return progressbar.Default(int64(total), description)
}
