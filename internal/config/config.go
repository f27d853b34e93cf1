package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "CONTRACT_ACTIVITY"

// flag / viper keys
const (
	Debug            = "debug"
	NetworkName      = "network"
	NetworksFilePath = "networks-file"

	ExplorerApiUrl            = "explorer.api-url"
	ExplorerApiKey            = "explorer.api-key"
	ExplorerRequestsPerSecond = "explorer.requests-per-second"

	EthereumNodeUrl = "ethereum.node-url"
	EthereumNodeKey = "ethereum.node-key"

	HttpTimeout = "http.timeout"

	FetcherMaxAttempts = "fetcher.max-attempts"
	FetcherMaxBackoff  = "fetcher.max-backoff"

	AbiMaxTrials   = "abi.max-trials"
	AbiIpfsEnabled = "abi.ipfs-enabled"
	AbiIpfsGateway = "abi.ipfs-gateway"

	BatchConcurrency = "batch.concurrency"
	BatchMaxAttempts = "batch.max-attempts"

	OutputCsvDir   = "output.csv-dir"
	OutputPostgres = "output.postgres"

	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseCreateDb    = "database.create_db"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled    = "datadog.statsd.enabled"
	DataDogStatsdUrl        = "datadog.statsd.url"
	DataDogStatsdSampleRate = "datadog.statsd.sample_rate"
	DataDogTracingEnabled   = "datadog.tracing.enabled"
)

const (
	DefaultHttpTimeout        = 30 * time.Second
	DefaultFetcherMaxAttempts = 7
	DefaultFetcherMaxBackoff  = 2 * time.Minute
	DefaultAbiMaxTrials       = 10
	DefaultBatchConcurrency   = 4
	DefaultBatchMaxAttempts   = 3
	DefaultIpfsGateway        = "https://ipfs.io/ipfs/"
)

type ExplorerConfig struct {
	ApiUrl            string
	ApiKey            string
	RequestsPerSecond float64
}

type EthereumRpcConfig struct {
	NodeUrl string
	NodeKey string
}

// NodeEndpoint joins the network node url with the provider key, e.g.
// "https://polygon-mainnet.g.alchemy.com/v2/" + "<key>" + "/"
func (e *EthereumRpcConfig) NodeEndpoint() string {
	if e.NodeKey == "" {
		return e.NodeUrl
	}
	return fmt.Sprintf("%s%s/", e.NodeUrl, e.NodeKey)
}

type FetcherConfig struct {
	MaxAttempts int
	MaxBackoff  time.Duration
}

type AbiConfig struct {
	MaxTrials   int
	IpfsEnabled bool
	IpfsGateway string
}

type BatchConfig struct {
	Concurrency int
	MaxAttempts int
}

type OutputConfig struct {
	CsvDir   string
	Postgres bool
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	CreateDb    bool
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type StatsdConfig struct {
	Enabled    bool
	Url        string
	SampleRate float64
}

type TracingConfig struct {
	Enabled bool
}

type DataDogConfig struct {
	StatsdConfig  StatsdConfig
	TracingConfig TracingConfig
}

type Config struct {
	Debug        bool
	Network      string
	NetworksFile string
	HttpTimeout  time.Duration

	ExplorerConfig    ExplorerConfig
	EthereumRpcConfig EthereumRpcConfig
	FetcherConfig     FetcherConfig
	AbiConfig         AbiConfig
	BatchConfig       BatchConfig
	OutputConfig      OutputConfig
	DatabaseConfig    DatabaseConfig
	PrometheusConfig  PrometheusConfig
	DataDogConfig     DataDogConfig

	// Contracts holds the named contract categories read from the networks file.
	Contracts map[string][]string
}

func NewConfig() *Config {
	network := strings.ToLower(viper.GetString(normalizeFlagName(NetworkName)))

	return &Config{
		Debug:        viper.GetBool(normalizeFlagName(Debug)),
		Network:      network,
		NetworksFile: viper.GetString(normalizeFlagName(NetworksFilePath)),
		HttpTimeout:  durationOrDefault(viper.GetDuration(normalizeFlagName(HttpTimeout)), DefaultHttpTimeout),

		ExplorerConfig: ExplorerConfig{
			ApiUrl:            viper.GetString(normalizeFlagName(ExplorerApiUrl)),
			ApiKey:            firstNonEmpty(viper.GetString(normalizeFlagName(ExplorerApiKey)), os.Getenv(ApiKeyEnvVar(network))),
			RequestsPerSecond: viper.GetFloat64(normalizeFlagName(ExplorerRequestsPerSecond)),
		},

		EthereumRpcConfig: EthereumRpcConfig{
			NodeUrl: viper.GetString(normalizeFlagName(EthereumNodeUrl)),
			NodeKey: firstNonEmpty(viper.GetString(normalizeFlagName(EthereumNodeKey)), os.Getenv(NodeKeyEnvVar(network))),
		},

		FetcherConfig: FetcherConfig{
			MaxAttempts: intOrDefault(viper.GetInt(normalizeFlagName(FetcherMaxAttempts)), DefaultFetcherMaxAttempts),
			MaxBackoff:  durationOrDefault(viper.GetDuration(normalizeFlagName(FetcherMaxBackoff)), DefaultFetcherMaxBackoff),
		},

		AbiConfig: AbiConfig{
			MaxTrials:   intOrDefault(viper.GetInt(normalizeFlagName(AbiMaxTrials)), DefaultAbiMaxTrials),
			IpfsEnabled: viper.GetBool(normalizeFlagName(AbiIpfsEnabled)),
			IpfsGateway: firstNonEmpty(viper.GetString(normalizeFlagName(AbiIpfsGateway)), DefaultIpfsGateway),
		},

		BatchConfig: BatchConfig{
			Concurrency: intOrDefault(viper.GetInt(normalizeFlagName(BatchConcurrency)), DefaultBatchConcurrency),
			MaxAttempts: intOrDefault(viper.GetInt(normalizeFlagName(BatchMaxAttempts)), DefaultBatchMaxAttempts),
		},

		OutputConfig: OutputConfig{
			CsvDir:   viper.GetString(normalizeFlagName(OutputCsvDir)),
			Postgres: viper.GetBool(normalizeFlagName(OutputPostgres)),
		},

		DatabaseConfig: DatabaseConfig{
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			CreateDb:    viper.GetBool(normalizeFlagName(DatabaseCreateDb)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled:    viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:        viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
				SampleRate: viper.GetFloat64(normalizeFlagName(DataDogStatsdSampleRate)),
			},
			TracingConfig: TracingConfig{
				Enabled: viper.GetBool(normalizeFlagName(DataDogTracingEnabled)),
			},
		},
	}
}

// ApplyNetworks fills in the explorer and node urls of the selected network
// from the networks file, unless they were set explicitly.
func (c *Config) ApplyNetworks(nf *NetworksFile) error {
	if nf == nil {
		return nil
	}
	nc, ok := nf.Networks[c.Network]
	if !ok {
		return &ConfigurationError{Key: NetworkName, Message: fmt.Sprintf("network '%s' not found in networks file", c.Network)}
	}
	if c.ExplorerConfig.ApiUrl == "" {
		c.ExplorerConfig.ApiUrl = nc.ApiUrl
	}
	if c.EthereumRpcConfig.NodeUrl == "" {
		c.EthereumRpcConfig.NodeUrl = nc.NodeUrl
	}
	c.Contracts = nf.Contracts
	return nil
}

// Validate must pass before any network call is made.
func (c *Config) Validate() error {
	if c.Network == "" {
		return &ConfigurationError{Key: NetworkName, Message: "network is required"}
	}
	if c.ExplorerConfig.ApiUrl == "" {
		return &ConfigurationError{Key: ExplorerApiUrl, Message: fmt.Sprintf("no explorer API url for network '%s'", c.Network)}
	}
	if c.EthereumRpcConfig.NodeUrl == "" {
		return &ConfigurationError{Key: EthereumNodeUrl, Message: fmt.Sprintf("no node url for network '%s'", c.Network)}
	}
	if c.ExplorerConfig.ApiKey == "" {
		return &ConfigurationError{Key: ExplorerApiKey, Message: fmt.Sprintf("explorer API key missing, set %s", ApiKeyEnvVar(c.Network))}
	}
	if c.EthereumRpcConfig.NodeKey == "" {
		return &ConfigurationError{Key: EthereumNodeKey, Message: fmt.Sprintf("node key missing, set %s", NodeKeyEnvVar(c.Network))}
	}
	if c.HttpTimeout <= 0 {
		return &ConfigurationError{Key: HttpTimeout, Message: "http timeout must be positive"}
	}
	if c.FetcherConfig.MaxAttempts < 1 {
		return &ConfigurationError{Key: FetcherMaxAttempts, Message: "at least one fetch attempt is required"}
	}
	return nil
}

// ContractsForCategory returns the addresses configured under a category,
// e.g. "bank".
func (c *Config) ContractsForCategory(category string) ([]string, error) {
	addresses, ok := c.Contracts[category]
	if !ok || len(addresses) == 0 {
		return nil, fmt.Errorf("no contracts configured for category '%s'", category)
	}
	return addresses, nil
}

// ApiKeyEnvVar is the per-network explorer key variable, e.g. POLYGON_API_KEY.
func ApiKeyEnvVar(network string) string {
	return fmt.Sprintf("%s_API_KEY", strings.ToUpper(network))
}

// NodeKeyEnvVar is the per-network node provider key, e.g. ALCHEMY_POLYGON_NODE_KEY.
func NodeKeyEnvVar(network string) string {
	return fmt.Sprintf("ALCHEMY_%s_NODE_KEY", strings.ToUpper(network))
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func parseStringAsList(envVar string) []string {
	if envVar == "" {
		return []string{}
	}
	stringList := strings.Split(envVar, ",")

	l := make([]string, 0)
	for _, s := range stringList {
		if s = strings.TrimSpace(s); s != "" {
			l = append(l, s)
		}
	}
	return l
}

// ParseAddressList splits a comma separated address list from a flag or env var.
func ParseAddressList(s string) []string {
	return parseStringAsList(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intOrDefault(v int, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func durationOrDefault(v time.Duration, d time.Duration) time.Duration {
	if v <= 0 {
		return d
	}
	return v
}
