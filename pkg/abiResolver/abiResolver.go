// Package abiResolver finds the ABI used to interpret a contract's activity.
// Proxies are followed through their EIP-1967 implementation slot: the ABI
// comes from the implementation while data queries stay on the proxy.
package abiResolver

import (
	"context"
	"strconv"

	"github.com/Layr-Labs/contract-activity/pkg/abiSource"
	"github.com/Layr-Labs/contract-activity/pkg/contractAbi"
	"github.com/Layr-Labs/contract-activity/pkg/metrics"
	"github.com/Layr-Labs/contract-activity/pkg/metrics/metricsTypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ImplementationSlot is bytes32(uint256(keccak256('eip1967.proxy.implementation')) - 1)
const ImplementationSlot = "0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc"

const DefaultMaxTrials = 10

// NotAProxy is returned by ResolveImplementation when the address has no
// implementation slot set.
var NotAProxy = common.Address{}

var (
	ErrTrialsExhausted = errors.New("abi trials exhausted")
	ErrInvalidAddress  = errors.New("invalid contract address")
)

// StorageReader reads a storage word of a contract.
type StorageReader interface {
	GetStorageAt(ctx context.Context, address string, slot string, block string) (string, error)
}

type AbiResolverConfig struct {
	// MaxTrials bounds the ABI fetch attempts made by Resolve
	MaxTrials int
}

type AbiResolver struct {
	storage     StorageReader
	sources     []abiSource.AbiSource
	config      *AbiResolverConfig
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger
}

// Binding is a contract ABI together with its event index.
type Binding struct {
	Address    common.Address
	Abi        *contractAbi.ContractAbi
	EventIndex contractAbi.EventSelectorIndex
}

// Resolution is the outcome of resolving a user supplied address.
type Resolution struct {
	// QueryAddress is the address transactions and logs are requested for
	QueryAddress common.Address
	// AbiAddress is the address the ABI was loaded from
	AbiAddress common.Address
	IsProxy    bool
	Abi        *contractAbi.ContractAbi
	EventIndex contractAbi.EventSelectorIndex
}

func (r *Resolution) HasAbi() bool {
	return !r.Abi.IsEmpty()
}

// NewAbiResolver creates a resolver trying the sources in order.
//
// Parameters:
//   - storage: Node client used for the implementation slot lookup
//   - sources: ABI sources, the first one returning an ABI wins
//   - cfg: Resolver configuration
//   - ms: Metrics sink, may be nil
//   - l: Logger
//
// Returns:
//   - *AbiResolver: The configured resolver
func NewAbiResolver(
	storage StorageReader,
	sources []abiSource.AbiSource,
	cfg *AbiResolverConfig,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *AbiResolver {
	if cfg == nil {
		cfg = &AbiResolverConfig{}
	}
	if cfg.MaxTrials < 1 {
		cfg.MaxTrials = DefaultMaxTrials
	}
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	return &AbiResolver{
		storage:     storage,
		sources:     sources,
		config:      cfg,
		metricsSink: ms,
		logger:      l,
	}
}

// ResolveImplementation reads the implementation slot of address. An empty
// slot or a failed read both mean the address is not a proxy, and NotAProxy
// is returned.
func (r *AbiResolver) ResolveImplementation(ctx context.Context, address common.Address) common.Address {
	word, err := r.storage.GetStorageAt(ctx, address.Hex(), ImplementationSlot, "latest")
	if err != nil {
		r.logger.Sugar().Errorw("Failed retrieving data from implementation storage slot",
			zap.String("address", address.Hex()),
			zap.Error(err),
		)
		return NotAProxy
	}
	return extractAddress(word)
}

// extractAddress reads the address held in the low 20 bytes of a storage word.
func extractAddress(word string) common.Address {
	b := common.FromHex(word)
	if len(b) == 0 {
		return NotAProxy
	}
	return common.BytesToAddress(b)
}

// FetchAbi asks each source in turn and returns the first ABI found. When
// no source has an ABI the result is an empty ContractAbi, unless a source
// failed: the miss is then not conclusive and that error is returned so the
// fetch can be retried.
func (r *AbiResolver) FetchAbi(ctx context.Context, address common.Address) (*contractAbi.ContractAbi, error) {
	var lastErr error

	for _, source := range r.sources {
		abiJson, err := source.FetchAbi(ctx, address.Hex())
		if err != nil {
			r.logger.Sugar().Warnw("Failed to fetch abi from source",
				zap.String("source", source.Name()),
				zap.String("address", address.Hex()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if abiJson == "" {
			continue
		}

		a, err := contractAbi.ParseContractAbi(abiJson, r.logger)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse abi of %s from %s", address.Hex(), source.Name())
		}
		r.logger.Sugar().Debugw("Fetched abi",
			zap.String("source", source.Name()),
			zap.String("address", address.Hex()),
			zap.Int("entries", len(a.Entries)),
		)
		return a, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	r.logger.Sugar().Infow("No abi available for contract", zap.String("address", address.Hex()))
	return contractAbi.EmptyContractAbi(), nil
}

// BindContract fetches and parses the ABI of address, retrying failed
// attempts up to maxTrials times. An unavailable ABI is not a failure.
func (r *AbiResolver) BindContract(ctx context.Context, address common.Address, maxTrials int) (*Binding, error) {
	if maxTrials < 1 {
		maxTrials = 1
	}

	var lastErr error
	for trial := 1; trial <= maxTrials; trial++ {
		a, err := r.FetchAbi(ctx, address)
		if err == nil {
			return &Binding{
				Address:    address,
				Abi:        a,
				EventIndex: contractAbi.BuildEventIndex(a),
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		r.logger.Sugar().Warnw("Failed to bind contract",
			zap.String("address", address.Hex()),
			zap.Int("trial", trial),
			zap.Int("maxTrials", maxTrials),
			zap.Error(err),
		)
	}
	return nil, errors.Wrapf(ErrTrialsExhausted, "couldn't retrieve the abi of %s after %d trials: %v", address.Hex(), maxTrials, lastErr)
}

// Resolve follows a proxy to its implementation and binds the ABI found
// there, or the ABI of address itself when it is not a proxy.
func (r *AbiResolver) Resolve(ctx context.Context, address string) (*Resolution, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.Wrapf(ErrInvalidAddress, "'%s'", address)
	}
	query := common.HexToAddress(address)

	abiAddress := query
	implementation := r.ResolveImplementation(ctx, query)
	isProxy := implementation != NotAProxy && implementation != query
	if isProxy {
		r.logger.Sugar().Infow("Contract is a proxy",
			zap.String("address", query.Hex()),
			zap.String("implementation", implementation.Hex()),
		)
		abiAddress = implementation
	}

	binding, err := r.BindContract(ctx, abiAddress, r.config.MaxTrials)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		QueryAddress: query,
		AbiAddress:   abiAddress,
		IsProxy:      isProxy,
		Abi:          binding.Abi,
		EventIndex:   binding.EventIndex,
	}
	_ = r.metricsSink.Incr(metricsTypes.Metric_Incr_AbiResolved, []metricsTypes.MetricsLabel{
		{Name: "is_proxy", Value: strconv.FormatBool(res.IsProxy)},
		{Name: "has_abi", Value: strconv.FormatBool(res.HasAbi())},
	}, 1)
	return res, nil
}
