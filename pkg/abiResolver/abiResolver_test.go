package abiResolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/pkg/abiSource"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const erc20Abi = `[
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"spender","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const (
	proxyAddress          = "0xA0eC9E1542485700110688b3e6FbebBDf23cd901"
	implementationAddress = "0x00000000000000000000000000000000000000aa"
)

type stubStorage struct {
	words map[string]string
	err   error
	calls []string
}

func (s *stubStorage) GetStorageAt(ctx context.Context, address string, slot string, block string) (string, error) {
	s.calls = append(s.calls, slot)
	if s.err != nil {
		return "", s.err
	}
	if w, ok := s.words[address]; ok {
		return w, nil
	}
	return "0x0000000000000000000000000000000000000000000000000000000000000000", nil
}

type stubSource struct {
	name      string
	abis      map[string]string
	errs      []error
	requested []string
}

func (s *stubSource) Name() string {
	return s.name
}

func (s *stubSource) FetchAbi(ctx context.Context, address string) (string, error) {
	s.requested = append(s.requested, address)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return s.abis[address], nil
}

func setup(t *testing.T, storage *stubStorage, sources ...abiSource.AbiSource) *AbiResolver {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)
	return NewAbiResolver(storage, sources, &AbiResolverConfig{MaxTrials: 3}, nil, l)
}

func implementationWord(address string) string {
	return fmt.Sprintf("0x000000000000000000000000%s", address[2:])
}

func Test_ResolveImplementation(t *testing.T) {
	t.Run("Should return the implementation of a proxy", func(t *testing.T) {
		storage := &stubStorage{words: map[string]string{
			common.HexToAddress(proxyAddress).Hex(): implementationWord(implementationAddress),
		}}
		r := setup(t, storage)

		impl := r.ResolveImplementation(context.Background(), common.HexToAddress(proxyAddress))
		assert.Equal(t, common.HexToAddress(implementationAddress), impl)
		assert.Equal(t, []string{ImplementationSlot}, storage.calls)
	})
	t.Run("Should return NotAProxy for an empty slot", func(t *testing.T) {
		r := setup(t, &stubStorage{})
		assert.Equal(t, NotAProxy, r.ResolveImplementation(context.Background(), common.HexToAddress(proxyAddress)))
	})
	t.Run("Should return NotAProxy when the read fails", func(t *testing.T) {
		r := setup(t, &stubStorage{err: errors.New("connection refused")})
		assert.Equal(t, NotAProxy, r.ResolveImplementation(context.Background(), common.HexToAddress(proxyAddress)))
	})
}

func Test_Resolve(t *testing.T) {
	proxy := common.HexToAddress(proxyAddress)
	implementation := common.HexToAddress(implementationAddress)

	t.Run("Should load the abi of the implementation", func(t *testing.T) {
		storage := &stubStorage{words: map[string]string{proxy.Hex(): implementationWord(implementationAddress)}}
		source := &stubSource{name: "etherscan", abis: map[string]string{implementation.Hex(): erc20Abi}}
		r := setup(t, storage, source)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.True(t, res.IsProxy)
		assert.Equal(t, proxy, res.QueryAddress)
		assert.Equal(t, implementation, res.AbiAddress)
		assert.True(t, res.HasAbi())
		assert.Len(t, res.EventIndex, 2)
		assert.Equal(t, []string{implementation.Hex()}, source.requested)
	})
	t.Run("Should fall back to the original address when not a proxy", func(t *testing.T) {
		source := &stubSource{name: "etherscan", abis: map[string]string{proxy.Hex(): erc20Abi}}
		r := setup(t, &stubStorage{}, source)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.False(t, res.IsProxy)
		assert.Equal(t, proxy, res.AbiAddress)
		assert.Equal(t, []string{proxy.Hex()}, source.requested)
	})
	t.Run("Should resolve to an empty abi when no source has one", func(t *testing.T) {
		source := &stubSource{name: "etherscan"}
		r := setup(t, &stubStorage{}, source)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.False(t, res.HasAbi())
		assert.Len(t, res.EventIndex, 0)
		assert.Len(t, source.requested, 1)
	})
	t.Run("Should use the next source on a miss", func(t *testing.T) {
		first := &stubSource{name: "etherscan"}
		second := &stubSource{name: "ipfs", abis: map[string]string{proxy.Hex(): erc20Abi}}
		r := setup(t, &stubStorage{}, first, second)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.True(t, res.HasAbi())
	})
	t.Run("Should retry failed fetches", func(t *testing.T) {
		source := &stubSource{
			name: "etherscan",
			abis: map[string]string{proxy.Hex(): erc20Abi},
			errs: []error{errors.New("timeout"), errors.New("timeout")},
		}
		r := setup(t, &stubStorage{}, source)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.True(t, res.HasAbi())
		assert.Len(t, source.requested, 3)
	})
	t.Run("Should fail once the trials are exhausted", func(t *testing.T) {
		source := &stubSource{
			name: "etherscan",
			errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")},
		}
		r := setup(t, &stubStorage{}, source)

		_, err := r.Resolve(context.Background(), proxyAddress)
		assert.True(t, errors.Is(err, ErrTrialsExhausted))
		assert.Len(t, source.requested, 3)
	})
	t.Run("Should retry when a source failed and the others have no abi", func(t *testing.T) {
		explorer := &stubSource{
			name: "etherscan",
			abis: map[string]string{proxy.Hex(): erc20Abi},
			errs: []error{errors.New("connection reset")},
		}
		gateway := &stubSource{name: "ipfs"}
		r := setup(t, &stubStorage{}, explorer, gateway)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.True(t, res.HasAbi())
		assert.Len(t, explorer.requested, 2)
		assert.Len(t, gateway.requested, 1)
	})
	t.Run("Should return the abi of a later source even when an earlier one failed", func(t *testing.T) {
		explorer := &stubSource{name: "etherscan", errs: []error{errors.New("connection reset")}}
		gateway := &stubSource{name: "ipfs", abis: map[string]string{proxy.Hex(): erc20Abi}}
		r := setup(t, &stubStorage{}, explorer, gateway)

		res, err := r.Resolve(context.Background(), proxyAddress)
		assert.Nil(t, err)
		assert.True(t, res.HasAbi())
		assert.Len(t, explorer.requested, 1)
	})
	t.Run("Should retry abis that cannot be parsed", func(t *testing.T) {
		source := &stubSource{name: "etherscan", abis: map[string]string{proxy.Hex(): "not json"}}
		r := setup(t, &stubStorage{}, source)

		_, err := r.Resolve(context.Background(), proxyAddress)
		assert.True(t, errors.Is(err, ErrTrialsExhausted))
	})
	t.Run("Should reject invalid addresses", func(t *testing.T) {
		r := setup(t, &stubStorage{})
		_, err := r.Resolve(context.Background(), "0x1234")
		assert.True(t, errors.Is(err, ErrInvalidAddress))
	})
}
