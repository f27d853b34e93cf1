// Package ipfs loads contract ABIs from the solidity metadata that the
// compiler embeds, as an IPFS hash, at the end of the runtime bytecode.
package ipfs

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Layr-Labs/contract-activity/pkg/clients/ethereum"
	"github.com/btcsuite/btcutil/base58"
	"go.uber.org/zap"
)

// CBOR encoding of {"ipfs": <34 byte multihash>}
const metadataMarker = "a264697066735822"

const multihashHexLength = 68

type Ipfs struct {
	ethereumClient *ethereum.Client
	httpClient     *http.Client
	logger         *zap.Logger
	gateway        string
}

type metadataResponse struct {
	Output struct {
		ABI json.RawMessage `json:"abi"`
	} `json:"output"`
}

func DefaultHttpClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// NewIpfs creates an IPFS source reading from gateway, e.g. "https://ipfs.io/ipfs/".
func NewIpfs(e *ethereum.Client, hc *http.Client, gateway string, l *zap.Logger) *Ipfs {
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return &Ipfs{
		ethereumClient: e,
		httpClient:     hc,
		logger:         l,
		gateway:        gateway,
	}
}

func (i *Ipfs) Name() string {
	return "ipfs"
}

// GetMetadataURIFromBytecode finds the metadata multihash in the bytecode
// and returns its gateway url.
func (i *Ipfs) GetMetadataURIFromBytecode(bytecode string) (string, error) {
	index := strings.LastIndex(strings.ToLower(bytecode), metadataMarker)
	if index == -1 {
		return "", ErrNoMetadata
	}

	startIndex := index + len(metadataMarker)
	if len(bytecode) < startIndex+multihashHexLength {
		return "", fmt.Errorf("bytecode too short to contain complete IPFS hash")
	}

	bytes, err := hex.DecodeString(bytecode[startIndex : startIndex+multihashHexLength])
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	return fmt.Sprintf("%s%s", i.gateway, base58.Encode(bytes)), nil
}

// FetchAbi reads the contract code and loads output.abi from its metadata.
// Contracts compiled without metadata have no ABI here.
func (i *Ipfs) FetchAbi(ctx context.Context, address string) (string, error) {
	bytecode, err := i.ethereumClient.GetCode(ctx, address)
	if err != nil {
		i.logger.Sugar().Errorw("Failed to get the contract bytecode",
			zap.Error(err),
			zap.String("address", address),
		)
		return "", err
	}

	i.logger.Sugar().Debugw("Fetched the contract bytecode",
		zap.String("address", address),
		zap.String("bytecodeHash", ethereum.HashBytecode(bytecode)),
	)

	uri, err := i.GetMetadataURIFromBytecode(bytecode)
	if err == ErrNoMetadata {
		i.logger.Sugar().Debugw("Contract bytecode has no metadata hash", zap.String("address", address))
		return "", nil
	}
	if err != nil {
		i.logger.Sugar().Errorw("Failed to decode bytecode to IPFS",
			zap.Error(err),
			zap.String("address", address),
		)
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	// the metadata was never pinned; asking again will not help
	if resp.StatusCode == http.StatusNotFound {
		i.logger.Sugar().Debugw("Contract metadata not found on gateway",
			zap.String("address", address),
			zap.String("uri", uri),
		)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status: %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metadata: %w", err)
	}

	var result metadataResponse
	if err := json.Unmarshal(content, &result); err != nil {
		return "", fmt.Errorf("failed to parse metadata: %w", err)
	}
	if len(result.Output.ABI) == 0 || string(result.Output.ABI) == "null" {
		return "", nil
	}
	return string(result.Output.ABI), nil
}
