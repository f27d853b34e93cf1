package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type EthereumClientConfig struct {
	BaseUrl string
	Timeout time.Duration
}

type Client struct {
	BaseUrl    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseUrl: cfg.BaseUrl,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: l,
	}
}

// SetHttpClient swaps the transport, mainly for tests.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// Call performs a single JSON-RPC request. Transport failures are returned as
// *ConnectivityError so callers can tell them apart from node-side errors.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	body, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseUrl, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Sugar().Debugw("Making RPC request", zap.String("method", rpcRequest.Method))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Uri: c.BaseUrl, Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &ConnectivityError{Uri: c.BaseUrl, Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return nil, &ConnectivityError{
			Uri: c.BaseUrl,
			Err: fmt.Errorf("rpc request failed with status %d: %s", res.StatusCode, string(resBody)),
		}
	}

	rpcResponse := &RPCResponse{}
	if err := json.Unmarshal(resBody, rpcResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rpc response: %w", err)
	}
	if rpcResponse.Error != nil {
		return nil, rpcResponse.Error
	}
	return rpcResponse, nil
}

// GetStorageAt reads a 32 byte storage word, returned as a lower-cased hex string.
func (c *Client) GetStorageAt(ctx context.Context, address string, slot string, block string) (string, error) {
	if block == "" {
		block = "latest"
	}
	res, err := c.Call(ctx, GetStorageAtRequest(address, slot, block, 1))
	if err != nil {
		return "", err
	}
	return RPCMethod_getStorageAt.ResponseParser(res.Result)
}

func (c *Client) GetCode(ctx context.Context, address string) (string, error) {
	res, err := c.Call(ctx, GetCodeRequest(address, 1))
	if err != nil {
		return "", err
	}
	return RPCMethod_getCode.ResponseParser(res.Result)
}

func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetBlockNumberRequest(1))
	if err != nil {
		return 0, err
	}
	return RPCMethod_blockNumber.ResponseParser(res.Result)
}

// Ping verifies the node answers and returns the current block height.
func (c *Client) Ping(ctx context.Context) (uint64, error) {
	blockNumber, err := c.GetBlockNumber(ctx)
	if err != nil {
		c.logger.Sugar().Errorw("Failed to connect to node", zap.String("uri", c.BaseUrl), zap.Error(err))
		return 0, err
	}
	c.logger.Sugar().Infow("Connected to node", zap.Uint64("blockNumber", blockNumber))
	return blockNumber, nil
}

// HashBytecode returns the keccak256 hash of the hex encoded bytecode.
func HashBytecode(bytecode string) string {
	return crypto.Keccak256Hash([]byte(bytecode)).Hex()
}
