package ethereum

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint          `json:"id"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type RPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	Result  *json.RawMessage `json:"result"`
	Error   *RPCError        `json:"error"`
	ID      *uint            `json:"id"`
}

type RPCMethod[T any] struct {
	Name           string
	ResponseParser func(res *json.RawMessage) (T, error)
}

func parseHexString(res *json.RawMessage) (string, error) {
	if res == nil {
		return "", fmt.Errorf("empty result")
	}
	var s string
	if err := json.Unmarshal(*res, &s); err != nil {
		return "", err
	}
	return strings.ToLower(s), nil
}

var (
	RPCMethod_getStorageAt = &RPCMethod[string]{
		Name:           "eth_getStorageAt",
		ResponseParser: parseHexString,
	}
	RPCMethod_getCode = &RPCMethod[string]{
		Name:           "eth_getCode",
		ResponseParser: parseHexString,
	}
	RPCMethod_blockNumber = &RPCMethod[uint64]{
		Name: "eth_blockNumber",
		ResponseParser: func(res *json.RawMessage) (uint64, error) {
			s, err := parseHexString(res)
			if err != nil {
				return 0, err
			}
			return hexutil.DecodeUint64(s)
		},
	}
)

func newRequest(method string, id uint, params ...interface{}) *RPCRequest {
	return &RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

func GetStorageAtRequest(address string, slot string, block string, id uint) *RPCRequest {
	return newRequest(RPCMethod_getStorageAt.Name, id, address, slot, block)
}

func GetCodeRequest(address string, id uint) *RPCRequest {
	return newRequest(RPCMethod_getCode.Name, id, address, "latest")
}

func GetBlockNumberRequest(id uint) *RPCRequest {
	return newRequest(RPCMethod_blockNumber.Name, id)
}
