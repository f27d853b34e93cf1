package contractActivityService

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/pkg/abiResolver"
	"github.com/Layr-Labs/contract-activity/pkg/abiSource"
	abiSourceEtherscan "github.com/Layr-Labs/contract-activity/pkg/abiSource/etherscan"
	"github.com/Layr-Labs/contract-activity/pkg/clients/ethereum"
	"github.com/Layr-Labs/contract-activity/pkg/clients/etherscan"
	"github.com/Layr-Labs/contract-activity/pkg/fetcher"
	"github.com/Layr-Labs/contract-activity/pkg/transactionLogParser"
	"github.com/Layr-Labs/contract-activity/pkg/transactionParser"
	"github.com/jarcoal/httpmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

const (
	testApiUrl  = "https://api.explorer.test/api"
	testNodeUrl = "http://node.test/v2/key/"

	contractAddress = "0xA0eC9E1542485700110688b3e6FbebBDf23cd901"

	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	approvalTopic = "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"
	fromTopic     = "0x0000000000000000000000000000000000000000000000000000000000000001"
	toTopic       = "0x0000000000000000000000000000000000000000000000000000000000000002"
	valueData     = "0x00000000000000000000000000000000000000000000000000000000000003e8"

	// transfer(0x...02, 1000)
	transferInput = "0xa9059cbb" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"00000000000000000000000000000000000000000000000000000000000003e8"
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

type explorerStub struct {
	abiStatus string
	txs       []map[string]interface{}
	logs      []map[string]interface{}
	failLists bool
}

func envelope(status string, result interface{}) string {
	body, _ := json.Marshal(map[string]interface{}{
		"status":  status,
		"message": "OK",
		"result":  result,
	})
	return string(body)
}

func (e *explorerStub) respond(req *http.Request) (*http.Response, error) {
	q := req.URL.Query()
	switch q.Get("action") {
	case "getabi":
		if e.abiStatus != "1" {
			return httpmock.NewStringResponse(200, envelope("0", "Contract source code not verified")), nil
		}
		return httpmock.NewStringResponse(200, envelope("1", erc20Abi)), nil
	case "txlist":
		if e.failLists {
			return httpmock.NewStringResponse(502, "bad gateway"), nil
		}
		return httpmock.NewStringResponse(200, envelope("1", e.txs)), nil
	case "getLogs":
		if e.failLists {
			return httpmock.NewStringResponse(502, "bad gateway"), nil
		}
		return httpmock.NewStringResponse(200, envelope("1", e.logs)), nil
	}
	return httpmock.NewStringResponse(400, "unknown action"), nil
}

func nodeResponder(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	switch {
	case strings.Contains(string(body), "eth_blockNumber"):
		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":"0x64"}`), nil
	case strings.Contains(string(body), "eth_getStorageAt"):
		return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"result":"0x0000000000000000000000000000000000000000000000000000000000000000"}`), nil
	}
	return httpmock.NewStringResponse(200, `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`), nil
}

func setup(t *testing.T, stub *explorerStub) (*ContractTransactionsService, *ContractLogsService) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	httpClient := &http.Client{Transport: httpmock.DefaultTransport}

	httpmock.Reset()
	httpmock.RegisterResponder("POST", testApiUrl, stub.respond)
	httpmock.RegisterResponder("POST", testNodeUrl, nodeResponder)

	node := ethereum.NewClient(&ethereum.EthereumClientConfig{BaseUrl: testNodeUrl}, l)
	node.SetHttpClient(httpClient)

	explorer := etherscan.NewEtherscanClient(httpClient, l, &etherscan.EtherscanClientConfig{ApiUrl: testApiUrl, ApiKey: "test-key"})

	resolver := abiResolver.NewAbiResolver(node, []abiSource.AbiSource{abiSourceEtherscan.NewEtherscan(explorer, l)}, &abiResolver.AbiResolverConfig{MaxTrials: 2}, nil, l)
	pf := fetcher.NewFetcher(explorer, &fetcher.FetcherConfig{MaxAttempts: 1}, nil, l)

	txs := NewContractTransactionsService(node, resolver, pf, transactionParser.NewTransactionParser(l), nil, l)
	logs := NewContractLogsService(node, resolver, pf, transactionLogParser.NewTransactionLogParser(l), nil, l)
	return txs, logs
}

func Test_FetchContractLogs(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("Should decode and normalize logs", func(t *testing.T) {
		stub := &explorerStub{
			abiStatus: "1",
			logs: []map[string]interface{}{
				{
					"address":          strings.ToLower(contractAddress),
					"topics":           []string{transferTopic, fromTopic, toTopic},
					"data":             valueData,
					"blockNumber":      "0x10",
					"timeStamp":        "0x5f5e1000",
					"gasPrice":         "0x3b9aca00",
					"gasUsed":          "0xb411",
					"logIndex":         "0x",
					"transactionHash":  "0xaaa",
					"transactionIndex": "0x1",
				},
				{
					"address":          strings.ToLower(contractAddress),
					"topics":           []string{"0x000000000000000000000000000000000000000000000000000000000000dead"},
					"data":             "0x",
					"blockNumber":      "0x11",
					"timeStamp":        "0x5f5e1001",
					"gasPrice":         "0x3b9aca00",
					"gasUsed":          "0xb411",
					"logIndex":         "0x2",
					"transactionHash":  "0xbbb",
					"transactionIndex": "0x2",
				},
			},
		}
		_, svc := setup(t, stub)

		tbl, err := svc.FetchContractLogs(context.Background(), contractAddress, 0, 0)
		assert.Nil(t, err)
		assert.Equal(t, 2, tbl.Len())

		blocks, _ := tbl.Column("blockNumber")
		assert.Equal(t, []interface{}{int64(16), int64(17)}, blocks.Values)

		ts, _ := tbl.Column("timeStamp")
		assert.Equal(t, time.Unix(0x5f5e1000, 0).UTC(), ts.Values[0])

		logIndex, _ := tbl.Column("logIndex")
		assert.Nil(t, logIndex.Values[0])

		decoded, ok := tbl.Column("decoded_data.0")
		assert.True(t, ok)
		assert.Equal(t, `{"from":"0x0000000000000000000000000000000000000001","to":"0x0000000000000000000000000000000000000002","value":"1000","name":"Transfer"}`, decoded.Values[0])
		assert.Nil(t, decoded.Values[1])

		_, ok = tbl.Column("decoded_data.1")
		assert.False(t, ok)
	})
	t.Run("Should keep raw logs when the contract has no abi", func(t *testing.T) {
		stub := &explorerStub{
			abiStatus: "0",
			logs: []map[string]interface{}{
				{"topics": []string{approvalTopic}, "data": "0x", "blockNumber": "0x10", "timeStamp": "0x5f5e1000"},
			},
		}
		_, svc := setup(t, stub)

		tbl, err := svc.FetchContractLogs(context.Background(), contractAddress, 0, 100)
		assert.Nil(t, err)
		assert.Equal(t, 1, tbl.Len())

		decoded, ok := tbl.Column("decoded_data")
		assert.True(t, ok)
		assert.True(t, decoded.IsAllNull())
	})
	t.Run("Should return a retrieval error when pages keep failing", func(t *testing.T) {
		_, svc := setup(t, &explorerStub{abiStatus: "1", failLists: true})

		_, err := svc.FetchContractLogs(context.Background(), contractAddress, 5, 100)
		var retrievalErr *RetrievalError
		assert.True(t, errors.As(err, &retrievalErr))
		assert.Equal(t, Kind_Logs, retrievalErr.Kind)
		assert.Equal(t, uint64(5), retrievalErr.StartBlock)
		assert.Equal(t, uint64(100), retrievalErr.EndBlock)
		assert.True(t, errors.Is(err, fetcher.ErrPageRetriesExhausted))
		assert.Equal(t, fmt.Sprintf("Couldn't retrieve logs for %s between block #5 and #100", contractAddress), strings.SplitN(err.Error(), ":", 2)[0])
	})
	t.Run("Should reject a start block after the end block", func(t *testing.T) {
		_, svc := setup(t, &explorerStub{abiStatus: "1"})

		_, err := svc.FetchContractLogs(context.Background(), contractAddress, 200, 100)
		var retrievalErr *RetrievalError
		assert.True(t, errors.As(err, &retrievalErr))
	})
}

func Test_FetchContractTransactions(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("Should decode inputs and keep undecodable transactions", func(t *testing.T) {
		stub := &explorerStub{
			abiStatus: "1",
			txs: []map[string]interface{}{
				{"hash": "0xaaa", "blockNumber": "16", "timeStamp": "1600000000", "value": "0", "isError": "0", "input": transferInput},
				{"hash": "0xbbb", "blockNumber": "17", "timeStamp": "1600000001", "value": "100000000000000000000", "isError": "0", "input": "0x"},
			},
		}
		svc, _ := setup(t, stub)

		tbl, err := svc.FetchContractTransactions(context.Background(), contractAddress, 0, 0)
		assert.Nil(t, err)
		assert.Equal(t, 2, tbl.Len())

		names, _ := tbl.Column("function_name")
		assert.Equal(t, []interface{}{"transfer", nil}, names.Values)

		params, _ := tbl.Column("function_parameters")
		assert.Equal(t, `{"to":"0x0000000000000000000000000000000000000002","value":"1000"}`, params.Values[0])
		assert.Nil(t, params.Values[1])

		blocks, _ := tbl.Column("blockNumber")
		assert.Equal(t, []interface{}{int64(16), int64(17)}, blocks.Values)

		value, _ := tbl.Column("value")
		assert.Equal(t, "100000000000000000000", fmt.Sprint(value.Values[1]))
	})
	t.Run("Should return a retrieval error for an invalid address", func(t *testing.T) {
		svc, _ := setup(t, &explorerStub{abiStatus: "1"})

		_, err := svc.FetchContractTransactions(context.Background(), "not-an-address", 0, 100)
		var retrievalErr *RetrievalError
		assert.True(t, errors.As(err, &retrievalErr))
		assert.True(t, errors.Is(err, abiResolver.ErrInvalidAddress))
	})
}
