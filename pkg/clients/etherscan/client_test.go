package etherscan

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

const testApiUrl = "https://explorer.test/api"

func setup(t *testing.T) *EtherscanClient {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	client := NewEtherscanClient(DefaultHttpClient(), l, &EtherscanClientConfig{
		ApiUrl: testApiUrl,
		ApiKey: "test-key",
	})
	client.SetHttpClient(&http.Client{Transport: httpmock.DefaultTransport})
	return client
}

func Test_EtherscanClient(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	client := setup(t)

	t.Run("Should send params as query and include the api key", func(t *testing.T) {
		httpmock.Reset()
		var query url.Values
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			query = req.URL.Query()
			return httpmock.NewStringResponse(200, `{"status":"1","message":"OK","result":"[]"}`), nil
		})

		res, err := client.GetContractAbi(context.Background(), "0xabc")
		assert.Nil(t, err)
		assert.True(t, res.IsOk())
		assert.Equal(t, "contract", query.Get("module"))
		assert.Equal(t, "getabi", query.Get("action"))
		assert.Equal(t, "0xabc", query.Get("address"))
		assert.Equal(t, "test-key", query.Get("apikey"))

		abiJson, ok := res.ResultString()
		assert.True(t, ok)
		assert.Equal(t, "[]", abiJson)
	})
	t.Run("Should list records", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, `{"status":"1","message":"OK","result":[{"blockNumber":"10","hash":"0x1"},{"blockNumber":"12","hash":"0x2"}]}`))

		records, err := client.ListRecords(context.Background(), url.Values{"module": {"account"}, "action": {"txlist"}})
		assert.Nil(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, "12", records[1]["blockNumber"])
	})
	t.Run("Should treat no records found as an empty page", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, `{"status":"0","message":"No transactions found","result":[]}`))

		records, err := client.ListRecords(context.Background(), url.Values{})
		assert.Nil(t, err)
		assert.Len(t, records, 0)
	})
	t.Run("Should return an explorer error for string results", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`))

		_, err := client.ListRecords(context.Background(), url.Values{})
		var explorerErr *ExplorerError
		assert.True(t, errors.As(err, &explorerErr))
		assert.Equal(t, "Max rate limit reached", explorerErr.Result)
	})
	t.Run("Should fail on non 200 responses", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl, httpmock.NewStringResponder(503, `unavailable`))

		_, err := client.ListRecords(context.Background(), url.Values{})
		assert.NotNil(t, err)
	})
}

func Test_RateLimitedClient(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	client := NewEtherscanClient(&http.Client{Transport: httpmock.DefaultTransport}, l, &EtherscanClientConfig{
		ApiUrl:            testApiUrl,
		RequestsPerSecond: 1000,
	})
	assert.NotNil(t, client.limiter)

	httpmock.RegisterResponder("POST", testApiUrl,
		httpmock.NewStringResponder(200, `{"status":"1","message":"OK","result":[]}`))

	for i := 0; i < 3; i++ {
		_, err := client.ListRecords(context.Background(), url.Values{})
		assert.Nil(t, err)
	}
	assert.Equal(t, 3, httpmock.GetTotalCallCount())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Call(ctx, url.Values{})
	assert.NotNil(t, err)
}
