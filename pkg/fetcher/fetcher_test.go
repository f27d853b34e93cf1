package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	"github.com/Layr-Labs/contract-activity/pkg/clients/etherscan"
	"github.com/jarcoal/httpmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testApiUrl = "https://api.explorer.test/api"

const testAddress = "0xA0eC9E1542485700110688b3e6FbebBDf23cd901"

func setup(t *testing.T) (*Fetcher, *[]time.Duration) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	client := etherscan.NewEtherscanClient(&http.Client{Transport: httpmock.DefaultTransport}, l, &etherscan.EtherscanClientConfig{
		ApiUrl: testApiUrl,
		ApiKey: "test-key",
	})

	f := NewFetcher(client, &FetcherConfig{MaxAttempts: 3}, nil, l)
	slept := make([]time.Duration, 0)
	f.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func txJson(hash string, block int) string {
	return fmt.Sprintf(`{"hash":"%s","blockNumber":"%d","input":"0x"}`, hash, block)
}

func okPage(records ...string) string {
	body := ""
	for i, r := range records {
		if i > 0 {
			body += ","
		}
		body += r
	}
	return fmt.Sprintf(`{"status":"1","message":"OK","result":[%s]}`, body)
}

func Test_FetchAll(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	f, slept := setup(t)
	smallPages := TransactionProtocol
	smallPages.PageSize = 2

	t.Run("Should walk pages and keep boundary duplicates", func(t *testing.T) {
		httpmock.Reset()
		starts := make([]string, 0)
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			starts = append(starts, q.Get("startblock"))
			assert.Equal(t, "txlist", q.Get("action"))
			assert.Equal(t, "2", q.Get("offset"))
			assert.Equal(t, "asc", q.Get("sort"))
			assert.Equal(t, "test-key", q.Get("apikey"))

			switch q.Get("startblock") {
			case "0":
				return httpmock.NewStringResponse(200, okPage(txJson("0xa", 10), txJson("0xb", 12))), nil
			case "12":
				return httpmock.NewStringResponse(200, okPage(txJson("0xb", 12))), nil
			}
			return httpmock.NewStringResponse(200, okPage()), nil
		})

		records, err := f.FetchAll(context.Background(), smallPages, testAddress, 0, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, []string{"0", "12"}, starts)
		assert.Equal(t, "0xa", records[0].String("hash"))
		assert.Equal(t, "0xb", records[2].String("hash"))
	})
	t.Run("Should stop on an empty page", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, `{"status":"0","message":"No transactions found","result":[]}`))

		records, err := f.FetchAll(context.Background(), TransactionProtocol, testAddress, 0, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 0)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
	t.Run("Should stop when a full page reaches the end block", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, okPage(txJson("0xa", 50), txJson("0xb", 100))))

		records, err := f.FetchAll(context.Background(), smallPages, testAddress, 0, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
	})
	t.Run("Should skip a block when a full page cannot advance", func(t *testing.T) {
		httpmock.Reset()
		starts := make([]string, 0)
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			start := req.URL.Query().Get("startblock")
			starts = append(starts, start)
			if start == "5" {
				return httpmock.NewStringResponse(200, okPage(txJson("0xa", 5), txJson("0xb", 5))), nil
			}
			return httpmock.NewStringResponse(200, okPage(txJson("0xc", 6))), nil
		})

		records, err := f.FetchAll(context.Background(), smallPages, testAddress, 5, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, []string{"5", "6"}, starts)
	})
	t.Run("Should retry a failed page with the same cursor", func(t *testing.T) {
		httpmock.Reset()
		*slept = (*slept)[:0]
		calls := 0
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			calls++
			assert.Equal(t, "0x0", req.URL.Query().Get("fromBlock"))
			assert.Equal(t, "0x64", req.URL.Query().Get("toBlock"))
			if calls == 1 {
				return httpmock.NewStringResponse(200, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`), nil
			}
			return httpmock.NewStringResponse(200, okPage(`{"blockNumber":"0x5","topics":[],"data":"0x"}`)), nil
		})

		records, err := f.FetchAll(context.Background(), LogProtocol, testAddress, 0, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, 2, calls)
		assert.Equal(t, []time.Duration{3 * time.Second}, *slept)
	})
	t.Run("Should retry records without a block number", func(t *testing.T) {
		httpmock.Reset()
		calls := 0
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(200, okPage(`{"hash":"0xa","blockNumber":null}`)), nil
			}
			return httpmock.NewStringResponse(200, okPage(txJson("0xa", 1))), nil
		})

		records, err := f.FetchAll(context.Background(), TransactionProtocol, testAddress, 0, 100)
		assert.Nil(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, 2, calls)
	})
	t.Run("Should give up after the configured attempts", func(t *testing.T) {
		httpmock.Reset()
		*slept = (*slept)[:0]
		httpmock.RegisterResponder("POST", testApiUrl, httpmock.NewStringResponder(502, "bad gateway"))

		_, err := f.FetchAll(context.Background(), TransactionProtocol, testAddress, 0, 100)
		assert.True(t, errors.Is(err, ErrPageRetriesExhausted))
		assert.Equal(t, 3, httpmock.GetTotalCallCount())
		assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, *slept)
	})
	t.Run("Should stop retrying when the context is cancelled", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl, httpmock.NewStringResponder(502, "bad gateway"))

		ctx, cancel := context.WithCancel(context.Background())
		f.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return sleepContext(ctx, d)
		}
		_, err := f.FetchAll(ctx, TransactionProtocol, testAddress, 0, 100)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func Test_RetryPolicy(t *testing.T) {
	l, _ := zap.NewDevelopment()
	f := NewFetcher(nil, &FetcherConfig{MaxBackoff: 20 * time.Second}, nil, l)

	policy := f.RetryPolicyFor(LogProtocol)
	assert.Equal(t, DefaultMaxAttempts, policy.MaxAttempts)
	assert.Equal(t, 3*time.Second, policy.Backoff(1))
	assert.Equal(t, 6*time.Second, policy.Backoff(2))
	assert.Equal(t, 12*time.Second, policy.Backoff(3))
	assert.Equal(t, 20*time.Second, policy.Backoff(4))
}

func Test_Protocol(t *testing.T) {
	assert.Equal(t, "0x1f", LogProtocol.FormatBlock(31))
	assert.Equal(t, "31", TransactionProtocol.FormatBlock(31))

	n, err := LogProtocol.ParseBlock("0x1f")
	assert.Nil(t, err)
	assert.Equal(t, uint64(31), n)

	n, err = TransactionProtocol.ParseBlock("31")
	assert.Nil(t, err)
	assert.Equal(t, uint64(31), n)

	_, err = TransactionProtocol.ParseBlock(nil)
	assert.NotNil(t, err)
	_, err = LogProtocol.ParseBlock("0x")
	assert.NotNil(t, err)
}
