package etherscan

import (
	"context"
	"net/http"
	"testing"

	"github.com/Layr-Labs/contract-activity/internal/logger"
	etherscanClient "github.com/Layr-Labs/contract-activity/pkg/clients/etherscan"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

const testApiUrl = "https://api.explorer.test/api"

func Test_Etherscan(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	assert.Nil(t, err)

	client := etherscanClient.NewEtherscanClient(&http.Client{Transport: httpmock.DefaultTransport}, l, &etherscanClient.EtherscanClientConfig{
		ApiUrl: testApiUrl,
		ApiKey: "test-key",
	})
	source := NewEtherscan(client, l)

	t.Run("Should return the abi on status 1", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "getabi", req.URL.Query().Get("action"))
			assert.Equal(t, "contract", req.URL.Query().Get("module"))
			return httpmock.NewStringResponse(200, `{"status":"1","message":"OK","result":"[{\"type\":\"fallback\"}]"}`), nil
		})

		abi, err := source.FetchAbi(context.Background(), "0x1")
		assert.Nil(t, err)
		assert.Equal(t, `[{"type":"fallback"}]`, abi)
	})
	t.Run("Should treat status 0 as no abi", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl,
			httpmock.NewStringResponder(200, `{"status":"0","message":"NOTOK","result":"Contract source code not verified"}`))

		abi, err := source.FetchAbi(context.Background(), "0x1")
		assert.Nil(t, err)
		assert.Equal(t, "", abi)
	})
	t.Run("Should return transport errors", func(t *testing.T) {
		httpmock.Reset()
		httpmock.RegisterResponder("POST", testApiUrl, httpmock.NewStringResponder(500, "oops"))

		_, err := source.FetchAbi(context.Background(), "0x1")
		assert.NotNil(t, err)
	})
}
