package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultTimeout = 30 * time.Second

type EtherscanClientConfig struct {
	ApiUrl string
	ApiKey string
	// RequestsPerSecond throttles every request made by this client. Zero disables it.
	RequestsPerSecond float64
}

type EtherscanClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	config     *EtherscanClientConfig
	limiter    *rate.Limiter
}

type EtherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (r *EtherscanResponse) IsOk() bool {
	return r.Status == "1"
}

// ResultString returns the result when the explorer sent a plain string,
// which is how both ABIs and error messages are delivered.
func (r *EtherscanResponse) ResultString() (string, bool) {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return "", false
	}
	return s, true
}

// ExplorerError is an application level failure reported in the response
// envelope, e.g. "Max rate limit reached".
type ExplorerError struct {
	Status  string
	Message string
	Result  string
}

func (e *ExplorerError) Error() string {
	return fmt.Sprintf("explorer returned status '%s' (%s): %s", e.Status, e.Message, e.Result)
}

func DefaultHttpClient() *http.Client {
	return NewHttpClient(defaultTimeout)
}

func NewHttpClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

func NewEtherscanClient(hc *http.Client, l *zap.Logger, cfg *EtherscanClientConfig) *EtherscanClient {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &EtherscanClient{
		httpClient: hc,
		logger:     l,
		config:     cfg,
		limiter:    limiter,
	}
}

func (ec *EtherscanClient) SetHttpClient(hc *http.Client) {
	ec.httpClient = hc
}

// Call POSTs to the explorer with params encoded in the url query, the way
// the etherscan family of APIs expects them.
func (ec *EtherscanClient) Call(ctx context.Context, params url.Values) (*EtherscanResponse, error) {
	if ec.limiter != nil {
		if err := ec.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.config.ApiUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, values := range params {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	ec.logger.Sugar().Debugw("Making explorer request",
		zap.String("module", q.Get("module")),
		zap.String("action", q.Get("action")),
		zap.String("address", q.Get("address")),
	)
	q.Set("apikey", ec.config.ApiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("accept", "application/json")

	resp, err := ec.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var res EtherscanResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &res, nil
}

func (ec *EtherscanClient) GetContractAbi(ctx context.Context, address string) (*EtherscanResponse, error) {
	return ec.Call(ctx, url.Values{
		"address": {address},
		"module":  {"contract"},
		"action":  {"getabi"},
	})
}

// ListRecords requests one page of a list endpoint (txlist, getLogs) and
// returns the raw JSON objects. "No records" style answers yield an empty
// page; any other string result is an *ExplorerError.
func (ec *EtherscanClient) ListRecords(ctx context.Context, params url.Values) ([]map[string]interface{}, error) {
	res, err := ec.Call(ctx, params)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(res.Result))
	if trimmed == "" || trimmed == "null" {
		return []map[string]interface{}{}, nil
	}

	if s, ok := res.ResultString(); ok {
		if !res.IsOk() && isNoRecordsMessage(res.Message, s) {
			return []map[string]interface{}{}, nil
		}
		return nil, &ExplorerError{Status: res.Status, Message: res.Message, Result: s}
	}

	records := make([]map[string]interface{}, 0)
	if err := json.Unmarshal(res.Result, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	return records, nil
}

func isNoRecordsMessage(values ...string) bool {
	for _, v := range values {
		lower := strings.ToLower(v)
		if strings.HasPrefix(lower, "no transactions found") || strings.HasPrefix(lower, "no records found") {
			return true
		}
	}
	return false
}
