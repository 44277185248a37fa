package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	transfersPath   = "/api/v1/transfers"
	getTransferPath = "/api/v1/transfers/%s"

	defaultTimeout = 30 * time.Second
)

// Errors returned by the client
var (
	// ErrUnavailable wraps network failures and 5xx responses; the
	// transfer may or may not have reached the treasury, so callers
	// must retry with the same idempotency key
	ErrUnavailable = errors.New("treasury: service unavailable")
)

// RemoteError is a treasury-side rejection carrying the remote code
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("treasury: %s - %s", e.Code, e.Message)
	}
	return fmt.Sprintf("treasury: HTTP %d", e.StatusCode)
}

// IsPermanent reports whether retrying the same request can ever
// succeed. Validation rejections (4xx) are permanent; rate limiting
// and timeouts are not.
func (e *RemoteError) IsPermanent() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsPermanentError returns true when err is a permanent treasury rejection
func IsPermanentError(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.IsPermanent()
}

// Client talks to the external wallet/treasury microservice that holds
// the marketplace's crypto funds and executes payouts on-chain
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a treasury client
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// ExecuteTransfer submits a crypto transfer. The idempotency key makes
// the call safe to retry: the treasury returns the transfer created by
// an earlier attempt instead of sending twice.
func (c *Client) ExecuteTransfer(ctx context.Context, input TransferInput) (*TransferOutput, error) {
	if input.IdempotencyKey == "" {
		return nil, errors.New("treasury: idempotency key is required")
	}

	body := transferRequest{
		Reference:      input.PayoutID.String(),
		MerchantRef:    input.MerchantID.String(),
		Amount:         input.Amount.StringFixed(2),
		FiatCurrency:   input.FiatCurrency,
		CryptoCurrency: input.CryptoCurrency,
		WalletAddress:  input.WalletAddress,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("treasury: failed to marshal request: %w", err)
	}

	headers := map[string]string{"Idempotency-Key": input.IdempotencyKey}
	respBody, err := c.doRequest(ctx, http.MethodPost, transfersPath, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	return parseTransfer(respBody)
}

// GetTransfer retrieves the current state of a transfer
func (c *Client) GetTransfer(ctx context.Context, transferID string) (*TransferOutput, error) {
	if transferID == "" {
		return nil, errors.New("treasury: transfer ID is required")
	}

	path := fmt.Sprintf(getTransferPath, transferID)
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	return parseTransfer(respBody)
}

// doRequest performs an HTTP request against the treasury API
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	url := c.config.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("treasury: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("treasury: failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		remote := &RemoteError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			remote.Code = errResp.Code
			remote.Message = errResp.Message
		}
		return nil, remote
	}

	return respBody, nil
}

func parseTransfer(respBody []byte) (*TransferOutput, error) {
	var respData transferResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("treasury: failed to parse response: %w", err)
	}
	if respData.ID == "" {
		return nil, errors.New("treasury: response missing transfer ID")
	}

	output := &TransferOutput{
		TransferID: respData.ID,
		Status:     mapTransferStatus(respData.Status),
		TxHash:     respData.TxHash,
	}

	if respData.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, respData.SubmittedAt); err == nil {
			output.SubmittedAt = &t
		}
	}

	return output, nil
}
