package kakaopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Client talks to the KakaoPay online payment API.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Ready opens a payment intent and returns the redirect URLs.
func (c *Client) Ready(ctx context.Context, req ReadyRequest) (*ReadyResponse, error) {
	req.CID = c.config.CID
	if req.ApprovalURL == "" {
		req.ApprovalURL = c.config.ApprovalURL
	}
	if req.FailURL == "" {
		req.FailURL = c.config.FailURL
	}
	if req.CancelURL == "" {
		req.CancelURL = c.config.CancelURL
	}

	var resp ReadyResponse
	if err := c.post(ctx, "ready", req, &resp); err != nil {
		return nil, fmt.Errorf("ready: %w", err)
	}
	return &resp, nil
}

// Approve captures an intent the customer authorised.
func (c *Client) Approve(ctx context.Context, req ApproveRequest) (*ApproveResponse, error) {
	req.CID = c.config.CID

	var resp ApproveResponse
	if err := c.post(ctx, "approve", req, &resp); err != nil {
		return nil, fmt.Errorf("approve: %w", err)
	}
	return &resp, nil
}

// Cancel refunds an approved payment.
func (c *Client) Cancel(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	req.CID = c.config.CID

	var resp CancelResponse
	if err := c.post(ctx, "cancel", req, &resp); err != nil {
		return nil, fmt.Errorf("cancel: %w", err)
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)
	logger.Debug("KakaoPay request", map[string]interface{}{
		"endpoint": endpoint,
		"url":      url,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "SECRET_KEY "+c.config.AdminKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(endpoint, resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", endpoint, err)
	}
	return nil
}

func statusError(endpoint string, status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		errResp = ErrorResponse{Message: string(body)}
	}

	logger.Warn("KakaoPay request rejected", map[string]interface{}{
		"endpoint": endpoint,
		"status":   status,
		"code":     errResp.Code,
		"message":  errResp.Message,
	})

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, errResp.Error())
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, errResp.Error())
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, errResp.Error())
	case status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrTimeout, errResp.Error())
	default:
		return fmt.Errorf("%w: status %d: %s", ErrPaymentFailed, status, errResp.Error())
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
