package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/luchenqun/lucky-dog/internal/wallet"
)

// APIError represents a non-2xx response from the coordinator.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// ErrUnauthorized is returned when the coordinator responds 401/403.
var ErrUnauthorized = errors.New("unauthorized: API token required or invalid")

// Client is a small HTTP client for the coordinator's request surface
// (spec.md §6), used by the worker control loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	workerID   string
	apiToken   string
}

// NewClient constructs a Client from the worker Config.
func NewClient(cfg *Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.ServerURL,
		workerID:   cfg.WorkerID,
		apiToken:   cfg.APIToken,
	}
}

func (c *Client) do(ctx context.Context, method, p string, reqBody, respBody any) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	base.Path = path.Join(base.Path, p)

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return ErrUnauthorized
		}
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(respBytes, &apiErr)
		msg := apiErr.Error
		if msg == "" {
			msg = string(respBytes)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if respBody != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, respBody); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Lease is a batch of candidate passphrases leased from the coordinator,
// together with the wallet descriptor to test them against.
type Lease struct {
	Passwords     []string
	Descriptor    *wallet.Descriptor
	BatchID       string
	PasswordFound bool
}

type workRequestBody struct {
	CPUCount int    `json:"cpuCount"`
	ClientID string `json:"clientId"`
}

type workRequestResponse struct {
	Success       bool         `json:"success"`
	Passwords     []string     `json:"passwords"`
	Encrypt       *wallet.Wire `json:"encrypt,omitempty"`
	BatchID       string       `json:"batchId"`
	Count         int          `json:"count"`
	PasswordFound *bool        `json:"passwordFound,omitempty"`
}

// RequestLease leases a batch of candidates. A response carrying
// PasswordFound=true means another worker has already won; the returned
// Lease has PasswordFound set and an empty Passwords slice.
func (c *Client) RequestLease(ctx context.Context, cpuCount int) (*Lease, error) {
	req := workRequestBody{CPUCount: cpuCount, ClientID: c.workerID}
	var resp workRequestResponse
	if err := c.do(ctx, http.MethodPost, "/work/request", req, &resp); err != nil {
		return nil, err
	}

	lease := &Lease{
		Passwords:     resp.Passwords,
		BatchID:       resp.BatchID,
		PasswordFound: resp.PasswordFound != nil && *resp.PasswordFound,
	}
	if resp.Encrypt != nil {
		d, err := wallet.FromWire(*resp.Encrypt)
		if err != nil {
			return nil, fmt.Errorf("decode wallet descriptor: %w", err)
		}
		lease.Descriptor = d
	}
	return lease, nil
}

type workResultBody struct {
	BatchID       string   `json:"batchId"`
	ClientID      string   `json:"clientId"`
	Success       bool     `json:"success"`
	FoundPassword string   `json:"foundPassword,omitempty"`
	Passwords     []string `json:"passwords"`
}

type workResultResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ShouldStop    bool   `json:"shouldStop"`
	PasswordFound bool   `json:"passwordFound"`
}

// ReportSuccess submits a winning batch result: found carries the matched
// passphrase, passwords carries the full leased set for bookkeeping per
// spec.md §4.6 step 4.
func (c *Client) ReportSuccess(ctx context.Context, batchID, found string, passwords []string) error {
	req := workResultBody{
		BatchID:       batchID,
		ClientID:      c.workerID,
		Success:       true,
		FoundPassword: found,
		Passwords:     passwords,
	}
	var resp workResultResponse
	return c.do(ctx, http.MethodPost, "/work/result", req, &resp)
}

// ReportFailure submits a non-winning batch result so the coordinator can
// mark every leased passphrase CHECKED.
func (c *Client) ReportFailure(ctx context.Context, batchID string, passwords []string) error {
	req := workResultBody{
		BatchID:   batchID,
		ClientID:  c.workerID,
		Success:   false,
		Passwords: passwords,
	}
	var resp workResultResponse
	return c.do(ctx, http.MethodPost, "/work/result", req, &resp)
}

type workFoundBody struct {
	Password string `json:"password"`
	ClientID string `json:"clientId"`
}

// ConfirmFound calls the dedicated confirm-found endpoint once. The
// backoff-then-retry loop around it lives in Worker.reportAndConfirm.
func (c *Client) ConfirmFound(ctx context.Context, password string) error {
	req := workFoundBody{Password: password, ClientID: c.workerID}
	var resp struct {
		Success       bool `json:"success"`
		PasswordFound bool `json:"passwordFound"`
	}
	return c.do(ctx, http.MethodPost, "/work/found", req, &resp)
}
