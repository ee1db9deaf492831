// Package aptos signs and submits Aptos transactions.
//
// Signing messages and submission bodies are BCS encoded locally; the
// fullnode REST API is only used to read account state, submit signed
// bytes and look transactions up.
package aptos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/agentgate/core"
)

// APIError is a non-2xx response from the node
type APIError struct {
	StatusCode  int    `json:"-"`
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	VMErrorCode int    `json:"vm_error_code"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("aptos node: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("aptos node: %d: %s", e.StatusCode, e.Message)
}

const signedTxnContentType = "application/x.aptos.signed_transaction+bcs"

// Client is a NetworkClient backed by the fullnode REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	encoder    *BCSEncoder
}

// NewClient creates a client for the node at baseURL, e.g.
// https://fullnode.mainnet.aptoslabs.com/v1
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		encoder:    NewBCSEncoder(),
	}
}

// SequenceNumber returns the next sequence number of address
func (c *Client) SequenceNumber(ctx context.Context, address string) (uint64, error) {
	var account struct {
		SequenceNumber string `json:"sequence_number"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(address), nil, "", &account); err != nil {
		return 0, err
	}

	seq, err := strconv.ParseUint(account.SequenceNumber, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence number %q: %w", account.SequenceNumber, err)
	}
	return seq, nil
}

// Submit broadcasts a signed transaction as BCS and returns its hash
func (c *Client) Submit(ctx context.Context, txn core.SignedTransaction) (string, error) {
	body, err := c.encoder.SignedTransaction(txn)
	if err != nil {
		return "", err
	}

	var pending struct {
		Hash string `json:"hash"`
	}
	if err := c.do(ctx, http.MethodPost, "/transactions", bytes.NewReader(body), signedTxnContentType, &pending); err != nil {
		return "", err
	}
	if pending.Hash == "" {
		return "", fmt.Errorf("node accepted transaction without returning a hash")
	}
	return pending.Hash, nil
}

// TransactionStatus maps the node's view of hash onto a TransactionResult
func (c *Client) TransactionStatus(ctx context.Context, hash string) (core.TransactionResult, error) {
	var txn struct {
		Type     string `json:"type"`
		Hash     string `json:"hash"`
		Success  bool   `json:"success"`
		VMStatus string `json:"vm_status"`
	}
	err := c.do(ctx, http.MethodGet, "/transactions/by_hash/"+url.PathEscape(hash), nil, "", &txn)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return core.TransactionResult{}, core.ErrTxNotFound
		}
		return core.TransactionResult{}, err
	}

	result := core.TransactionResult{Hash: hash}
	switch {
	case txn.Type == "pending_transaction":
		result.Status = core.StatusSubmitted
	case txn.Success:
		result.Status = core.StatusConfirmed
	default:
		result.Status = core.StatusFailed
		result.Error = &core.ErrorDetail{Kind: core.ErrorKindExecution, Message: txn.VMStatus}
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
