// Package agentgate is a Go client for the agentgate HTTP API.
//
// The client keeps the session cookie in its own jar, so one HTTPClient
// represents one wallet session.
package agentgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/protocols"
)

// Session is the server's view of the current session
type Session struct {
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ActionRequest is a protocol action as sent over the wire
type ActionRequest struct {
	Protocol      core.Protocol     `json:"protocol"`
	Action        core.Action       `json:"action"`
	FungibleAsset bool              `json:"fungibleAsset"`
	AssetType     string            `json:"assetType,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	ExtraParams   map[string]string `json:"extraParams,omitempty"`
}

// HTTPClient implements Client over HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the gateway at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Nonce requests a challenge for address under chain. An empty chain
// selects the server default.
func (c *HTTPClient) Nonce(ctx context.Context, address, chain string) (core.Challenge, error) {
	body := map[string]string{"address": address}
	if chain != "" {
		body["chain"] = chain
	}
	var challenge core.Challenge
	err := c.do(ctx, http.MethodPost, "/auth/nonce", body, &challenge)
	return challenge, err
}

// Verify submits a signed challenge. On success the session cookie is kept
// for later calls.
func (c *HTTPClient) Verify(ctx context.Context, msg core.SignedMessage) (Session, error) {
	body := map[string]string{
		"address":   msg.Address,
		"publicKey": msg.PublicKey,
		"signature": msg.Signature,
		"message":   msg.Message,
	}
	if msg.Chain != "" {
		body["chain"] = msg.Chain
	}

	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/verify", body, &session)
	return session, err
}

// Logout revokes the current session
func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Session reports the current session
func (c *HTTPClient) Session(ctx context.Context) (Session, error) {
	var session Session
	err := c.do(ctx, http.MethodGet, "/auth/session", nil, &session)
	return session, err
}

// ImportKey registers privateKey as the agent key of the session wallet and
// returns the account address it controls
func (c *HTTPClient) ImportKey(ctx context.Context, privateKey string) (string, error) {
	var resp struct {
		AccountAddress string `json:"accountAddress"`
	}
	err := c.do(ctx, http.MethodPost, "/agent/keys", map[string]string{"privateKey": privateKey}, &resp)
	return resp.AccountAddress, err
}

// Actions lists the supported protocol actions
func (c *HTTPClient) Actions(ctx context.Context) ([]protocols.Entry, error) {
	var resp struct {
		Actions []protocols.Entry `json:"actions"`
	}
	err := c.do(ctx, http.MethodGet, "/agent/actions", nil, &resp)
	return resp.Actions, err
}

// Execute runs a protocol action
func (c *HTTPClient) Execute(ctx context.Context, req ActionRequest) (core.TransactionResult, error) {
	var result core.TransactionResult
	err := c.do(ctx, http.MethodPost, "/agent/action", req, &result)
	return result, err
}

// TransactionStatus reports the network's view of a transaction
func (c *HTTPClient) TransactionStatus(ctx context.Context, hash string) (core.TransactionResult, error) {
	var result core.TransactionResult
	err := c.do(ctx, http.MethodGet, "/agent/transactions/"+url.PathEscape(hash), nil, &result)
	return result, err
}

// do sends body as JSON and decodes the response into out. Error responses
// are still decoded into out when they carry a body, so a failed dispatch
// result reaches the caller alongside the error.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
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

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	var failure struct {
		Error json.RawMessage `json:"error"`
	}
	_ = json.Unmarshal(respBody, &failure)

	respErr := &ResponseError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	var msg string
	if json.Unmarshal(failure.Error, &msg) == nil && msg != "" {
		respErr.Message = msg
	} else if out != nil && len(failure.Error) > 0 {
		// A failed dispatch result; the error is an object
		if json.Unmarshal(respBody, out) == nil {
			var detail core.ErrorDetail
			if json.Unmarshal(failure.Error, &detail) == nil {
				respErr.Message = detail.Message
			}
		}
	}
	return respErr
}
