// Package apiclient calls the FastFlix backend on behalf of the device, attaching the session
// token and the device ID to every request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"fastflix/internal/apperr"
	"fastflix/internal/httputil"
	"fastflix/internal/model"
)

// DefaultTimeout bounds each call, including the slow search endpoint.
const DefaultTimeout = 30 * time.Second

const deviceIDHeader = "X-Device-ID"

type Client struct {
	baseURL    string
	token      string
	deviceID   string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a client. token and deviceID may be empty; the matching header is then omitted.
func NewClient(baseURL, token, deviceID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		deviceID:   deviceID,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
}

// WithTimeout returns a copy of c with a different per-call timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	copied := *c
	copied.timeout = d
	return &copied
}

func (c *Client) Me(ctx context.Context) (*model.MeResponse, error) {
	var out model.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartTrial(ctx context.Context) (*model.StartTrialResponse, error) {
	var out model.StartTrialResponse
	if err := c.do(ctx, http.MethodPost, "/api/trial", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Trial(ctx context.Context) (*model.TrialStatus, error) {
	var out struct {
		Trial model.TrialStatus `json:"trial"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/trial", nil, &out); err != nil {
		return nil, err
	}
	return &out.Trial, nil
}

func (c *Client) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	var out model.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.Validation, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.Validation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set(deviceIDHeader, c.deviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return apperr.Wrap(apperr.Timeout, method+" "+path, err)
		}
		return apperr.Wrap(apperr.Network, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return apperr.Wrap(apperr.Timeout, method+" "+path, err)
		}
		return apperr.Wrap(apperr.Network, "decode response", err)
	}
	return nil
}

// statusError maps a non-2xx response to a tagged error carrying the server's message.
func statusError(resp *http.Response) error {
	var body httputil.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		message = body.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	var code apperr.Code
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		code = apperr.Unauthorized
	case resp.StatusCode == http.StatusPaymentRequired:
		code = apperr.PaymentRequired
	case resp.StatusCode == http.StatusGatewayTimeout:
		code = apperr.Timeout
	case body.Error.Code != "":
		code = apperr.Code(body.Error.Code)
	default:
		code = apperr.Code(fmt.Sprintf("HTTP_%d", resp.StatusCode))
	}
	return apperr.New(code, message)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
