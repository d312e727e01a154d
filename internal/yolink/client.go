package yolink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// defaultHTTPTimeout bounds a single upstream request/response round trip.
// Retry budgets, not this timeout, govern how long an operation may take.
const defaultHTTPTimeout = 15 * time.Second

// Client issues JSON envelope requests against the upstream vendor API.
//
// The client is stateless with respect to authentication: callers obtain an
// access token from the Session and pass it per call, so there is exactly one
// owner of token state in the process.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	apiURL     string
	httpClient *http.Client
	log        Logger
}

// NewClient creates an API client for the given endpoint.
func NewClient(apiURL string) *Client {
	return &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		log:        noopLogger{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(log Logger) {
	c.log = log
}

// SetHTTPClient replaces the underlying HTTP client (used by tests).
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// Call sends one request envelope and returns the response data object.
//
// Non-success response codes raise an *APIError: known user-relevant codes
// (rate limit, busy device, token scope) are logged at warn level, all
// others at error level. Transport and decode failures are returned as
// wrapped errors distinct from business errors so the retry engine can
// treat them uniformly.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - accessToken: Current bearer token from the Session
//   - req: Request envelope; Time is stamped here if unset
//
// Returns:
//   - map[string]any: The response data object (may be nil for some methods)
//   - error: Transport error, ErrBadResponse, or *APIError
func (c *Client) Call(ctx context.Context, accessToken string, req Request) (map[string]any, error) {
	if req.Time == 0 {
		req.Time = time.Now().UnixMilli()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	// Correlation id ties request/response log lines together without
	// exposing payload contents.
	reqID := uuid.NewString()
	c.log.Debug("upstream call", "request_id", reqID, "method", req.Method, "target", req.TargetDevice)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream HTTP status %d for %s", httpResp.StatusCode, req.Method)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if resp.Code == "" {
		return nil, fmt.Errorf("%w: response has no code", ErrBadResponse)
	}

	if resp.Code != CodeSuccess {
		apiErr := &APIError{Method: req.Method, Code: resp.Code, Desc: resp.Desc}
		if IsUserCode(resp.Code) {
			c.log.Warn("upstream reported user-relevant error",
				"request_id", reqID, "method", req.Method, "code", resp.Code, "desc", resp.Desc)
		} else {
			c.log.Error("upstream reported unexpected error",
				"request_id", reqID, "method", req.Method, "code", resp.Code, "desc", resp.Desc)
		}
		return nil, apiErr
	}

	c.log.Debug("upstream call succeeded", "request_id", reqID, "method", req.Method)
	return resp.Data, nil
}

// GetHomeID fetches the home/subnet identifier scoping the push topic.
func (c *Client) GetHomeID(ctx context.Context, accessToken string) (string, error) {
	data, err := c.Call(ctx, accessToken, Request{Method: "Home.getGeneralInfo"})
	if err != nil {
		return "", err
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: general info has no home id", ErrBadResponse)
	}
	return id, nil
}

// GetDeviceList fetches the account's device inventory.
//
// The returned entries carry the device-scoped tokens required for
// per-device state calls.
func (c *Client) GetDeviceList(ctx context.Context, accessToken string) ([]DeviceInfo, error) {
	data, err := c.Call(ctx, accessToken, Request{Method: "Home.getDeviceList"})
	if err != nil {
		return nil, err
	}

	raw, ok := data["devices"]
	if !ok {
		return nil, fmt.Errorf("%w: device list has no devices field", ErrBadResponse)
	}

	// Round-trip through JSON to decode the nested list into typed entries.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	var devices []DeviceInfo
	if err := json.Unmarshal(encoded, &devices); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	return devices, nil
}

// GetDeviceState pulls the full current state snapshot for one device.
//
// The method name is derived from the device type ("LeakSensor.getState",
// "GarageDoor.getState", ...). The returned map is the complete last-known
// snapshot the cache stores wholesale.
func (c *Client) GetDeviceState(ctx context.Context, accessToken string, dev DeviceInfo) (map[string]any, error) {
	data, err := c.Call(ctx, accessToken, Request{
		Method:       dev.Type + ".getState",
		TargetDevice: dev.DeviceID,
		Token:        dev.Token,
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: getState returned no data", ErrBadResponse)
	}
	return data, nil
}

// SetDeviceState issues a state-changing command to one device.
//
// The response data (the device's view of its state after the command) is
// returned so the caller can fold it into the cache without an extra pull.
func (c *Client) SetDeviceState(ctx context.Context, accessToken string, dev DeviceInfo, params map[string]any) (map[string]any, error) {
	return c.Call(ctx, accessToken, Request{
		Method:       dev.Type + ".setState",
		TargetDevice: dev.DeviceID,
		Token:        dev.Token,
		Params:       params,
	})
}
