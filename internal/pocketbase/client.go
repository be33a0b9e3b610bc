package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bitor-console/internal/config"
	apperrors "bitor-console/internal/errors"
	"bitor-console/internal/types"
)

// Client handles communication with the PocketBase REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// errorBody is the JSON error shape returned by PocketBase
type errorBody struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// NewClient creates a new PocketBase client
func NewClient(cfg config.PocketBaseConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Send performs a request against path and decodes the JSON response into
// out when out is non-nil. opts may be nil.
func (c *Client) Send(ctx context.Context, method, path string, opts *types.PocketBaseOptions, out any) error {
	if opts == nil {
		opts = &types.PocketBaseOptions{}
	}

	reqURL := c.baseURL + path
	if len(opts.Query) > 0 {
		params := url.Values{}
		for k, v := range opts.Query {
			if v == nil {
				continue
			}
			params.Set(k, fmt.Sprint(v))
		}
		reqURL += "?" + params.Encode()
	}

	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	var doer types.Doer = c.httpClient
	if opts.Fetch != nil {
		doer = opts.Fetch
	}

	resp, err := doer.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrBackendTimeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("pocketbase request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, apperrors.Wrap(err, apperrors.ErrBackendUnavailable.Message, true))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(method, path, resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// CheckHealth verifies PocketBase is accessible
func (c *Client) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return c.Send(ctx, http.MethodGet, "/api/health", nil, nil)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func responseError(method, path string, status int, body []byte) error {
	var parsed errorBody
	message := http.StatusText(status)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}

	appErr := &apperrors.AppError{
		Err:       fmt.Errorf("%s %s: server returned %d: %s", method, path, status, message),
		Message:   message,
		Status:    status,
		Code:      codeForStatus(status),
		Retryable: status >= 500 || status == http.StatusTooManyRequests,
	}
	return appErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized.Code
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return apperrors.ErrNotFound.Code
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if status >= 500 {
		return apperrors.ErrBackendUnavailable.Code
	}
	return "request_failed"
}
