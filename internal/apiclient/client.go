// Package apiclient is a Go client for the REST API. Every response is wrapped in the
// {success, data, error} envelope; Client unwraps it into typed values.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smeaudit/internal/core"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Error is an unsuccessful API response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Do sends body as JSON (when non-nil) and decodes the envelope's data into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &Error{StatusCode: resp.StatusCode, Code: "BAD_RESPONSE", Message: "response is not a JSON envelope"}
	}
	if !env.Success || resp.StatusCode >= 400 {
		return &Error{StatusCode: resp.StatusCode, Code: env.Code, Message: env.Error, RequestID: env.RequestID}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// ── Typed helpers ─────────────────────────────────────────────────────────────

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      core.User `json:"user"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/api/auth/login", nil, body, &res); err != nil {
		return nil, err
	}
	c.Token = res.Token
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*core.User, error) {
	var u core.User
	if err := c.Do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ListVendors(ctx context.Context, search string, includeInactive bool) ([]core.Vendor, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if includeInactive {
		q.Set("include_inactive", "true")
	}
	var out []core.Vendor
	if err := c.Do(ctx, http.MethodGet, "/api/vendors", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateVendor(ctx context.Context, in core.PartyInput) (*core.Vendor, error) {
	var v core.Vendor
	if err := c.Do(ctx, http.MethodPost, "/api/vendors", nil, in, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) DashboardStats(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	if err := c.Do(ctx, http.MethodGet, "/api/dashboard/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmAction answers a confirmation request raised during a chat stream.
func (c *Client) ConfirmAction(ctx context.Context, token string, confirm bool) (json.RawMessage, error) {
	action := "cancel"
	if confirm {
		action = "confirm"
	}
	var out json.RawMessage
	body := map[string]string{"token": token, "action": action}
	if err := c.Do(ctx, http.MethodPost, "/api/chat/confirm", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
