package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// listSchema validates the manager's paginated list envelope before any
// field is read, so a missing field surfaces as ErrMalformedPayload
// instead of a silent default.
const listSchema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"data": {
			"type": "object",
			"required": ["affected_items", "total_affected_items"],
			"properties": {
				"affected_items": {"type": "array"},
				"total_affected_items": {"type": "integer"}
			}
		},
		"error": {"type": "integer"}
	}
}`

// ManagerConfig configures the manager REST client.
type ManagerConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration

	// Limiter and Tokens are constructed by the caller and shared across
	// all in-flight fan-out branches.
	Limiter *RateLimiter
	Tokens  *TokenCache
}

// ManagerClient queries a manager-style paginated REST API with JWT auth.
type ManagerClient struct {
	baseURL string
	client  *http.Client
	limiter *RateLimiter
	tokens  *TokenCache
	schema  *gojsonschema.Schema
}

// NewManagerClient creates a manager client. When cfg.Tokens is nil a
// cache backed by the manager's authenticate endpoint is constructed.
func NewManagerClient(cfg ManagerConfig) (*ManagerClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("manager URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(listSchema))
	if err != nil {
		return nil, fmt.Errorf("compile list schema: %w", err)
	}

	c := &ManagerClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: cfg.Limiter,
		schema:  schema,
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(10, 20)
	}
	c.tokens = cfg.Tokens
	if c.tokens == nil {
		c.tokens = NewTokenCache(10*time.Minute, func(ctx context.Context) (string, error) {
			return c.authenticate(ctx, cfg.Username, cfg.Password)
		})
	}
	return c, nil
}

// Get fetches one page of records from a resource path.
func (c *ManagerClient) Get(ctx context.Context, path string, params map[string]string) (*RecordResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("manager auth: %w", err)
	}

	body, status, err := c.do(ctx, path, params, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		// Token expired between cache check and use; refresh once.
		c.tokens.Invalidate()
		if token, err = c.tokens.Token(ctx); err != nil {
			return nil, fmt.Errorf("manager auth: %w", err)
		}
		if body, status, err = c.do(ctx, path, params, token); err != nil {
			return nil, err
		}
	}
	if status >= 300 {
		return nil, fmt.Errorf("manager request %s failed with status %d", path, status)
	}

	return c.parseListResponse(body)
}

func (c *ManagerClient) do(ctx context.Context, path string, params map[string]string, token string) ([]byte, int, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		endpoint += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create manager request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("manager request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024*1024))
	if err != nil {
		return nil, 0, fmt.Errorf("read manager response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *ManagerClient) parseListResponse(body []byte) (*RecordResult, error) {
	validation, err := c.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, validation.Errors()[0].String())
	}

	var raw struct {
		Data struct {
			AffectedItems      []map[string]interface{} `json:"affected_items"`
			TotalAffectedItems int                      `json:"total_affected_items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return &RecordResult{
		AffectedItems:      raw.Data.AffectedItems,
		TotalAffectedItems: raw.Data.TotalAffectedItems,
	}, nil
}

func (c *ManagerClient) authenticate(ctx context.Context, username, password string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/security/user/authenticate", nil)
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("auth failed with status %s", resp.Status)
	}

	var raw struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw.Data.Token == "" {
		return "", fmt.Errorf("%w: auth response missing token", ErrMalformedPayload)
	}
	return raw.Data.Token, nil
}
