package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"resource-exporter/core/retry"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// requestPolicy retries throttled and failed API calls.
var requestPolicy = retry.Policy{MaxAttempts: 3, BackoffFactor: 500 * time.Millisecond}

// PortClient writes entities through the Port REST API.
type PortClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *retry.Executor
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// NewPortClient creates a rate-limited Port API client.
func NewPortClient(cfg Config, logger *zap.Logger) *PortClient {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PortClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		retry:      retry.Default,
		logger:     logger,
		now:        time.Now,
	}
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("port api returned %d: %s", e.status, e.body)
}

func (e *apiError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// Upsert creates or merges each entity.
func (c *PortClient) Upsert(ctx context.Context, entities []Entity) ([]string, error) {
	query := url.Values{}
	query.Set("upsert", "true")
	query.Set("merge", "true")
	if c.cfg.CreateMissingRelated {
		query.Set("create_missing_related_entities", "true")
	}

	written := make([]string, 0, len(entities))
	var errs []error
	for _, entity := range entities {
		body, err := json.Marshal(entity)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", entity.ExternalID(), err))
			continue
		}

		path := "/v1/blueprints/" + url.PathEscape(entity.Blueprint) + "/entities?" + query.Encode()
		if _, err := c.do(ctx, http.MethodPost, path, body); err != nil {
			c.logger.Error("Failed to upsert entity",
				zap.String("blueprint", entity.Blueprint),
				zap.String("identifier", entity.Identifier),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("upsert %s: %w", entity.ExternalID(), err))
			continue
		}
		written = append(written, entity.ExternalID())
	}

	return written, errors.Join(errs...)
}

// Delete removes each entity; missing entities are ignored.
func (c *PortClient) Delete(ctx context.Context, entities []Entity) error {
	var errs []error
	for _, entity := range entities {
		if err := c.deleteOne(ctx, entity.Blueprint, entity.Identifier); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *PortClient) deleteOne(ctx context.Context, blueprint, identifier string) error {
	path := "/v1/blueprints/" + url.PathEscape(blueprint) + "/entities/" + url.PathEscape(identifier)
	_, err := c.do(ctx, http.MethodDelete, path, nil)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", ExternalID(blueprint, identifier), err)
	}
	return nil
}

// Prune deletes entities of blueprint whose identifier is not in keep.
func (c *PortClient) Prune(ctx context.Context, blueprint string, keep map[string]struct{}) (int, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/blueprints/"+url.PathEscape(blueprint)+"/entities", nil)
	if err != nil {
		return 0, fmt.Errorf("list %s entities: %w", blueprint, err)
	}

	var listing struct {
		Entities []struct {
			Identifier string `json:"identifier"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return 0, fmt.Errorf("decode %s entities: %w", blueprint, err)
	}

	removed := 0
	var errs []error
	for _, e := range listing.Entities {
		if _, ok := keep[e.Identifier]; ok {
			continue
		}
		if err := c.deleteOne(ctx, blueprint, e.Identifier); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// do performs an authenticated request with rate limiting and retries.
func (c *PortClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	return retry.Run(ctx, c.retry, requestPolicy, func(ctx context.Context) ([]byte, error) {
		data, err := c.doOnce(ctx, method, path, body)
		if errors.Is(err, ErrUnauthorized) {
			// Token may have been revoked early; drop it and try once more.
			c.invalidateToken()
			data, err = c.doOnce(ctx, method, path, body)
		}

		var apiErr *apiError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return nil, retry.Permanent(err)
		}
		if errors.Is(err, ErrUnauthorized) {
			return nil, retry.Permanent(err)
		}
		return data, err
	})
}

func (c *PortClient) doOnce(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

func (c *PortClient) send(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func (c *PortClient) url(path string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + path
}

// accessToken returns a cached token, requesting a new one shortly before expiry.
func (c *PortClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"clientId":     c.cfg.ClientID,
		"clientSecret": c.cfg.ClientSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/v1/auth/access_token"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}

	var tok struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", ErrUnauthorized
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	c.token = tok.AccessToken
	// Refresh a minute early so in-flight requests don't race the expiry.
	c.tokenExpiry = c.now().Add(lifetime - time.Minute)
	return c.token, nil
}

func (c *PortClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
