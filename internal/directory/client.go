package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/geoattend-api/pkg/config"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

// statusError carries a collaborator HTTP status through the retry loop.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.status, e.body)
}

// serviceLabel extracts the collaborator host for metric labels.
func serviceLabel(rawURL string) string {
	if u, err := neturl.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}

// IsNotFound reports whether the collaborator answered 404.
func IsNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

// Client is the shared HTTP transport for collaborator calls. Transient
// failures (network errors and 5xx) are retried a bounded number of times;
// 4xx answers are definitive and returned immediately.
type Client struct {
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	jwtSecret  string
	jwtTTL     time.Duration
	logger     *zap.Logger
	observe    func(service string, duration time.Duration)
}

// SetObserver installs a latency callback invoked once per logical call.
func (c *Client) SetObserver(observe func(service string, duration time.Duration)) {
	c.observe = observe
}

// NewClient constructs the shared collaborator transport.
func NewClient(cfg config.CollaboratorConfig, jwtCfg config.JWTConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: retries,
		retryDelay: delay,
		jwtSecret:  jwtCfg.Secret,
		jwtTTL:     jwtCfg.Expiration,
		logger:     logger,
	}
}

// serviceToken mints a short-lived HS256 token identifying this service to
// its collaborators.
func (c *Client) serviceToken() (string, error) {
	ttl := c.jwtTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": "attendance-service",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.jwtSecret))
}

func (c *Client) do(ctx context.Context, method, url string, payload, dest interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	if c.observe != nil {
		start := time.Now()
		defer func() { c.observe(serviceLabel(url), time.Since(start)) }()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := c.once(ctx, method, url, body, dest)
		if err == nil {
			return nil
		}
		if se, ok := err.(*statusError); ok && se.status < http.StatusInternalServerError {
			// 4xx answers are definitive.
			return err
		}
		lastErr = err
		c.logger.Warn("collaborator request failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return appErrors.Wrap(lastErr, appErrors.ErrCollaboratorUnavailable.Code,
		appErrors.ErrCollaboratorUnavailable.Status, appErrors.ErrCollaboratorUnavailable.Message)
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.jwtSecret != "" {
		token, err := c.serviceToken()
		if err != nil {
			return fmt.Errorf("sign service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{status: resp.StatusCode, body: string(raw)}
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
