package httpapi

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	operatorerrors "github.com/netcracker/rabbitmq-operator/internal/errors"
)

const (
	// DefaultConnectionTimeout bounds TLS handshakes.
	DefaultConnectionTimeout = 5 * time.Second
	// DefaultRequestTimeout bounds a single request.
	DefaultRequestTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	// Component names the remote API in errors, e.g. "RabbitMQ management".
	Component string
	BaseURL   string
	Username  string
	Password  string
	// CACert is a PEM bundle trusted for TLS. Empty means system roots.
	CACert []byte

	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration

	RateLimitQPS                   float64
	RateLimitBurst                 int
	CircuitBreakerFailureThreshold int
	CircuitBreakerOpenDuration     time.Duration
}

// Client sends requests to one HTTP API.
type Client struct {
	baseURL    string
	username   string
	password   string
	component  string
	httpClient *http.Client
	state      *clientState
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Component == "" {
		cfg.Component = parsed.Host
	}

	connectionTimeout := cfg.ConnectionTimeout
	if connectionTimeout == 0 {
		connectionTimeout = DefaultConnectionTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = DefaultRequestTimeout
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if parsed.Hostname() != "" {
		tlsConfig.ServerName = parsed.Hostname()
	}
	if len(cfg.CACert) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.CACert) {
			return nil, fmt.Errorf("failed to parse CA certificate for %s", cfg.Component)
		}
		tlsConfig.RootCAs = pool
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		username:  cfg.Username,
		password:  cfg.Password,
		component: cfg.Component,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSClientConfig:     tlsConfig,
				TLSHandshakeTimeout: connectionTimeout,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: requestTimeout,
		},
		state: newClientState(cfg),
	}, nil
}

// ReadCACert reads a PEM bundle from path. A missing file yields nil so the
// caller can fall back to plain HTTP or system roots.
func ReadCACert(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate %s: %w", path, err)
	}
	return data, nil
}

// NewRequest builds a request for path relative to the base URL.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	return req, nil
}

// Do sends req and reads the whole body. Connection failures are wrapped as
// transient connection errors and 429/5xx responses as remote overload.
// Other status codes are returned to the caller unclassified.
func (c *Client) Do(req *http.Request, op string) (*Response, error) {
	if err := c.state.allow(req.Context(), req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.state.after(req, false)
		wrapped := fmt.Errorf("%s: %w", op, err)
		if operatorerrors.IsTransientConnection(err) {
			return nil, operatorerrors.WrapTransientConnection(wrapped)
		}
		return nil, wrapped
	}
	defer drainAndClose(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.state.after(req, false)
		return nil, fmt.Errorf("%s: failed to read response body: %w", op, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.state.after(req, false)
		return nil, operatorerrors.WrapTransientRemoteOverloaded(
			fmt.Errorf("%s: %s API overloaded (status %d): %s", op, c.component, resp.StatusCode, string(body)),
		)
	}

	c.state.after(req, true)
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Get is shorthand for a GET of path.
func (c *Client) Get(ctx context.Context, path, op string) (*Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.Do(req, op)
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ExpectOK returns a StatusError unless resp has a 2xx status.
func ExpectOK(resp *Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
}
