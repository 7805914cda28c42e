// Package api is the HTTP client for a host's monitoring REST API.
package api

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// DefaultTimeout is used when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Compile-time check that Client satisfies monitor.Fetcher.
var _ monitor.Fetcher = (*Client)(nil)

// DialFunc opens a connection for the HTTP transport, e.g. through an SSH tunnel.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://hv1.example.net:5001.
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	Timeout            time.Duration
	InsecureSkipVerify bool
	UserAgent          string

	// Dial replaces the transport's dialer when set.
	Dial DialFunc

	Logger logger.Logger
}

// Client queries one host's monitoring API.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	userAgent string
	http      *http.Client
	log       logger.Logger
}

// NewClient creates a client for the API at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New(errors.ErrConfig,
			"Monitoring API URL is empty",
			"Set hosts.<name>.url in .hostwatch.yaml")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid monitoring API URL '%s'", cfg.BaseURL),
			"Use a full URL like https://hv1.example.net:5001")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unsupported URL scheme '%s'", base.Scheme),
			"Use http or https")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Dial != nil {
		transport.DialContext = cfg.Dial
		transport.Proxy = nil
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed appliance certs
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Noop()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "hostwatch"
	}

	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout, Transport: transport},
		log:       log,
	}, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Fetch implements monitor.Fetcher: one bounded GET against the kind's endpoint.
func (c *Client) Fetch(ctx context.Context, kind monitor.Kind, q monitor.Query) ([]monitor.RawSample, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return nil, errors.New(errors.ErrAPI, fmt.Sprintf("No endpoint for metric kind '%s'", kind), "")
	}

	reqURL := c.requestURL(ep.path, q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI, "Failed to build monitoring request", "")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(kind, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(kind, resp.StatusCode, body)
	}

	env, err := decodeEnvelope(body, kind)
	if err != nil {
		return nil, err
	}
	samples, err := decodeSamples(env, kind, ep, c.log)
	if err != nil {
		return nil, err
	}

	c.log.Debug("GET %s -> %d records in %s", reqURL, len(samples), time.Since(start).Round(time.Millisecond))
	return samples, nil
}

// requestURL joins the endpoint path onto the base URL and encodes the query.
func (c *Client) requestURL(path string, q monitor.Query) string {
	u := c.baseURL.JoinPath(path)

	params := url.Values{}
	if !q.Since.IsZero() {
		params.Set("since", q.Since.UTC().Format(time.RFC3339Nano))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.PerEntity {
		params.Set("per_entity", "true")
	}
	u.RawQuery = params.Encode()
	return u.String()
}

func (c *Client) transportError(kind monitor.Kind, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Timed out fetching %s metrics from %s", kind, c.baseURL.Host),
			"Increase hosts.<name>.timeout or check the host's load")
	}
	return errors.WrapWithCode(err, errors.ErrAPI,
		fmt.Sprintf("Cannot reach monitoring API at %s", c.baseURL.Host),
		"Check the URL, network path, and tunnel settings")
}

// statusError builds an API error for a non-2xx response, using the
// envelope's message when the body carries one.
func statusError(kind monitor.Kind, status int, body io.Reader) error {
	msg := http.StatusText(status)
	if env, err := decodeEnvelopeLoose(body); err == nil && env.Message != "" {
		msg = env.Message
	}

	suggestion := ""
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		suggestion = "Check api_key or api_key_env for this host"
	case http.StatusNotFound:
		suggestion = "The host's API may not expose " + Path(kind)
	case http.StatusTooManyRequests:
		suggestion = "Lower the refresh interval"
	}

	return errors.New(errors.ErrAPI,
		fmt.Sprintf("%s query failed: HTTP %d: %s", kind, status, msg),
		suggestion)
}
