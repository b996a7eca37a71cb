// Package central is an HTTP client for the RHACS Central v1 API.
package central

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const defaultTimeout = 30 * time.Second

// Metadata is the response of GET /v1/metadata, used as a liveness probe.
type Metadata struct {
	Version      string `json:"version"`
	BuildFlavor  string `json:"buildFlavor"`
	ReleaseBuild bool   `json:"releaseBuild"`
}

// PolicySummary is the subset of a stored policy that cissync cares about.
type PolicySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// Client talks to a single Central instance. The bearer token is attached
// to every request; TLS verification is off unless WithTLSVerify is set,
// matching Central's default self-signed serving cert.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	verifyTLS  bool
	socks5Addr string
	httpClient *http.Client
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTLSVerify enables server certificate verification.
func WithTLSVerify(verify bool) Option {
	return func(o *clientOptions) { o.verifyTLS = verify }
}

// WithSOCKS5 routes all requests through a SOCKS5 proxy at addr (host:port).
func WithSOCKS5(addr string) Option {
	return func(o *clientOptions) { o.socks5Addr = addr }
}

// WithHTTPClient replaces the underlying HTTP client entirely (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// New creates a Client for the given Central URL and API token.
func New(centralURL, apiToken string, opts ...Option) (*Client, error) {
	if centralURL == "" {
		return nil, fmt.Errorf("central URL must not be empty")
	}
	if apiToken == "" {
		return nil, fmt.Errorf("API token must not be empty")
	}

	o := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !o.verifyTLS}, //nolint:gosec // Central's default serving cert is self-signed
		}
		if o.socks5Addr != "" {
			dialer, err := proxy.SOCKS5("tcp", o.socks5Addr, nil, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
			}
			ctxDialer, ok := dialer.(proxy.ContextDialer)
			if !ok {
				return nil, fmt.Errorf("SOCKS5 dialer does not support context")
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return ctxDialer.DialContext(ctx, network, addr)
			}
		}
		httpClient = &http.Client{Timeout: o.timeout, Transport: transport}
	}

	return &Client{
		baseURL: strings.TrimRight(centralURL, "/"),
		token:   apiToken,
		http:    httpClient,
	}, nil
}

// TestConnection probes GET /v1/metadata. Any transport error or non-2xx
// response fails the probe; callers treat that as fatal to the run.
func (c *Client) TestConnection(ctx context.Context) (Metadata, error) {
	var md Metadata
	if err := c.getJSON(ctx, "/v1/metadata", &md); err != nil {
		return Metadata{}, fmt.Errorf("connecting to Central: %w", err)
	}
	return md, nil
}

// ListPolicies returns the policies currently stored in Central.
func (c *Client) ListPolicies(ctx context.Context) ([]PolicySummary, error) {
	var out struct {
		Policies []PolicySummary `json:"policies"`
	}
	if err := c.getJSON(ctx, "/v1/policies", &out); err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	return out.Policies, nil
}

// CreatePolicy submits one policy definition and returns the assigned ID.
func (c *Client) CreatePolicy(ctx context.Context, policy json.RawMessage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/policies", bytes.NewReader(policy))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating policy: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apiError(resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	return created.ID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

// apiError builds an error from a non-2xx response, including a short body
// snippet. Central returns {"error": "..."} payloads worth surfacing.
func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best-effort detail
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Errorf("Central returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("Central returned status %d: %s", resp.StatusCode, msg)
}
