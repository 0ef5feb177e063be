// Package httpclient builds the shared HTTP client every probe goes through.
// One client (and so one connection pool) serves a whole scan run.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/duration"
)

// maxRedirects matches the browser-ish default of following a short chain.
const maxRedirects = 10

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total per-request timeout (default: 10s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// FollowRedirects follows up to 10 redirects when true; otherwise the
	// redirect response itself is returned
	FollowRedirects bool

	// MaxIdleConns is the maximum number of idle connections across all hosts (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration
}

// DefaultConfig returns the probe defaults: a 10s deadline, redirects
// followed, certificates verified.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.ProbeTimeout,
		InsecureSkipVerify:  false,
		FollowRedirects:     true,
		MaxIdleConns:        defaults.MaxIdleConns,
		MaxConnsPerHost:     defaults.MaxConnsPerHost,
		IdleConnTimeout:     duration.IdleConnTimeout,
		DialTimeout:         duration.DialTimeout,
		TLSHandshakeTimeout: duration.TLSHandshake,
	}
}

// New creates an HTTP client. It fails only on an unusable proxy URL.
func New(cfg Config) (*http.Client, error) {
	base := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = base.Timeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = base.MaxIdleConns
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = base.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = base.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = base.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = base.TLSHandshakeTimeout
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,

		DialContext: dialer.DialContext,

		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // targets often run self-signed certs
		},
	}

	if err := applyProxy(transport, cfg.Proxy, cfg.DialTimeout); err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	if cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// applyProxy installs the proxy described by raw on transport.
func applyProxy(transport *http.Transport, raw string, dialTimeout time.Duration) error {
	pc, err := ParseProxyURL(raw)
	if err != nil {
		return err
	}
	if pc == nil {
		return nil
	}

	if pc.IsSOCKS {
		dialer, err := SOCKSDialer(pc, dialTimeout)
		if err != nil {
			return err
		}
		transport.DialContext = dialer.DialContext
		return nil
	}

	transport.Proxy = http.ProxyURL(pc.URL)
	return nil
}

// Close releases idle pooled connections held by client.
func Close(client *http.Client) {
	if client != nil {
		client.CloseIdleConnections()
	}
}
