package httpclient

// Proxy support for probes. Supported schemes:
//   - http://, https:// - HTTP CONNECT proxy
//   - socks5://         - SOCKS5 proxy (local DNS resolution)
//   - socks5h://        - SOCKS5 proxy with remote DNS resolution

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// ProxyConfig holds a parsed proxy URL.
type ProxyConfig struct {
	URL         *url.URL
	Scheme      string
	Host        string
	Port        string
	Username    string
	Password    string
	IsSOCKS     bool
	IsDNSRemote bool
}

// ParseProxyURL validates and parses a proxy URL string.
// Returns nil, nil if proxyURL is empty (no proxy configured).
// A bare host:port defaults to http://.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	if proxyURL == "" {
		return nil, nil
	}
	if !strings.Contains(proxyURL, "://") {
		proxyURL = "http://" + proxyURL
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConfig, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q, supported: http, https, socks5, socks5h", ErrProxyConfig, scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrProxyConfig)
	}
	port := parsed.Port()
	if port == "" {
		switch scheme {
		case "http":
			port = "8080"
		case "https":
			port = "8443"
		default:
			port = "1080"
		}
	}

	pc := &ProxyConfig{
		URL:         parsed,
		Scheme:      scheme,
		Host:        host,
		Port:        port,
		IsSOCKS:     strings.HasPrefix(scheme, "socks"),
		IsDNSRemote: scheme == "socks5h",
	}
	if parsed.User != nil {
		pc.Username = parsed.User.Username()
		pc.Password, _ = parsed.User.Password()
	}
	return pc, nil
}

// Address returns the proxy address in host:port format.
func (p *ProxyConfig) Address() string {
	if p == nil {
		return ""
	}
	return net.JoinHostPort(p.Host, p.Port)
}

// ContextDialer is the dialer shape http.Transport.DialContext expects.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// timeoutDialer bounds each SOCKS dial; x/net SOCKS dialers have no own timeout.
type timeoutDialer struct {
	dialer  proxy.ContextDialer
	timeout time.Duration
}

func (t *timeoutDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	conn, err := t.dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
	}
	return conn, nil
}

// SOCKSDialer creates a SOCKS5 dialer for pc.
func SOCKSDialer(pc *ProxyConfig, timeout time.Duration) (ContextDialer, error) {
	if pc == nil || !pc.IsSOCKS {
		return nil, fmt.Errorf("%w: not a SOCKS proxy", ErrProxyConfig)
	}

	// x/net/proxy understands socks5h itself; pass the scheme through.
	u := &url.URL{Scheme: pc.Scheme, Host: pc.Address()}
	if pc.Username != "" {
		u.User = url.UserPassword(pc.Username, pc.Password)
	}

	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConfig, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: dialer for %s does not support contexts", ErrProxyConfig, pc.Scheme)
	}
	return &timeoutDialer{dialer: cd, timeout: timeout}, nil
}
