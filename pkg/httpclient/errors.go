package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConfig indicates the configured proxy URL is unusable.
	ErrProxyConfig = errors.New("httpclient: invalid proxy")

	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy.
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")
)

// Failure kinds reported by Classify.
const (
	KindTimeout    = "timeout"
	KindCanceled   = "canceled"
	KindDNS        = "dns"
	KindTLS        = "tls"
	KindProxy      = "proxy"
	KindConnection = "connection"
	KindRequest    = "request" // target could not be turned into a request
	KindBody       = "body"    // response body could not be read
)

// Classify maps a request error onto a short failure kind for logs and
// metrics. A nil error yields "".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, ErrProxyConnect) {
		return KindProxy
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return KindProxy
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var (
		certErr      *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
	)
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &authorityErr) || errors.As(err, &hostErr) ||
		strings.Contains(err.Error(), "tls: ") {
		return KindTLS
	}

	return KindConnection
}
