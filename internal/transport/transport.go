// Package transport builds the outbound HTTP round trippers used to reach the
// remote shop platform.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// Fingerprint selects the TLS ClientHello presented to the remote platform.
// Some hosted shops sit behind CDNs that throttle Go's default handshake.
type Fingerprint string

const (
	FingerprintGo      Fingerprint = "go"
	FingerprintChrome  Fingerprint = "chrome"
	FingerprintFirefox Fingerprint = "firefox"
)

// ParseFingerprint maps a config value onto a Fingerprint. Empty means Go.
func ParseFingerprint(s string) (Fingerprint, error) {
	switch fp := Fingerprint(strings.ToLower(strings.TrimSpace(s))); fp {
	case "", FingerprintGo:
		return FingerprintGo, nil
	case FingerprintChrome, FingerprintFirefox:
		return fp, nil
	default:
		return "", fmt.Errorf("unknown TLS fingerprint %q", s)
	}
}

// Options configures New.
type Options struct {
	Timeout     time.Duration // Dial and handshake timeout
	Fingerprint Fingerprint
}

// New returns a RoundTripper for the given options. FingerprintGo yields a
// cloned http.DefaultTransport; the others dial through uTLS.
func New(opts Options) http.RoundTripper {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Fingerprint == "" || opts.Fingerprint == FingerprintGo {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSHandshakeTimeout = opts.Timeout
		return t
	}
	return newFingerprintTransport(opts.Timeout, helloID(opts.Fingerprint))
}

func helloID(fp Fingerprint) utls.ClientHelloID {
	if fp == FingerprintFirefox {
		return utls.HelloFirefox_Auto
	}
	return utls.HelloChrome_Auto
}

// fingerprintTransport speaks HTTP/2 when ALPN allows and HTTP/1.1 otherwise.
// Plain http:// requests go straight to the HTTP/1.1 transport.
type fingerprintTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

func newFingerprintTransport(timeout time.Duration, hello utls.ClientHelloID) *fingerprintTransport {
	dialer := &net.Dialer{Timeout: timeout}
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialUTLS(ctx, dialer, network, addr, hello, timeout)
	}

	return &fingerprintTransport{
		h2: &http2.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		},
		h1: &http.Transport{
			DialContext:       dialer.DialContext,
			DialTLSContext:    dial,
			ForceAttemptHTTP2: false,
		},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	// A consumed body cannot be replayed over HTTP/1.1.
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, berr := req.GetBody()
		if berr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialUTLS(ctx context.Context, dialer *net.Dialer, network, addr string, hello utls.ClientHelloID, timeout time.Duration) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, hello)
	hsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}
