// Package tls provides an HTTP transport that presents a browser TLS
// fingerprint. Pages fetched for static probing are often served by
// front ends that answer non-browser ClientHellos with a challenge page
// instead of the real form, so the fetch has to look like the browser the
// page was built for.
//
// Based on https://github.com/refraction-networking/utls
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"

	"github.com/fieldprobe/fieldprobe/pkg/defaults"
	"github.com/fieldprobe/fieldprobe/pkg/duration"
)

// Profile is a browser TLS fingerprint and the user agent that goes with it.
type Profile struct {
	Name        string `json:"name"`
	UserAgent   string `json:"user_agent"`
	Description string `json:"description"`
	ClientHello *utls.ClientHelloID
}

// Profiles returns the built-in browser fingerprints. The first one is the
// default.
func Profiles() []*Profile {
	return []*Profile{
		{
			Name:        "chrome",
			UserAgent:   defaults.UAChrome,
			Description: "Chrome 120 on Windows",
			ClientHello: &utls.HelloChrome_120,
		},
		{
			Name:        "firefox",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
			Description: "Firefox 120 on Windows",
			ClientHello: &utls.HelloFirefox_120,
		},
		{
			Name:        "safari",
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Safari/605.1.15",
			Description: "Safari 16 on macOS",
			ClientHello: &utls.HelloSafari_16_0,
		},
		{
			Name:        "edge",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.102 Safari/537.36 Edg/85.0.564.51",
			Description: "Edge 85 on Windows",
			ClientHello: &utls.HelloEdge_85,
		},
	}
}

// ProfileNames returns the names of the built-in profiles.
func ProfileNames() []string {
	profiles := Profiles()
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// ProfileByName returns a built-in profile, case-insensitively.
func ProfileByName(name string) (*Profile, error) {
	for _, p := range Profiles() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("tls profile not found: %s (available: %s)", name, strings.Join(ProfileNames(), ", "))
}

// Config configures the fingerprinting transport.
type Config struct {
	Profile     *Profile // default: chrome
	DialTimeout time.Duration
	SkipVerify  bool
}

// Transport is an http.RoundTripper that dials every TLS connection with
// the profile's ClientHello. Plain http:// requests go through a regular
// transport. Connections are not pooled.
type Transport struct {
	profile     *Profile
	dialTimeout time.Duration
	skipVerify  bool
	plain       *http.Transport
}

// NewTransport creates a fingerprinting transport.
func NewTransport(cfg Config) *Transport {
	if cfg.Profile == nil {
		cfg.Profile = Profiles()[0]
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = duration.DialTimeout
	}
	return &Transport{
		profile:     cfg.Profile,
		dialTimeout: cfg.DialTimeout,
		skipVerify:  cfg.SkipVerify,
		plain: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
	}
}

// Profile returns the fingerprint in use.
func (t *Transport) Profile() *Profile {
	return t.profile
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.profile.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.profile.UserAgent)
	}
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	addr := req.URL.Host
	if req.URL.Port() == "" {
		addr = net.JoinHostPort(req.URL.Hostname(), "443")
	}
	conn, err := t.dial(req.Context(), addr)
	if err != nil {
		return nil, err
	}

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		cc, err := (&http2.Transport{}).NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("http2 client conn: %w", err)
		}
		resp, err := cc.RoundTrip(req)
		if err != nil {
			cc.Close()
			return nil, err
		}
		resp.Body = &connClosingBody{ReadCloser: resp.Body, conn: cc}
		return resp, nil
	}

	// HTTP/1.1 over the already negotiated connection.
	used := false
	h1 := &http.Transport{
		DialTLSContext: func(context.Context, string, string) (net.Conn, error) {
			if used {
				return nil, fmt.Errorf("tls: connection to %s already used", addr)
			}
			used = true
			return conn, nil
		},
		DisableKeepAlives: true,
	}
	resp, err := h1.RoundTrip(req)
	h1.CloseIdleConnections()
	return resp, err
}

// dial establishes a TLS connection presenting the profile's fingerprint.
func (t *Transport) dial(ctx context.Context, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: t.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	conn := utls.UClient(raw, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.skipVerify,
		MinVersion:         tls.VersionTLS12,
	}, *t.profile.ClientHello)

	hctx, cancel := context.WithTimeout(ctx, duration.TLSHandshake)
	defer cancel()
	if err := conn.HandshakeContext(hctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	return conn, nil
}

// connClosingBody closes the single-use HTTP/2 connection with the body.
type connClosingBody struct {
	io.ReadCloser
	conn *http2.ClientConn
}

func (b *connClosingBody) Close() error {
	err := b.ReadCloser.Close()
	b.conn.Close()
	return err
}
