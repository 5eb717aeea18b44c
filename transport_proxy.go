package mqttv3

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var (
	ErrProxyScheme  = errors.New("unsupported proxy scheme")
	ErrProxyRefused = errors.New("proxy refused tunnel")
)

var defaultProxyPorts = map[string]string{
	"http":    "8080",
	"socks5":  "1080",
	"socks5h": "1080",
}

// ProxyDialer tunnels broker connections through an HTTP CONNECT or SOCKS5
// proxy. It satisfies Dialer and, through DialContext, the hook used by
// the websocket dialer.
type ProxyDialer struct {
	proxyURL *url.URL
	username string
	password string
	forward  net.Dialer
}

// NewProxyDialer parses proxyURL (http, socks5 or socks5h). Credentials in
// the URL are used unless username is given.
func NewProxyDialer(proxyURL, username, password string) (*ProxyDialer, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("proxy url: %w", err)
	}

	d := &ProxyDialer{proxyURL: u, username: username, password: password}
	if username == "" && u.User != nil {
		d.username = u.User.Username()
		d.password, _ = u.User.Password()
	}

	return d, nil
}

// Dial implements Dialer.
func (d *ProxyDialer) Dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	return d.DialContext(ctx, "tcp", hostPort(host, port))
}

// DialContext opens a tunnel to addr.
func (d *ProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	switch d.proxyURL.Scheme {
	case "http":
		return d.connectTunnel(ctx, addr)
	case "socks5", "socks5h":
		return d.socksTunnel(ctx, network, addr)
	}
	return nil, fmt.Errorf("%w: %q", ErrProxyScheme, d.proxyURL.Scheme)
}

func (d *ProxyDialer) proxyAddr() string {
	if d.proxyURL.Port() != "" {
		return d.proxyURL.Host
	}
	return net.JoinHostPort(d.proxyURL.Hostname(), defaultProxyPorts[d.proxyURL.Scheme])
}

func (d *ProxyDialer) connectTunnel(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := d.forward.DialContext(ctx, "tcp", d.proxyAddr())
	if err != nil {
		return nil, fmt.Errorf("proxy dial: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: http.Header{},
	}
	if d.username != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(d.username + ":" + d.password))
		req.Header.Set("Proxy-Authorization", "Basic "+creds)
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy request: %w", err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("proxy response: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrProxyRefused, resp.Status)
	}

	// Bytes from the broker may already sit in br.
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

func (d *ProxyDialer) socksTunnel(ctx context.Context, network, addr string) (net.Conn, error) {
	var auth *proxy.Auth
	if d.username != "" {
		auth = &proxy.Auth{User: d.username, Password: d.password}
	}

	dialer, err := proxy.SOCKS5("tcp", d.proxyAddr(), auth, &d.forward)
	if err != nil {
		return nil, fmt.Errorf("socks5: %w", err)
	}

	var conn net.Conn
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		conn, err = cd.DialContext(ctx, network, addr)
	} else {
		conn, err = dialer.Dial(network, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("socks5: %w", err)
	}
	return conn, nil
}

// ProxyFromEnvironment picks the proxy for target (a URL such as
// mqtt://host:1883 or wss://host/mqtt) from HTTP_PROXY, HTTPS_PROXY and
// NO_PROXY, upper case first. It returns nil when no proxy applies.
func ProxyFromEnvironment(target string) (*url.URL, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("proxy target: %w", err)
	}

	if bypassProxy(u.Hostname(), proxyEnv("NO_PROXY")) {
		return nil, nil
	}

	value := ""
	if u.Scheme == "wss" || u.Scheme == "https" {
		value = proxyEnv("HTTPS_PROXY")
	}
	if value == "" {
		value = proxyEnv("HTTP_PROXY")
	}
	if value == "" {
		return nil, nil
	}

	return url.Parse(value)
}

func proxyEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return os.Getenv(strings.ToLower(key))
}

// bypassProxy matches host against a NO_PROXY list: "*", exact hosts,
// and domain suffixes with or without a leading dot.
func bypassProxy(host, noProxy string) bool {
	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case entry == "*":
			return true
		case host == strings.TrimPrefix(entry, "."):
			return true
		case strings.HasSuffix(host, "."+strings.TrimPrefix(entry, ".")):
			return true
		}
	}
	return false
}
