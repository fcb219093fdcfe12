package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"github.com/sadopc/apitester/internal/protocol"
)

// advisoryHeaders are added to every outgoing request unless the caller set
// a header of the same name. They are response headers in CORS terms, so
// servers normally ignore them.
var advisoryHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type, Authorization"},
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodOptions: true,
}

// ProxyConfig holds proxy settings.
type ProxyConfig struct {
	URL     string // http://, https://, or socks5:// proxy URL
	NoProxy string // comma-separated list of hosts to bypass proxy
}

// Client dispatches requests over HTTP. It is safe for concurrent use; no
// state is carried from one Dispatch to the next.
type Client struct {
	mu        sync.Mutex
	timeout   time.Duration
	proxyConf *ProxyConfig
	tlsConfig *tls.Config
	advisory  bool
	rt        http.RoundTripper
}

var _ protocol.Dispatcher = (*Client)(nil)

// New creates a client with no timeout of its own and advisory headers on.
func New() *Client {
	return &Client{advisory: true}
}

// SetTimeout sets the underlying client timeout. Zero means none.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// SetProxy configures proxy settings for the client.
func (c *Client) SetProxy(proxyURL, noProxy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rt = nil
	if proxyURL == "" {
		c.proxyConf = nil
		return
	}
	c.proxyConf = &ProxyConfig{URL: proxyURL, NoProxy: noProxy}
}

// SetTLSConfig sets the TLS configuration for mTLS and certificate management.
func (c *Client) SetTLSConfig(cfg *tls.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rt = nil
	c.tlsConfig = cfg
}

// SetAdvisoryHeaders toggles the advisory CORS header set.
func (c *Client) SetAdvisoryHeaders(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advisory = on
}

// SetTransport replaces the round tripper, bypassing proxy and TLS settings.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rt = rt
}

func (c *Client) httpClient() (*http.Client, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rt == nil {
		rt, err := c.buildTransport()
		if err != nil {
			return nil, false, fmt.Errorf("configuring transport: %w", err)
		}
		c.rt = rt
	}
	return &http.Client{
		Timeout:   c.timeout,
		Transport: c.rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, c.advisory, nil
}

// Dispatch issues exactly one call for req. Transport problems of any kind
// come back as a failure Result, never as a panic or separate error.
func (c *Client) Dispatch(ctx context.Context, req *protocol.Request) protocol.Result {
	start := time.Now()

	client, advisory, err := c.httpClient()
	if err != nil {
		return protocol.Failure(err, time.Since(start))
	}

	method := strings.ToUpper(req.Method)
	if !supportedMethods[method] {
		return protocol.Failure(fmt.Errorf("unsupported method %q", req.Method), time.Since(start))
	}

	// GET and HEAD never carry a body.
	var body io.Reader
	if method != http.MethodGet && method != http.MethodHead && req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return protocol.Failure(err, time.Since(start))
	}
	if httpReq.URL.Scheme == "" || httpReq.URL.Host == "" {
		return protocol.Failure(fmt.Errorf("invalid URL %q: must be absolute", req.URL), time.Since(start))
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if advisory {
		for _, h := range advisoryHeaders {
			if _, ok := httpReq.Header[http.CanonicalHeaderKey(h[0])]; !ok {
				httpReq.Header.Set(h[0], h[1])
			}
		}
	}

	timer := &traceTimer{}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), timer.trace()))

	start = time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return protocol.Failure(err, time.Since(start))
	}
	defer resp.Body.Close()

	transferStart := time.Now()
	reader := io.Reader(resp.Body)
	// Setting Accept-Encoding turns off the transport's own gunzip.
	if !resp.Uncompressed && strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return protocol.Failure(fmt.Errorf("reading response: %w", err), time.Since(start))
		}
		defer gz.Close()
		reader = gz
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return protocol.Failure(fmt.Errorf("reading response: %w", err), time.Since(start))
	}
	end := time.Now()
	elapsed := end.Sub(start)
	timing := timer.detail()

	return protocol.Result{
		Response: protocol.Response{
			Status:      resp.StatusCode,
			StatusText:  statusText(resp),
			Headers:     flattenHeaders(resp.Header),
			Data:        decodeBody(raw),
			Time:        elapsed.Milliseconds(),
			Size:        int64(len(raw)),
			Raw:         raw,
			ContentType: resp.Header.Get("Content-Type"),
			Proto:       resp.Proto,
			Timing: &protocol.TimingDetail{
				DNSLookup:    timing.DNSLookup,
				TCPConnect:   timing.TCPConnect,
				TLSHandshake: timing.TLSHandshake,
				TTFB:         timing.TTFB,
				Transfer:     end.Sub(transferStart),
				Total:        elapsed,
			},
		},
	}
}

// traceTimer collects phase timings from httptrace callbacks. The dialer
// may race several connection attempts, so callbacks can fire from
// different goroutines; only the first of each phase is timed.
type traceTimer struct {
	mu sync.Mutex

	dnsStart, connStart, tlsStart, gotConn, gotFirstByte time.Time
	dnsDur, connDur, tlsDur                              time.Duration
	connDone, tlsDone                                    bool
}

func (t *traceTimer) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.dnsStart.IsZero() {
				t.dnsStart = time.Now()
			}
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if !t.dnsStart.IsZero() && t.dnsDur == 0 {
				t.dnsDur = time.Since(t.dnsStart)
			}
		},
		ConnectStart: func(_, _ string) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.connStart.IsZero() {
				t.connStart = time.Now()
			}
		},
		ConnectDone: func(_, _ string, err error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err == nil && !t.connDone && !t.connStart.IsZero() {
				t.connDur = time.Since(t.connStart)
				t.connDone = true
			}
		},
		TLSHandshakeStart: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.tlsStart.IsZero() {
				t.tlsStart = time.Now()
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			t.mu.Lock()
			defer t.mu.Unlock()
			if err == nil && !t.tlsDone && !t.tlsStart.IsZero() {
				t.tlsDur = time.Since(t.tlsStart)
				t.tlsDone = true
			}
		},
		GotConn: func(httptrace.GotConnInfo) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.gotConn = time.Now()
		},
		GotFirstResponseByte: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.gotFirstByte = time.Now()
		},
	}
}

// detail returns the phases seen so far. Transfer and Total are left to the
// caller.
func (t *traceTimer) detail() protocol.TimingDetail {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := protocol.TimingDetail{DNSLookup: t.dnsDur, TCPConnect: t.connDur, TLSHandshake: t.tlsDur}
	if !t.gotConn.IsZero() && !t.gotFirstByte.IsZero() {
		d.TTFB = t.gotFirstByte.Sub(t.gotConn)
	}
	return d
}

// decodeBody returns the parsed value when raw is exactly one JSON document
// and the text itself otherwise.
func decodeBody(raw []byte) any {
	if !json.Valid(raw) {
		return string(raw)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// flattenHeaders joins repeated header values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// buildTransport creates an http.Transport configured with proxy and TLS settings.
func (c *Client) buildTransport() (http.RoundTripper, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if c.tlsConfig != nil {
		transport.TLSClientConfig = c.tlsConfig
	}

	if c.proxyConf == nil {
		return transport, nil
	}

	parsed, err := url.Parse(c.proxyConf.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		if c.proxyConf.NoProxy != "" {
			noProxyHosts := parseNoProxy(c.proxyConf.NoProxy)
			transport.Proxy = func(r *http.Request) (*url.URL, error) {
				if shouldBypassProxy(r.URL.Hostname(), noProxyHosts) {
					return nil, nil
				}
				return parsed, nil
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

// parseNoProxy splits a comma-separated no-proxy string into trimmed host entries.
func parseNoProxy(noProxy string) []string {
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy checks whether a host should bypass the proxy.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		// Support wildcard suffix matching (e.g., .example.com)
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
