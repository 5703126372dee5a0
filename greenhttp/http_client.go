// Package greenhttp wraps the HTTP client shared by manifest loading and the
// batch fetcher. It owns transport selection (HTTP/1.1+2 or HTTP/3), the
// User-Agent header, redirect policy and the optional bandwidth cap.
package greenhttp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/ratelimit"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

const (
	ProtocolAuto  = "auto"
	ProtocolHTTP3 = "h3"

	maxRedirects = 10

	handshakeTimeout = 10 * time.Second
	idleTimeout      = 90 * time.Second
	keepAlive        = 30 * time.Second
)

// Options configures an HTTPClient. The zero value is a plain net/http
// client without timeout, matching the behaviour of a bare GET.
type Options struct {
	Protocol  string
	UserAgent string
	Timeout   time.Duration
	// RateLimit caps body reads in bytes per second. Zero disables it.
	RateLimit int64
}

type HTTPClient struct {
	client    *http.Client
	userAgent string
	bucket    *ratelimit.Bucket
	h3        *http3.Transport
}

func NewHTTPClient(opts Options) *HTTPClient {
	c := &HTTPClient{userAgent: opts.UserAgent}

	var transport http.RoundTripper
	if opts.Protocol == ProtocolHTTP3 {
		c.h3 = &http3.Transport{
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"h3"},
			},
			QUICConfig: &quic.Config{
				HandshakeIdleTimeout: handshakeTimeout,
				MaxIdleTimeout:       idleTimeout,
				KeepAlivePeriod:      keepAlive,
			},
		}
		transport = c.h3
	}

	c.client = &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	if opts.RateLimit > 0 {
		c.bucket = ratelimit.NewBucketWithRate(float64(opts.RateLimit), opts.RateLimit)
	}

	return c
}

func (c *HTTPClient) NewRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, val := range headers {
		req.Header.Set(key, val)
	}

	return req, nil
}

func (c *HTTPClient) DoRequest(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Get issues a GET following redirects. The caller closes the body.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.DoRequest(req)
}

// Body returns r throttled to the configured rate, or r unchanged.
func (c *HTTPClient) Body(r io.Reader) io.Reader {
	if c.bucket == nil {
		return r
	}
	return ratelimit.Reader(r, c.bucket)
}

// Close releases the HTTP/3 transport, if one was created.
func (c *HTTPClient) Close() error {
	if c == nil || c.h3 == nil {
		return nil
	}
	return c.h3.Close()
}
