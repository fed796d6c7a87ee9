// Package serviceclient sends requests to the service under test and captures its responses.
//
// The client never retries and never follows redirects: every response the service produces,
// including 3xx, 4xx and 5xx, is returned to the caller unchanged.
package serviceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"apollo.io/contract-tests/framework"
	"apollo.io/contract-tests/framework/helpers"
)

// ErrServiceUnreachable is wrapped by every error that means no HTTP response was received at
// all, such as a refused connection, a DNS failure, or a timeout.
var ErrServiceUnreachable = errors.New("service unreachable")

// Client sends HTTP requests to one service base URL.
type Client struct {
	baseURL    string
	timeout    time.Duration
	logger     framework.Logger
	httpClient *http.Client
}

// Option configures a Client.
type Option helpers.ConfigOption[Client]

// WithTimeout bounds each request, including reading the response body. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("timeout cannot be negative (got %s)", timeout)
		}
		c.timeout = timeout
		return nil
	})
}

// WithLogger sets a logger that receives a line for every request and response.
func WithLogger(logger framework.Logger) Option {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.logger = logger
		return nil
	})
}

// WithHTTPClient replaces the underlying HTTP client. Its redirect policy is overridden so
// that redirects are still not followed.
func WithHTTPClient(httpClient *http.Client) Option {
	return helpers.ConfigOptionFunc[Client](func(c *Client) error {
		c.httpClient = httpClient
		return nil
	})
}

// New creates a Client for the service at baseURL, which must be an absolute http or https URL.
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, framework.Configuration("service client", fmt.Errorf("invalid base URL %q", baseURL))
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  framework.NullLogger(),
	}
	if err := helpers.ApplyOptions(c, options...); err != nil {
		return nil, framework.Configuration("service client", err)
	}
	if c.logger == nil {
		c.logger = framework.NullLogger()
	}

	var hc http.Client
	if c.httpClient != nil {
		hc = *c.httpClient
	} else {
		hc.Transport = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		}
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c, nil
}

// BaseURL returns the base URL that request paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends a POST request to the given path, which is appended to the base URL. The body may
// be nil. Headers in header override any default header implied by the body.
//
// Any HTTP response is returned as a Response with a nil error, whatever its status code. An
// error is returned only if no response could be obtained.
func (c *Client) Post(ctx context.Context, path string, body Body, header http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, header)
}

// Do is like Post but allows any method.
func (c *Client) Do(ctx context.Context, method, path string, body Body, header http.Header) (*Response, error) {
	target := c.baseURL + path
	op := method + " " + target

	var data []byte
	contentType := ""
	if body != nil {
		var err error
		if data, err = body.Bytes(); err != nil {
			return nil, fmt.Errorf("encoding request body for %s: %w", op, err)
		}
		contentType = body.ContentType()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
	if err != nil {
		return nil, framework.Configuration(op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, values := range header {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	c.logger.Printf("%s %s", op, string(data))
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("%s failed: %s", op, err)
		return nil, framework.Infrastructure(op, fmt.Errorf("%w: %w", ErrServiceUnreachable, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, framework.Infrastructure(op, fmt.Errorf("%w: reading response body: %w", ErrServiceUnreachable, err))
	}
	c.logger.Printf("%s returned %d in %s: %s", op, resp.StatusCode, time.Since(start).Round(time.Millisecond), string(respBody))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Body is the content of a request.
type Body interface {
	// Bytes returns the encoded body.
	Bytes() ([]byte, error)
	// ContentType returns the default Content-Type for the body, or "" for none.
	ContentType() string
}

type jsonBody struct {
	value interface{}
}

// JSONBody returns a Body that encodes value as JSON, with a JSON content type.
func JSONBody(value interface{}) Body {
	return jsonBody{value}
}

func (b jsonBody) Bytes() ([]byte, error) { return json.Marshal(b.value) }
func (b jsonBody) ContentType() string    { return ContentTypeJSON }

type rawBody []byte

// RawBody returns a Body that sends data verbatim with no default content type.
func RawBody(data []byte) Body {
	return rawBody(data)
}

func (b rawBody) Bytes() ([]byte, error) { return b, nil }
func (b rawBody) ContentType() string    { return "" }
