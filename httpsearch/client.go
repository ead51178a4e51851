// Package httpsearch calls a remote storefront search endpoint.
package httpsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/shopsearch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPath is the endpoint path served by cmd/server.
const DefaultPath = "/api/search"

// Client implements shopsearch.Searcher by issuing GET requests carrying the
// encoded filters as query parameters.
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the search endpoint at rawURL, for example
// "http://localhost:8080/api/search".
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	endpoint, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid search endpoint %q", rawURL)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, errors.Newf("search endpoint %q must be an absolute URL", rawURL)
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		tracer:     otel.Tracer("shopsearch-httpsearch"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RequestURL returns the URL a search for filters is sent to. Paging options
// are appended as limit and offset when set.
func (c *Client) RequestURL(filters shopsearch.Filters, opts ...shopsearch.SearchOption) string {
	params := shopsearch.Encode(filters)
	cfg := &shopsearch.SearchConfig{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if cfg.Limit > 0 {
		params.Set("limit", strconv.Itoa(cfg.Limit))
	}
	if cfg.Offset > 0 {
		params.Set("offset", strconv.Itoa(cfg.Offset))
	}

	u := *c.endpoint
	u.RawQuery = params.Encode()
	return u.String()
}

// Search implements shopsearch.Searcher. Every failure, whether transport,
// status or decoding, wraps shopsearch.ErrFetchFailed; context cancellation
// additionally matches shopsearch.ErrCanceled or shopsearch.ErrTimeout.
func (c *Client) Search(ctx context.Context, filters shopsearch.Filters, opts ...shopsearch.SearchOption) (*shopsearch.Response, error) {
	target := c.RequestURL(filters, opts...)

	ctx, span := c.tracer.Start(ctx, "httpsearch.search",
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, c.fail(span, shopsearch.ErrFetchFailed, errors.Wrap(err, "failed to build search request"))
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, c.fail(span, shopsearch.ErrTimeout, err)
		case errors.Is(err, context.Canceled):
			return nil, c.fail(span, shopsearch.ErrCanceled, err)
		}
		return nil, c.fail(span, shopsearch.ErrFetchFailed, errors.Wrap(err, "search request failed"))
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, c.fail(span, shopsearch.ErrFetchFailed, errors.Newf("search endpoint returned %s: %s", res.Status, body))
	}

	var out shopsearch.Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, c.fail(span, shopsearch.ErrFetchFailed, errors.Wrap(err, "failed to decode search response"))
	}

	span.SetAttributes(attribute.Int64("search.total", out.Total))
	span.SetStatus(codes.Ok, "search completed")
	return &out, nil
}

// fail records cause on the span and returns kind with cause attached. Every
// returned error also matches shopsearch.ErrFetchFailed.
func (c *Client) fail(span trace.Span, kind, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	err := errors.WithSecondaryError(kind, cause)
	if kind != shopsearch.ErrFetchFailed {
		err = errors.Mark(err, shopsearch.ErrFetchFailed)
	}
	return err
}

// String implements fmt.Stringer.
func (c *Client) String() string {
	return fmt.Sprintf("httpsearch.Client(%s)", c.endpoint)
}
