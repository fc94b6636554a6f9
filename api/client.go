// Package api fetches fundraiser and live-stream status from the
// creatorsforacause backend. Both bodies are validated against a JSON schema
// before decoding; any failure is a *RemoteFetchError.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/creatorsforacause/horosafe"
	"github.com/hazyhaar/creatorsforacause/kit"
)

const (
	FundraiserPath = "/fundraiser"
	StreamsPath    = "/streams"
)

// Client talks to one base URL.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for baseURL (see BaseURL).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the base the client was built with.
func (c *Client) BaseURL() string {
	return c.base
}

// FetchFundraiser GETs /fundraiser and unwraps its data envelope.
func (c *Client) FetchFundraiser(ctx context.Context) (Fundraiser, error) {
	var env fundraiserEnvelope
	if err := c.getJSON(ctx, FundraiserPath, fundraiserSchema, &env); err != nil {
		return Fundraiser{}, err
	}
	return env.Data, nil
}

// FetchStreams GETs /streams.
func (c *Client) FetchStreams(ctx context.Context) (Streams, error) {
	var s Streams
	if err := c.getJSON(ctx, StreamsPath, streamsSchema, &s); err != nil {
		return Streams{}, err
	}
	if s.Twitch.Streams == nil {
		s.Twitch.Streams = NewStreamMap()
	}
	if s.YouTube.Streams == nil {
		s.YouTube.Streams = NewStreamMap()
	}
	return s, nil
}

// FetchAll issues both requests concurrently and fails if either fails.
func (c *Client) FetchAll(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := c.FetchFundraiser(gctx)
		snap.Fundraiser = f
		return err
	})
	g.Go(func() error {
		s, err := c.FetchStreams(gctx)
		snap.Streams = s
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Client) getJSON(ctx context.Context, path string, schema *jsonschema.Resolved, dst any) error {
	start := time.Now()
	fail := func(status int, err error) error {
		c.logger.Warn("api: fetch failed", "endpoint", path, "status", status, "error", err)
		return &RemoteFetchError{Endpoint: path, Status: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fail(0, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if id := kit.GetTraceID(ctx); id != "" {
		req.Header.Set("X-Trace-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	body, err := horosafe.LimitedReadAll(resp.Body, horosafe.MaxResponseBody)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("json decode: %w", err))
	}
	if err := schema.Validate(raw); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("schema: %w", err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("json decode: %w", err))
	}

	c.logger.Debug("api: fetched", "endpoint", path, "bytes", len(body), "elapsed", time.Since(start))
	return nil
}
