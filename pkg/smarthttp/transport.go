// Package smarthttp is the public entry point for the git smart HTTP
// subtransport. A Transport is created per repository session and hands
// out one stream per protocol operation:
//
//	t, err := smarthttp.New("https://example.com/repo.git")
//	if err != nil {
//	    return err
//	}
//	defer t.Close()
//
//	stream, err := t.Action(ctx, smarthttp.ServiceUploadPackLS)
//	if err != nil {
//	    return err
//	}
//	defer stream.Free()
//	advert, err := io.ReadAll(stream)
//
// The transport carries session-wide request context (user agent, extra
// headers) into every stream it creates.
package smarthttp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/smarthttp/internal/smart"
	"github.com/fenilsonani/smarthttp/internal/substrate"
)

// Service aliases the smart-protocol operation selector.
type Service = smart.Service

// The four smart-protocol operations.
const (
	ServiceUploadPackLS  = smart.ServiceUploadPackLS
	ServiceUploadPack    = smart.ServiceUploadPack
	ServiceReceivePackLS = smart.ServiceReceivePackLS
	ServiceReceivePack   = smart.ServiceReceivePack
)

// Stream aliases the per-operation stream handed out by Action.
type Stream = smart.Stream

// Transport owns one smart subtransport for a repository session.
type Transport struct {
	baseURL   string
	userAgent string
	headers   map[string]string
	logger    zerolog.Logger
	client    substrate.Client
	sub       *smart.Subtransport
}

// Option configures a Transport at construction time.
type Option func(*Transport)

// WithUserAgent overrides the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithHeader adds a header sent on every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(t *Transport) { t.headers[key] = value }
}

// WithLogger routes debug events from the transport and substrate to l.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithClient substitutes the substrate client, e.g. a fake in tests.
func WithClient(c substrate.Client) Option {
	return func(t *Transport) { t.client = c }
}

// New creates a Transport for the repository at rawURL. The URL must be
// http or https; a trailing slash is trimmed so service suffixes compose
// cleanly.
func New(rawURL string, opts ...Option) (*Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", u.Scheme)
	}

	t := &Transport{
		baseURL:   strings.TrimSuffix(u.String(), "/"),
		userAgent: "smarthttp/1.0 (git-http-transport)",
		headers:   make(map[string]string),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = substrate.NewHTTPClient(t.logger)
	}

	sub, err := smart.NewSubtransport(t, t.client, t.logger)
	if err != nil {
		return nil, err
	}
	t.sub = sub
	return t, nil
}

// BaseURL returns the normalized repository URL.
func (t *Transport) BaseURL() string { return t.baseURL }

// RequestHeaders implements smart.Owner: the per-session headers applied
// when a stream connects.
func (t *Transport) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(t.headers)+1)
	headers["User-Agent"] = t.userAgent
	for k, v := range t.headers {
		headers[k] = v
	}
	return headers
}

// Action returns a fresh stream for the given operation. The caller owns
// the stream and must Free it when the operation is done.
func (t *Transport) Action(ctx context.Context, service Service) (*Stream, error) {
	return t.sub.Action(ctx, t.baseURL, service)
}

// Close shuts down the subtransport. Outstanding streams stay usable and
// are freed independently by their owners.
func (t *Transport) Close() error { return t.sub.Close() }
