package substrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// HTTPClient is the production substrate built on net/http. Every Connect
// launches the request in its own goroutine and hands the outcome back
// over a channel, so Connect and Read suspend the caller on a channel
// receive while real I/O runs asynchronously underneath.
type HTTPClient struct {
	client *http.Client
	logger zerolog.Logger

	mu     sync.Mutex
	nextID int
	conns  map[Handle]*conn
}

type connResult struct {
	resp *http.Response
	err  error
}

// conn tracks one in-flight exchange. resp stays nil until response
// headers have been received; for POST exchanges body feeds the request
// until the first read finishes it.
type conn struct {
	url     string
	method  string
	bufSize int
	cancel  context.CancelFunc
	respCh  chan connResult

	body    *io.PipeWriter
	resp    *http.Response
	scratch []byte
}

// NewHTTPClient returns a substrate over the default net/http transport.
// The logger may be zerolog.Nop().
func NewHTTPClient(logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 0, // streaming exchanges; cancellation comes from ctx
		},
		logger: logger,
		conns:  make(map[Handle]*conn),
	}
}

// NewHTTPClientWith returns a substrate using the supplied http.Client,
// for callers that need custom transports or timeouts.
func NewHTTPClientWith(hc *http.Client, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{client: hc, logger: logger, conns: make(map[Handle]*conn)}
}

// Connect implements Client. GET exchanges suspend until response headers
// arrive; POST exchanges return as soon as the request is launched, since
// the response cannot exist before the request body is written.
func (s *HTTPClient) Connect(ctx context.Context, url string, bufSize int, method string, headers map[string]string) (Handle, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	c := &conn{
		url:     url,
		method:  method,
		bufSize: bufSize,
		cancel:  cancel,
		respCh:  make(chan connResult, 1),
	}

	var body io.Reader
	if method == http.MethodPost {
		pr, pw := io.Pipe()
		c.body = pw
		body = pr
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		cancel()
		return NoHandle, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	go func() {
		resp, err := s.client.Do(req)
		c.respCh <- connResult{resp: resp, err: err}
	}()

	if method == http.MethodGet {
		if err := s.awaitResponse(ctx, c); err != nil {
			cancel()
			return NoHandle, err
		}
	}

	h := s.register(c)
	s.logger.Debug().
		Int("conn", int(h)).
		Str("method", method).
		Str("url", url).
		Dur("elapsed", time.Since(start)).
		Msg("substrate: connected")
	return h, nil
}

// awaitResponse blocks until the in-flight request produces response
// headers or fails, then prepares the conn for reading.
func (s *HTTPClient) awaitResponse(ctx context.Context, c *conn) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	case res := <-c.respCh:
		if res.err != nil {
			return fmt.Errorf("failed to make request: %w", res.err)
		}
		if res.resp.StatusCode != http.StatusOK {
			res.resp.Body.Close()
			return fmt.Errorf("unexpected status code: %d", res.resp.StatusCode)
		}
		c.resp = res.resp
		if c.bufSize <= 0 {
			c.bufSize = 32 * 1024
		}
		c.scratch = make([]byte, c.bufSize)
		return nil
	}
}

// Read implements Client. The first read on a POST exchange finishes the
// request body and suspends until the response arrives.
func (s *HTTPClient) Read(ctx context.Context, h Handle, p []byte) (int, error) {
	c, err := s.lookup(h)
	if err != nil {
		return 0, err
	}

	if c.resp == nil {
		if c.body != nil {
			c.body.Close()
			c.body = nil
		}
		if err := s.awaitResponse(ctx, c); err != nil {
			return 0, err
		}
	}

	// Read into the conn-owned scratch buffer so an abandoned read after
	// cancellation never touches the caller's slice.
	want := len(p)
	if want > len(c.scratch) {
		want = len(c.scratch)
	}
	type readResult struct {
		n   int
		err error
	}
	ch := make(chan readResult, 1)
	go func() {
		n, err := c.resp.Body.Read(c.scratch[:want])
		ch <- readResult{n: n, err: err}
	}()

	select {
	case <-ctx.Done():
		c.cancel()
		return 0, fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	case r := <-ch:
		if r.err != nil && r.err != io.EOF {
			return 0, fmt.Errorf("%w: %v", ErrAborted, r.err)
		}
		copy(p, c.scratch[:r.n])
		s.logger.Debug().Int("conn", int(h)).Int("bytes", r.n).Msg("substrate: read")
		return r.n, r.err
	}
}

// Write implements Client. Bytes go into the request body pipe; the
// transmit happens on the request goroutine.
func (s *HTTPClient) Write(ctx context.Context, h Handle, p []byte) error {
	c, err := s.lookup(h)
	if err != nil {
		return err
	}
	if c.body == nil {
		return fmt.Errorf("connection %d is not writable", int(h))
	}

	ch := make(chan error, 1)
	go func() {
		_, err := c.body.Write(p)
		ch <- err
	}()

	select {
	case <-ctx.Done():
		c.body.CloseWithError(ctx.Err())
		c.cancel()
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	case err := <-ch:
		if err != nil {
			return fmt.Errorf("failed to send request body: %w", err)
		}
		s.logger.Debug().Int("conn", int(h)).Int("bytes", len(p)).Msg("substrate: write")
		return nil
	}
}

// Close implements Client: cancels the exchange, tears down the body and
// response, and forgets the handle.
func (s *HTTPClient) Close(h Handle) error {
	s.mu.Lock()
	c, ok := s.conns[h]
	delete(s.conns, h)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, int(h))
	}

	if c.body != nil {
		c.body.CloseWithError(context.Canceled)
	}
	if c.resp != nil {
		c.resp.Body.Close()
	}
	c.cancel()
	s.logger.Debug().Int("conn", int(h)).Msg("substrate: closed")
	return nil
}

func (s *HTTPClient) register(c *conn) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := Handle(s.nextID)
	s.conns[h] = c
	return h
}

func (s *HTTPClient) lookup(h Handle) (*conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, int(h))
	}
	return c, nil
}
