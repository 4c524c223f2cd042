package smart

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fenilsonani/smarthttp/internal/substrate"
)

// DefaultBufSize is the initial response buffer requested from the
// substrate when a stream first connects.
const DefaultBufSize = 64 * 1024

// Stream is one logical request/response channel for a single protocol
// phase. It implements io.Reader and io.Writer over an exchange that is
// opened lazily: the first read or write connects, every later call
// reuses the same connection handle. A stream is single-use; after it
// completes or fails the caller discards it and requests a new one.
type Stream struct {
	ctx     context.Context
	client  substrate.Client
	logger  zerolog.Logger
	service Service
	url     string
	headers map[string]string
	conn    substrate.Handle
}

// URL returns the full service URL this stream targets.
func (s *Stream) URL() string { return s.url }

// Service returns the operation this stream was opened for.
func (s *Stream) Service() Service { return s.service }

// Read implements io.Reader. An unconnected stream connects first: GET,
// since a read-first stream is a discovery request. End of the response
// is io.EOF; a substrate abort is reported as a request-aborted error
// with no partial count.
func (s *Stream) Read(p []byte) (int, error) {
	if s.conn == substrate.NoHandle {
		if err := s.connect(http.MethodGet, ""); err != nil {
			return 0, err
		}
	}

	n, err := s.client.Read(s.ctx, s.conn, p)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("request aborted by user: %w", err)
	}
	return n, err
}

// Write implements io.Writer. An unconnected stream connects with POST
// and the content type implied by the pack direction of its URL, then
// sends exactly len(p) bytes. Writes never consume response bytes; those
// come back through Read once the request body is complete.
func (s *Stream) Write(p []byte) (int, error) {
	if s.conn == substrate.NoHandle {
		if err := s.connect(http.MethodPost, contentTypeFor(s.url)); err != nil {
			return 0, err
		}
	}

	if err := s.client.Write(s.ctx, s.conn, p); err != nil {
		return 0, fmt.Errorf("failed to send %d bytes: %w", len(p), err)
	}
	return len(p), nil
}

// connect opens the exchange. On failure the stream stays unconnected so
// no half-assigned handle survives.
func (s *Stream) connect(method, contentType string) error {
	headers := make(map[string]string, len(s.headers)+1)
	for k, v := range s.headers {
		headers[k] = v
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	h, err := s.client.Connect(s.ctx, s.url, DefaultBufSize, method, headers)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	s.conn = h
	s.logger.Debug().
		Stringer("service", s.service).
		Str("method", method).
		Int("conn", int(h)).
		Msg("stream connected")
	return nil
}

// Free releases the stream's substrate connection, if any, and renders
// the stream unusable. Safe to call on an unconnected stream.
func (s *Stream) Free() {
	if s.conn == substrate.NoHandle {
		return
	}
	if err := s.client.Close(s.conn); err != nil {
		s.logger.Debug().Err(err).Int("conn", int(s.conn)).Msg("stream release failed")
	}
	s.conn = substrate.NoHandle
}

// contentTypeFor picks the POST request content type from the pack
// direction the URL targets, mirroring how the service URLs are built.
func contentTypeFor(url string) string {
	if strings.Contains(url, "git-upload-pack") {
		return "application/x-git-upload-pack-request"
	}
	return "application/x-git-receive-pack-request"
}
