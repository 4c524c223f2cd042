package substrate

import (
	"context"
	"errors"
)

// Handle identifies one open request/response exchange held by the
// substrate. Handles are allocated by Connect and are only meaningful to
// the Client that issued them; they must not be shared between streams.
type Handle int

// NoHandle is the sentinel for "no connection established yet".
const NoHandle Handle = -1

var (
	// ErrAborted is returned when an in-flight read is cut short by
	// cancellation or by the substrate losing the exchange.
	ErrAborted = errors.New("request aborted")

	// ErrUnknownHandle is returned when a handle does not refer to an
	// open exchange, typically after Close or from a stale copy.
	ErrUnknownHandle = errors.New("unknown connection handle")
)

// Client is the asynchronous HTTP substrate the smart transport delegates
// network I/O to. Calls block the caller until the underlying operation
// completes; the asynchrony stays inside the implementation.
type Client interface {
	// Connect opens an exchange against url with the given method and
	// headers. bufSize is the initial read buffer the substrate should
	// allocate for the response.
	Connect(ctx context.Context, url string, bufSize int, method string, headers map[string]string) (Handle, error)

	// Read copies up to len(p) response bytes for the exchange into p.
	// End of the response is reported as io.EOF; repeated reads after
	// that keep returning (0, io.EOF).
	Read(ctx context.Context, h Handle, p []byte) (int, error)

	// Write sends len(p) request body bytes for the exchange. The
	// substrate buffers and transmits; no response is consumed here.
	Write(ctx context.Context, h Handle, p []byte) error

	// Close releases the exchange and invalidates the handle.
	Close(h Handle) error
}
