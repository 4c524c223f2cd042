// Package substrate defines the asynchronous HTTP client boundary the
// smart transport delegates network I/O to, and provides the production
// implementation over net/http.
//
// The Client interface is deliberately narrow: Connect opens one
// request/response exchange and yields an opaque Handle, Read and Write
// move bytes for that exchange, Close releases it. Every call presents a
// blocking face to the caller while the implementation runs the actual
// I/O on its own goroutines and hands completions back over channels.
//
// Example usage:
//
//	client := substrate.NewHTTPClient(zerolog.Nop())
//	h, err := client.Connect(ctx, url, 64*1024, http.MethodGet, headers)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(h)
//	n, err := client.Read(ctx, h, buf)
//
// Handles are single-owner: the stream that obtained one is the only
// caller that may read, write, or close through it.
package substrate
