// Package smart implements the subtransport and stream layer of the git
// smart HTTP protocol.
//
// The protocol engine asks a Subtransport for a Stream per operation
// (ref discovery or pack exchange, upload or receive direction). Streams
// expose plain blocking io.Reader/io.Writer calls while delegating the
// actual network I/O to an asynchronous substrate:
//
//   - the first read or write on a stream opens the connection (GET for
//     discovery, POST for pack exchange, with the matching
//     application/x-git-*-pack-request content type)
//   - every subsequent call reuses the same connection handle
//   - the stream is freed by its owner once the operation completes
//
// Streams are single-use and must be called sequentially; the protocol
// engine already serializes its I/O per stream, so the package adds no
// locking of its own. Distinct streams share nothing.
//
// The four service routes are fixed by the protocol:
//
//	GET  {base}/info/refs?service=git-upload-pack
//	POST {base}/git-upload-pack
//	GET  {base}/info/refs?service=git-receive-pack
//	POST {base}/git-receive-pack
//
// Parsing the ref advertisement and negotiating packs happen above this
// package; implementing HTTP happens below it, in the substrate.
package smart
