// Package streaminghttp mounts the server's single endpoint as a standard
// net/http handler and multiplexes two protocols over it, auto-detected per
// connection: synchronous JSON-RPC request/response for POSTed bodies that
// claim JSON-RPC framing, and a long-lived Server-Sent-Events stream for
// everything else.
//
// Responsibilities
//   - Protocol-mode detection (structural JSON-RPC predicate on POST bodies)
//   - JSON-RPC dispatch via dispatch.Dispatcher, one envelope per request,
//     bare 200 acknowledgments for notifications
//   - SSE session lifecycle: handshake burst (open, ready, one resource event
//     per registered resource), periodic keep-alive comments, cleanup on
//     peer disconnect
//   - The static info document served on every other path
//
// Request bodies that are not JSON-RPC shaped, including unparsable JSON, fold
// into the SSE path rather than failing: no JSON-RPC contract was claimed, so
// none is broken.
package streaminghttp
