// Package transport abstracts the wire a client talks over, so the
// connection layer and the tests do not care about websockets.
package transport

// Transport is a single client's outbound channel. Implementations must
// be safe for concurrent Send calls.
type Transport interface {
	Send(frame string) error
	Close() error
	RemoteAddr() string
}
