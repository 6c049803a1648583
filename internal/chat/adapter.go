package chat

import "context"

// Adapter is the contract every platform adapter implements.
//
// Lifecycle: an adapter is constructed with a stream identifier and its
// platform configuration, Connect establishes the transport and resolves any
// routing identifiers, Listen streams messages until the context is canceled
// or the transport dies, Disconnect releases everything. Instances are
// single-use: reconnecting after Disconnect is not supported.
type Adapter interface {
	// Connect establishes the transport. On partial failure the adapter is
	// left disconnected and the error is returned (ErrConnection,
	// ErrAuthentication or ErrStreamNotFound, wrapped).
	Connect(ctx context.Context) error

	// Listen pushes messages into out in transport arrival order, blocking
	// until ctx is canceled (returns ctx.Err()) or the transport fails
	// (returns the fatal error). Returns ErrNotConnected if Connect has not
	// succeeded. Malformed individual frames are skipped, not fatal.
	Listen(ctx context.Context, out chan<- Message) error

	// Disconnect releases all transport resources. Safe to call after a
	// partial Connect and safe to call more than once.
	Disconnect() error

	// Platform returns the constant platform name.
	Platform() string
}
