package stream

import "context"

// Client is the contract the producer depends on to talk to the stream store.
// Configuration (stream, group, consumer identity, default ack policy) is
// resolved when the concrete client is constructed; the producer only ever
// states how many messages it has credit for.
type Client interface {
	// ReceiveMessages fetches at most maxCount messages, returning an empty
	// slice when none are available. Implementations must never return more
	// than maxCount and must not block without an internal bound.
	ReceiveMessages(ctx context.Context, maxCount int) ([]Message, error)

	// Ack acknowledges a single message against the store, removing it from
	// the pending-entries set. Called by downstream code, never by the
	// producer itself.
	Ack(ctx context.Context, msg Message) error
}
