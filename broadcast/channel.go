// Package broadcast provides the shared channel tabs coordinate over.
// The in-process Hub serves tabs living in one process; RedisChannel
// bridges tabs spread across processes through Redis pub/sub. Both
// deliver every published envelope to every other live subscriber,
// best-effort and unordered.
package broadcast

import (
	"context"

	"pkt.systems/parley/schema"
)

// Channel is one tab's handle on the shared broadcast medium. A tab
// does not receive its own publishes. Delivery is best-effort: slow
// receivers may drop messages, and cross-tab ordering is not
// guaranteed.
type Channel interface {
	// Publish sends an envelope to every other subscriber.
	Publish(ctx context.Context, env schema.Envelope) error
	// Messages yields envelopes from other subscribers. The channel is
	// closed after Close.
	Messages() <-chan schema.Envelope
	// Close detaches from the medium and closes Messages.
	Close() error
}
