package ports

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Transport is the abstraction over the broadcast network. Delivery is best
// effort: Publish gives no delivery guarantee, so flows that expect a reply
// must always go through a timeout-bounded wait.
type Transport interface {
	// Publish sends a signed record to the network.
	Publish(ctx context.Context, event nostr.Event) error
	// Subscribe opens a live stream of records matching the filter. The
	// returned close function releases the subscription; it must be called
	// once the caller is done, matched or not.
	Subscribe(ctx context.Context, filter nostr.Filter) (<-chan nostr.Event, func(), error)
	// Fetch collects the stored records matching the filter, waiting at most
	// the given timeout for the network to drain.
	Fetch(ctx context.Context, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error)
}
