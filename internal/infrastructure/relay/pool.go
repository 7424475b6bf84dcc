package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/ports"
)

const (
	connectInitialInterval = 100 * time.Millisecond
	connectMaxInterval     = 2 * time.Second
	connectMaxElapsedTime  = 15 * time.Second

	// events published per second across the whole pool
	publishRateLimit = 10

	subscriptionBuffer = 64
)

// ErrNoRelays ...
var ErrNoRelays = fmt.Errorf("no relay could be connected")

// PoolOpts is the struct given to the NewPool method.
type PoolOpts struct {
	Relays []string
}

func (o PoolOpts) validate() error {
	if len(o.Relays) <= 0 {
		return fmt.Errorf("missing relay urls")
	}
	return nil
}

// Pool fans events out to, and merges events in from, a set of relays. It
// implements ports.Transport: the rest of the codebase never sees an
// individual relay, only the merged, deduplicated stream.
type Pool struct {
	relays  []*nostr.Relay
	limiter ratelimit.Limiter
}

// NewPool connects to the given relays, each with its own retry schedule,
// and returns a pool over the ones that came up.
func NewPool(ctx context.Context, opts PoolOpts) (*Pool, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	relays := make([]*nostr.Relay, 0, len(opts.Relays))
	for _, url := range opts.Relays {
		relay, err := connectWithRetry(ctx, url)
		if err != nil {
			log.WithError(err).WithField("relay", url).Warn("relay unreachable")
			continue
		}
		relays = append(relays, relay)
	}
	if len(relays) <= 0 {
		return nil, ErrNoRelays
	}

	return &Pool{
		relays:  relays,
		limiter: ratelimit.New(publishRateLimit),
	}, nil
}

// Close shuts down every relay connection.
func (p *Pool) Close() {
	for _, relay := range p.relays {
		relay.Close()
	}
}

// Publish sends the event to every relay in the pool. It succeeds as soon
// as one relay accepts the event.
func (p *Pool) Publish(ctx context.Context, event nostr.Event) error {
	p.limiter.Take()

	var (
		wg       sync.WaitGroup
		mtx      sync.Mutex
		accepted int
		lastErr  error
	)
	for _, relay := range p.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()
			if err := relay.Publish(ctx, event); err != nil {
				log.WithError(err).WithField("relay", relay.URL).
					Debug("publish rejected")
				mtx.Lock()
				lastErr = err
				mtx.Unlock()
				return
			}
			mtx.Lock()
			accepted++
			mtx.Unlock()
		}(relay)
	}
	wg.Wait()

	if accepted <= 0 {
		return fmt.Errorf("event %s rejected by all relays: %w", event.ID, lastErr)
	}
	return nil
}

// Subscribe opens the filter on every relay and returns one merged stream.
// Events seen on more than one relay are delivered once. The returned
// function tears the subscription down; the channel is closed once every
// relay stream has ended.
func (p *Pool) Subscribe(
	ctx context.Context, filter nostr.Filter,
) (<-chan nostr.Event, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	subs := make([]*nostr.Subscription, 0, len(p.relays))
	for _, relay := range p.relays {
		sub, err := relay.Subscribe(subCtx, nostr.Filters{filter})
		if err != nil {
			log.WithError(err).WithField("relay", relay.URL).
				Warn("subscription failed")
			continue
		}
		subs = append(subs, sub)
	}
	if len(subs) <= 0 {
		cancel()
		return nil, nil, fmt.Errorf("subscription failed on all relays")
	}

	out := make(chan nostr.Event, subscriptionBuffer)
	seen := newSeenCache()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer wg.Done()
			for {
				select {
				case event, ok := <-sub.Events:
					if !ok {
						return
					}
					if event == nil || !seen.add(event.ID) {
						continue
					}
					select {
					case out <- *event:
					case <-subCtx.Done():
						return
					}
				case <-subCtx.Done():
					return
				}
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	closeSub := func() {
		cancel()
		for _, sub := range subs {
			sub.Unsub()
		}
	}
	return out, closeSub, nil
}

// Fetch collects the stored events matching the filter, waiting for each
// relay's end-of-stored-events marker up to the given timeout.
func (p *Pool) Fetch(
	ctx context.Context, filter nostr.Filter, timeout time.Duration,
) ([]nostr.Event, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mtx    sync.Mutex
		events []nostr.Event
	)
	seen := newSeenCache()

	for _, relay := range p.relays {
		wg.Add(1)
		go func(relay *nostr.Relay) {
			defer wg.Done()
			sub, err := relay.Subscribe(fetchCtx, nostr.Filters{filter})
			if err != nil {
				log.WithError(err).WithField("relay", relay.URL).
					Warn("fetch subscription failed")
				return
			}
			defer sub.Unsub()

			for {
				select {
				case event, ok := <-sub.Events:
					if !ok {
						return
					}
					if event == nil || !seen.add(event.ID) {
						continue
					}
					mtx.Lock()
					events = append(events, *event)
					mtx.Unlock()
				case <-sub.EndOfStoredEvents:
					return
				case <-fetchCtx.Done():
					return
				}
			}
		}(relay)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func connectWithRetry(ctx context.Context, url string) (*nostr.Relay, error) {
	var relay *nostr.Relay

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = connectInitialInterval
	bo.MaxInterval = connectMaxInterval
	bo.MaxElapsedTime = connectMaxElapsedTime

	err := backoff.Retry(func() error {
		var err error
		relay, err = nostr.RelayConnect(ctx, url)
		return err
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}
	return relay, nil
}

// seenCache is the event id dedup set shared by the fan-in goroutines.
type seenCache struct {
	mtx sync.Mutex
	ids map[string]struct{}
}

func newSeenCache() *seenCache {
	return &seenCache{ids: map[string]struct{}{}}
}

// add reports whether the id was seen for the first time.
func (c *seenCache) add(id string) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if _, ok := c.ids[id]; ok {
		return false
	}
	c.ids[id] = struct{}{}
	return true
}

var _ ports.Transport = (*Pool)(nil)
