package application

import (
	"context"
	"time"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/ports"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/envelope"
)

// subscribeLookback absorbs small clock skew between this client and the
// relays when filtering the reply subscription by time.
const subscribeLookback = time.Minute

// Correlator matches asynchronous replies to outstanding requests. Each wait
// owns exactly one subscription and releases it on match, timeout or
// cancellation.
type Correlator struct {
	transport ports.Transport
	timeout   time.Duration
}

// NewCorrelator returns a correlator enforcing the given per-request
// timeout.
func NewCorrelator(transport ports.Transport, timeout time.Duration) (*Correlator, error) {
	if transport == nil {
		return nil, ErrNullTransport
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Correlator{transport: transport, timeout: timeout}, nil
}

// RequestOpts is the struct given to the SendRequest method
type RequestOpts struct {
	// Event is the fully wrapped request to publish.
	Event *nostr.Event
	// ReplyKeys are the local secret keys a reply may be addressed to,
	// usually just the trade key the request was sealed with.
	ReplyKeys []string
	// RequestID correlates the reply. Zero means the request carries no id
	// and the reply is matched by action instead.
	RequestID uint64
	// ExpectedActions is the action-based fallback match rule.
	ExpectedActions []domain.Action
}

func (o RequestOpts) validate() error {
	if o.Event == nil {
		return ErrNullRequestEvent
	}
	if len(o.ReplyKeys) <= 0 {
		return ErrNullReplyKeys
	}
	if o.RequestID == 0 && len(o.ExpectedActions) <= 0 {
		return ErrNullMatchRule
	}
	return nil
}

// SendRequest publishes the request and suspends the caller until the first
// correlated reply arrives or the timeout elapses. The reply subscription is
// opened before publishing, so a reply cannot slip through between the
// publish and the subscribe. Replies correlating to other requests sharing
// the same transport subscription are ignored, not errors.
func (c *Correlator) SendRequest(
	ctx context.Context, opts RequestOpts,
) (*IncomingMessage, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	replyPubKeys := make([]string, 0, len(opts.ReplyKeys))
	for _, secretKey := range opts.ReplyKeys {
		pubKey, err := nostr.GetPublicKey(secretKey)
		if err != nil {
			return nil, err
		}
		replyPubKeys = append(replyPubKeys, pubKey)
	}

	since := nostr.Timestamp(time.Now().Add(-subscribeLookback).Unix())
	filter := nostr.Filter{
		Kinds: []int{envelope.KindGiftWrap},
		Tags:  nostr.TagMap{"p": replyPubKeys},
		Since: &since,
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies, closeSub, err := c.transport.Subscribe(subCtx, filter)
	if err != nil {
		return nil, err
	}
	defer closeSub()

	if err := c.transport.Publish(ctx, *opts.Event); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-replies:
			if !ok {
				// stream closed before a match; nothing more can arrive
				replies = nil
				continue
			}
			incoming, err := openIncoming(&event, opts.ReplyKeys)
			if err != nil {
				log.WithError(err).Debug("ignoring unreadable reply candidate")
				continue
			}
			if c.matches(incoming, opts) {
				return incoming, nil
			}
		case <-timer.C:
			return nil, ErrResponseTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Correlator) matches(incoming *IncomingMessage, opts RequestOpts) bool {
	if incoming.Message == nil {
		return false
	}
	if opts.RequestID != 0 {
		return incoming.Message.RequestID != nil &&
			*incoming.Message.RequestID == opts.RequestID
	}
	for _, action := range opts.ExpectedActions {
		if incoming.Message.Action == action {
			return true
		}
	}
	return false
}
