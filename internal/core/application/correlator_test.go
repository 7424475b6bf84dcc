package application

import (
	"context"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

func newRequestEvent(t *testing.T, receiverPub string) *nostr.Event {
	t.Helper()
	senderSecret, _ := newTestKeys(t)
	message := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: uint64Ptr(1),
		Action:    domain.ActionNewOrder,
	}
	event := wrapReply(t, message, senderSecret, receiverPub)
	return &event
}

func TestSendRequestTimesOut(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, 150*time.Millisecond)
	require.NoError(t, err)

	tradeSecret, tradePub := newTestKeys(t)
	_, err = correlator.SendRequest(context.Background(), RequestOpts{
		Event:     newRequestEvent(t, tradePub),
		ReplyKeys: []string{tradeSecret},
		RequestID: 42,
	})
	assert.ErrorIs(t, err, ErrResponseTimeout)
	assert.True(t, transport.subClosed(), "timed-out wait must release its subscription")
}

func TestSendRequestSubscribesBeforePublishing(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, 100*time.Millisecond)
	require.NoError(t, err)

	tradeSecret, tradePub := newTestKeys(t)
	_, _ = correlator.SendRequest(context.Background(), RequestOpts{
		Event:     newRequestEvent(t, tradePub),
		ReplyKeys: []string{tradeSecret},
		RequestID: 42,
	})

	require.GreaterOrEqual(t, len(transport.callOrder()), 2)
	assert.Equal(t, []string{"subscribe", "publish"}, transport.callOrder()[:2])
}

func TestSendRequestMatchesByRequestID(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, 3*time.Second)
	require.NoError(t, err)

	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)

	foreign := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: uint64Ptr(2),
		Action:    domain.ActionNewOrder,
	}
	wanted := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: uint64Ptr(1),
		Action:    domain.ActionNewOrder,
	}

	transport.onPublish = func(nostr.Event) {
		// a foreign reply lands first, then the correlated one
		transport.replies <- wrapReply(t, foreign, mostroSecret, tradePub)
		transport.replies <- wrapReply(t, wanted, mostroSecret, tradePub)
	}

	reply, err := correlator.SendRequest(context.Background(), RequestOpts{
		Event:     newRequestEvent(t, tradePub),
		ReplyKeys: []string{tradeSecret},
		RequestID: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.Message.RequestID)
	assert.Equal(t, uint64(1), *reply.Message.RequestID)
}

func TestSendRequestMatchesByActionFallback(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, 3*time.Second)
	require.NoError(t, err)

	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)

	unrelated := &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionRateReceived,
	}
	expected := &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionPayInvoice,
	}
	transport.onPublish = func(nostr.Event) {
		transport.replies <- wrapReply(t, unrelated, mostroSecret, tradePub)
		transport.replies <- wrapReply(t, expected, mostroSecret, tradePub)
	}

	reply, err := correlator.SendRequest(context.Background(), RequestOpts{
		Event:           newRequestEvent(t, tradePub),
		ReplyKeys:       []string{tradeSecret},
		ExpectedActions: []domain.Action{domain.ActionPayInvoice},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionPayInvoice, reply.Message.Action)
}

func TestSendRequestSkipsForeignEnvelopes(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, 3*time.Second)
	require.NoError(t, err)

	mostroSecret, _ := newTestKeys(t)
	tradeSecret, tradePub := newTestKeys(t)
	_, strangerPub := newTestKeys(t)

	wanted := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: uint64Ptr(7),
		Action:    domain.ActionCancel,
	}
	transport.onPublish = func(nostr.Event) {
		// an envelope for somebody else arrives on the shared subscription
		transport.replies <- wrapReply(t, wanted, mostroSecret, strangerPub)
		transport.replies <- wrapReply(t, wanted, mostroSecret, tradePub)
	}

	reply, err := correlator.SendRequest(context.Background(), RequestOpts{
		Event:     newRequestEvent(t, tradePub),
		ReplyKeys: []string{tradeSecret},
		RequestID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCancel, reply.Message.Action)
}

func TestSendRequestValidation(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, time.Second)
	require.NoError(t, err)

	tradeSecret, tradePub := newTestKeys(t)
	tests := []struct {
		name string
		opts RequestOpts
		err  error
	}{
		{
			name: "missing event",
			opts: RequestOpts{ReplyKeys: []string{tradeSecret}, RequestID: 1},
			err:  ErrNullRequestEvent,
		},
		{
			name: "missing reply keys",
			opts: RequestOpts{Event: newRequestEvent(t, tradePub), RequestID: 1},
			err:  ErrNullReplyKeys,
		},
		{
			name: "no match rule",
			opts: RequestOpts{
				Event:     newRequestEvent(t, tradePub),
				ReplyKeys: []string{tradeSecret},
			},
			err: ErrNullMatchRule,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := correlator.SendRequest(context.Background(), tt.opts)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestSendRequestCancellation(t *testing.T) {
	transport := newMockTransport()
	correlator, err := NewCorrelator(transport, time.Minute)
	require.NoError(t, err)

	tradeSecret, tradePub := newTestKeys(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = correlator.SendRequest(ctx, RequestOpts{
		Event:     newRequestEvent(t, tradePub),
		ReplyKeys: []string{tradeSecret},
		RequestID: 9,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, transport.subClosed())
}
