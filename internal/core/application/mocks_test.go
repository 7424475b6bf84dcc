package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/envelope"
)

// mockTransport is an in-memory Transport recording the order of calls and
// handing out a scripted reply stream.
type mockTransport struct {
	mtx       sync.Mutex
	calls     []string
	published []nostr.Event
	replies   chan nostr.Event
	fetched   []nostr.Event
	closed    bool

	// onPublish lets a test inject replies the moment the request goes out.
	onPublish func(event nostr.Event)
}

func newMockTransport() *mockTransport {
	return &mockTransport{replies: make(chan nostr.Event, 16)}
}

func (m *mockTransport) Publish(_ context.Context, event nostr.Event) error {
	m.mtx.Lock()
	m.calls = append(m.calls, "publish")
	m.published = append(m.published, event)
	onPublish := m.onPublish
	m.mtx.Unlock()

	if onPublish != nil {
		onPublish(event)
	}
	return nil
}

func (m *mockTransport) Subscribe(
	_ context.Context, _ nostr.Filter,
) (<-chan nostr.Event, func(), error) {
	m.mtx.Lock()
	m.calls = append(m.calls, "subscribe")
	m.mtx.Unlock()

	return m.replies, func() {
		m.mtx.Lock()
		m.closed = true
		m.mtx.Unlock()
	}, nil
}

func (m *mockTransport) Fetch(
	_ context.Context, _ nostr.Filter, _ time.Duration,
) ([]nostr.Event, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.calls = append(m.calls, "fetch")
	return m.fetched, nil
}

func (m *mockTransport) callOrder() []string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]string{}, m.calls...)
}

func (m *mockTransport) subClosed() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.closed
}

func newTestKeys(t *testing.T) (secretKey, pubKey string) {
	t.Helper()
	secretKey = nostr.GeneratePrivateKey()
	pubKey, err := nostr.GetPublicKey(secretKey)
	require.NoError(t, err)
	return secretKey, pubKey
}

func uint64Ptr(v uint64) *uint64 { return &v }

// wrapReply builds a fully encrypted reply envelope the way the marketplace
// would: tuple sealed with the sender key, gift wrapped to the receiver.
func wrapReply(
	t *testing.T, message *domain.Message, senderSecret, receiverPub string,
) nostr.Event {
	t.Helper()

	tuple, err := json.Marshal(domain.SignedMessage{Message: message})
	require.NoError(t, err)

	seal, err := envelope.Seal(envelope.SealOpts{
		Payload:         string(tuple),
		SenderSecretKey: senderSecret,
		ReceiverPubKey:  receiverPub,
	})
	require.NoError(t, err)

	wrap, err := envelope.Wrap(envelope.WrapOpts{
		Seal:           seal,
		ReceiverPubKey: receiverPub,
	})
	require.NoError(t, err)
	return *wrap
}
