package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/ports"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/envelope"
)

// maxParallelMailboxFetches bounds the number of concurrent per-key fetches
// against the relays.
const maxParallelMailboxFetches = 8

// MessageService reads and writes private conversations: every trade key is
// its own mailbox on the broadcast network.
type MessageService struct {
	transport ports.Transport
	keyRepo   domain.TradeKeyRepository
	identity  *domain.TradeKey
}

// NewMessageService returns a service reading mailboxes for every persisted
// trade key plus the given identity key.
func NewMessageService(
	transport ports.Transport,
	keyRepo domain.TradeKeyRepository,
	identity *domain.TradeKey,
) (*MessageService, error) {
	if transport == nil {
		return nil, ErrNullTransport
	}
	if keyRepo == nil {
		return nil, fmt.Errorf("missing trade key repository")
	}
	if identity == nil || identity.SecretKey == "" {
		return nil, fmt.Errorf("missing identity key")
	}
	return &MessageService{
		transport: transport,
		keyRepo:   keyRepo,
		identity:  identity,
	}, nil
}

// FetchMessages drains every mailbox in parallel and reconciles the whole
// haul into one chat-ordered list. Records that fail to decrypt belong to
// somebody else and are skipped.
func (s *MessageService) FetchMessages(
	ctx context.Context, since time.Time,
) ([]IncomingMessage, error) {
	keys, err := s.candidateKeys(ctx)
	if err != nil {
		return nil, err
	}

	var sinceTS nostr.Timestamp
	if !since.IsZero() {
		sinceTS = nostr.Timestamp(since.Unix())
	}

	var mtx sync.Mutex
	events := []nostr.Event{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelMailboxFetches)
	for _, secretKey := range keys {
		secretKey := secretKey
		eg.Go(func() error {
			pubKey, err := nostr.GetPublicKey(secretKey)
			if err != nil {
				return err
			}
			filter := nostr.Filter{
				Kinds: []int{envelope.KindGiftWrap},
				Tags:  nostr.TagMap{"p": []string{pubKey}},
			}
			if sinceTS > 0 {
				filter.Since = &sinceTS
			}
			batch, err := s.transport.Fetch(egCtx, filter, 10*time.Second)
			if err != nil {
				return err
			}
			mtx.Lock()
			events = append(events, batch...)
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var sinceUnix int64
	if !since.IsZero() {
		sinceUnix = since.Unix()
	}
	return ReconcileMessages(events, keys, sinceUnix), nil
}

// SendDirectMessage gift wraps a text message straight to a peer. Delivery
// is fire and forget; a conversation does not correlate replies.
func (s *MessageService) SendDirectMessage(
	ctx context.Context, peerPubKey, text string, tradeIndex uint32,
) error {
	if len(peerPubKey) <= 0 {
		return fmt.Errorf("missing peer pubkey")
	}
	if len(text) <= 0 {
		return fmt.Errorf("missing message text")
	}

	senderKey := s.identity
	if tradeIndex > 0 {
		tradeKey, err := s.keyRepo.GetTradeKey(ctx, tradeIndex)
		if err != nil {
			return err
		}
		senderKey = tradeKey
	}

	message := &domain.Message{
		Version: domain.MessageVersion,
		Action:  domain.ActionSendDm,
		Payload: &domain.Payload{TextMessage: text},
	}
	wrap, err := buildRequestEvent(message, senderKey, peerPubKey)
	if err != nil {
		return err
	}

	if err := s.transport.Publish(ctx, *wrap); err != nil {
		return err
	}
	log.WithField("peer", peerPubKey).Debug("direct message published")
	return nil
}

// candidateKeys collects every local secret key a private record may be
// addressed to. The set is sourced once per operation and threaded
// explicitly; nothing below this layer reaches into the store.
func (s *MessageService) candidateKeys(ctx context.Context) ([]string, error) {
	tradeKeys, err := s.keyRepo.GetAllTradeKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(tradeKeys)+1)
	keys = append(keys, s.identity.SecretKey)
	for _, tradeKey := range tradeKeys {
		keys = append(keys, tradeKey.SecretKey)
	}
	return keys, nil
}
