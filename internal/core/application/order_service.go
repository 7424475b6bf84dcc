package application

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/google/uuid"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
	"github.com/MostroP2P/mostro-cli-sub000/internal/core/ports"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/envelope"
	"github.com/MostroP2P/mostro-cli-sub000/pkg/wallet"
)

// OrderService drives the order lifecycle against the marketplace: it
// derives trade keys, builds and seals protocol messages, correlates the
// replies and reconciles the resulting state into the local store.
type OrderService struct {
	transport    ports.Transport
	correlator   *Correlator
	orderRepo    domain.OrderRepository
	keyRepo      domain.TradeKeyRepository
	wallet       *wallet.Wallet
	mostroPubKey string
}

// NewOrderService returns a service bound to the given marketplace pubkey.
func NewOrderService(
	transport ports.Transport,
	correlator *Correlator,
	orderRepo domain.OrderRepository,
	keyRepo domain.TradeKeyRepository,
	w *wallet.Wallet,
	mostroPubKey string,
) (*OrderService, error) {
	if transport == nil {
		return nil, ErrNullTransport
	}
	if correlator == nil {
		return nil, fmt.Errorf("missing correlator")
	}
	if orderRepo == nil || keyRepo == nil {
		return nil, fmt.Errorf("missing repositories")
	}
	if w == nil {
		return nil, fmt.Errorf("missing wallet")
	}
	if len(mostroPubKey) <= 0 {
		return nil, fmt.Errorf("missing marketplace pubkey")
	}
	return &OrderService{
		transport:    transport,
		correlator:   correlator,
		orderRepo:    orderRepo,
		keyRepo:      keyRepo,
		wallet:       w,
		mostroPubKey: mostroPubKey,
	}, nil
}

// NewOrder publishes a new order and waits for the marketplace to confirm
// it. On confirmation the order, bound to a freshly derived trade key, is
// persisted and returned.
func (s *OrderService) NewOrder(
	ctx context.Context, order domain.Order,
) (*domain.Order, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	tradeKey, err := s.nextTradeKey(ctx)
	if err != nil {
		return nil, err
	}

	requestID := newRequestID()
	message := &domain.Message{
		Version:    domain.MessageVersion,
		RequestID:  &requestID,
		TradeIndex: &tradeKey.Index,
		Action:     domain.ActionNewOrder,
		Payload:    &domain.Payload{Order: &order},
	}

	reply, err := s.sendAndWait(ctx, message, tradeKey)
	if err != nil {
		return nil, err
	}

	confirmed := order
	if reply.Message.Payload != nil && reply.Message.Payload.Order != nil {
		confirmed = *reply.Message.Payload.Order
	}
	if confirmed.ID == "" && reply.Message.ID != nil {
		confirmed.ID = reply.Message.ID.String()
	}
	confirmed.TradeIndex = tradeKey.Index
	switch confirmed.Kind {
	case domain.OrderKindSell:
		confirmed.SellerTradePubkey = tradeKey.PubKey
	case domain.OrderKindBuy:
		confirmed.BuyerTradePubkey = tradeKey.PubKey
	}

	if err := s.orderRepo.SaveOrder(ctx, confirmed); err != nil {
		return nil, err
	}
	tradeKey.OrderID = confirmed.ID
	if err := s.keyRepo.SaveTradeKey(ctx, *tradeKey); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id":    confirmed.ID,
		"trade_index": tradeKey.Index,
	}).Info("order published")
	return &confirmed, nil
}

// TakeSell takes somebody else's sell order. The optional invoice is where
// the seller's sats will be paid out; the optional amount selects a point
// inside a range order.
func (s *OrderService) TakeSell(
	ctx context.Context, orderID, invoice string, amount *int64,
) (*IncomingMessage, error) {
	var payload *domain.Payload
	if invoice != "" {
		request := &domain.PaymentRequest{Invoice: invoice}
		if amount != nil {
			request.Amount = *amount
		}
		payload = &domain.Payload{PaymentRequest: request}
	} else if amount != nil {
		payload = &domain.Payload{Amount: amount}
	}
	return s.takeOrder(ctx, orderID, domain.ActionTakeSell, payload)
}

// TakeBuy takes somebody else's buy order.
func (s *OrderService) TakeBuy(
	ctx context.Context, orderID string, amount *int64,
) (*IncomingMessage, error) {
	var payload *domain.Payload
	if amount != nil {
		payload = &domain.Payload{Amount: amount}
	}
	return s.takeOrder(ctx, orderID, domain.ActionTakeBuy, payload)
}

func (s *OrderService) takeOrder(
	ctx context.Context, orderID string, action domain.Action,
	payload *domain.Payload,
) (*IncomingMessage, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: order id %q is not a valid uuid",
			domain.ErrSerialization, orderID)
	}

	tradeKey, err := s.nextTradeKey(ctx)
	if err != nil {
		return nil, err
	}

	requestID := newRequestID()
	message := &domain.Message{
		Version:    domain.MessageVersion,
		ID:         &id,
		RequestID:  &requestID,
		TradeIndex: &tradeKey.Index,
		Action:     action,
		Payload:    payload,
	}

	reply, err := s.sendAndWait(ctx, message, tradeKey)
	if err != nil {
		return nil, err
	}

	taken := domain.Order{
		ID:         orderID,
		Status:     domain.StatusInProgress,
		TradeIndex: tradeKey.Index,
	}
	if reply.Message.Payload != nil && reply.Message.Payload.Order != nil {
		taken = *reply.Message.Payload.Order
		taken.TradeIndex = tradeKey.Index
	}
	if err := s.orderRepo.SaveOrder(ctx, taken); err != nil {
		return nil, err
	}
	tradeKey.OrderID = orderID
	if err := s.keyRepo.SaveTradeKey(ctx, *tradeKey); err != nil {
		return nil, err
	}
	return reply, nil
}

// Cancel asks the marketplace to cancel the order. A still-pending order is
// removed from the local store on success; an already-taken one is kept with
// its updated status for the record.
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	order, reply, err := s.lifecycle(ctx, orderID, domain.ActionCancel)
	if err != nil {
		return err
	}

	if order.Status == domain.StatusPending {
		return s.orderRepo.DeleteOrder(ctx, orderID)
	}
	order.Status = domain.StatusCanceled
	if reply.Message.Payload != nil && reply.Message.Payload.Order != nil {
		order.Status = reply.Message.Payload.Order.Status
	}
	return s.orderRepo.SaveOrder(ctx, *order)
}

// FiatSent notifies the counterparty that the fiat payment went out.
func (s *OrderService) FiatSent(ctx context.Context, orderID string) error {
	order, _, err := s.lifecycle(ctx, orderID, domain.ActionFiatSent)
	if err != nil {
		return err
	}
	order.Status = domain.StatusFiatSent
	return s.orderRepo.SaveOrder(ctx, *order)
}

// Release settles the trade, releasing the held sats to the buyer.
func (s *OrderService) Release(ctx context.Context, orderID string) error {
	order, _, err := s.lifecycle(ctx, orderID, domain.ActionRelease)
	if err != nil {
		return err
	}
	order.Status = domain.StatusSettledHoldInvoice
	return s.orderRepo.SaveOrder(ctx, *order)
}

// Dispute opens a dispute on the order.
func (s *OrderService) Dispute(ctx context.Context, orderID string) error {
	order, _, err := s.lifecycle(ctx, orderID, domain.ActionDispute)
	if err != nil {
		return err
	}
	order.Status = domain.StatusDispute
	return s.orderRepo.SaveOrder(ctx, *order)
}

// RateUser rates the counterparty of a finished trade, 1 to 5.
func (s *OrderService) RateUser(
	ctx context.Context, orderID string, rating int,
) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5")
	}

	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	tradeKey, err := s.tradeKeyFor(ctx, order)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("%w: order id %q is not a valid uuid",
			domain.ErrSerialization, orderID)
	}
	requestID := newRequestID()
	message := &domain.Message{
		Version:   domain.MessageVersion,
		ID:        &id,
		RequestID: &requestID,
		Action:    domain.ActionRateUser,
		Payload:   &domain.Payload{RatingUser: &rating},
	}

	_, err = s.sendAndWait(ctx, message, tradeKey)
	return err
}

// ListOrders fetches the current public order book and reconciles it into
// one latest snapshot per order.
func (s *OrderService) ListOrders(
	ctx context.Context, filters OrderFilters, lookback time.Duration,
) ([]domain.Order, error) {
	events, err := s.fetchPublicRecords(ctx, "order", lookback)
	if err != nil {
		return nil, err
	}
	return ReconcileOrders(events, filters), nil
}

// ListDisputes fetches and reconciles the public dispute records.
func (s *OrderService) ListDisputes(
	ctx context.Context, lookback time.Duration,
) ([]domain.Dispute, error) {
	events, err := s.fetchPublicRecords(ctx, "dispute", lookback)
	if err != nil {
		return nil, err
	}
	return ReconcileDisputes(events), nil
}

func (s *OrderService) fetchPublicRecords(
	ctx context.Context, recordType string, lookback time.Duration,
) ([]nostr.Event, error) {
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := nostr.Timestamp(time.Now().Add(-lookback).Unix())
	filter := nostr.Filter{
		Kinds:   []int{domain.EventKindOrder},
		Authors: []string{s.mostroPubKey},
		Tags: nostr.TagMap{
			"y": []string{domain.PlatformTag},
			"z": []string{recordType},
		},
		Since: &since,
	}
	return s.transport.Fetch(ctx, filter, 10*time.Second)
}

// RestoreSession rebuilds local state from the seed alone: it asks the
// marketplace which orders belong to this identity, re-syncs the last used
// trade index and re-persists every order snapshot.
func (s *OrderService) RestoreSession(ctx context.Context) ([]domain.Order, error) {
	identity, err := s.identityKey()
	if err != nil {
		return nil, err
	}

	requestID := newRequestID()
	message := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: &requestID,
		Action:    domain.ActionRestoreSession,
	}
	reply, err := s.sendAndWait(ctx, message, identity)
	if err != nil {
		return nil, err
	}

	if err := s.SyncTradeIndex(ctx); err != nil {
		log.WithError(err).Warn("trade index sync failed during restore")
	}

	if reply.Message.Payload == nil || len(reply.Message.Payload.IDs) == 0 {
		return nil, nil
	}

	restored := make([]domain.Order, 0, len(reply.Message.Payload.IDs))
	for _, orderID := range reply.Message.Payload.IDs {
		order, err := s.getOrderSnapshot(ctx, identity, orderID)
		if err != nil {
			log.WithError(err).WithField("order_id", orderID).
				Warn("order snapshot lookup failed during restore")
			continue
		}
		if err := s.orderRepo.SaveOrder(ctx, *order); err != nil {
			return nil, err
		}
		restored = append(restored, *order)
	}
	return restored, nil
}

// getOrderSnapshot performs a single-id batch lookup against the
// marketplace.
func (s *OrderService) getOrderSnapshot(
	ctx context.Context, key *domain.TradeKey, orderID string,
) (*domain.Order, error) {
	requestID := newRequestID()
	message := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: &requestID,
		Action:    domain.ActionOrders,
		Payload:   &domain.Payload{IDs: []string{orderID}},
	}
	reply, err := s.sendAndWait(ctx, message, key)
	if err != nil {
		return nil, err
	}
	if reply.Message.Payload == nil || reply.Message.Payload.Order == nil {
		return nil, fmt.Errorf("%w: orders reply carries no order snapshot",
			domain.ErrSerialization)
	}
	return reply.Message.Payload.Order, nil
}

// SyncTradeIndex asks the marketplace for the last trade index it has seen
// for this identity and fast-forwards the local one if it lags behind. The
// index must never move backwards, or a bound trade key would be reused.
func (s *OrderService) SyncTradeIndex(ctx context.Context) error {
	identity, err := s.identityKey()
	if err != nil {
		return err
	}

	requestID := newRequestID()
	message := &domain.Message{
		Version:   domain.MessageVersion,
		RequestID: &requestID,
		Action:    domain.ActionLastTradeIndex,
	}
	reply, err := s.sendAndWait(ctx, message, identity)
	if err != nil {
		return err
	}
	if reply.Message.TradeIndex == nil {
		return nil
	}

	local, err := s.keyRepo.GetLastTradeIndex(ctx)
	if err != nil {
		return err
	}
	if *reply.Message.TradeIndex > local {
		return s.keyRepo.SetLastTradeIndex(ctx, *reply.Message.TradeIndex)
	}
	return nil
}

// lifecycle sends a single-order verb with the trade key already bound to
// the order.
func (s *OrderService) lifecycle(
	ctx context.Context, orderID string, action domain.Action,
) (*domain.Order, *IncomingMessage, error) {
	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	tradeKey, err := s.tradeKeyFor(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: order id %q is not a valid uuid",
			domain.ErrSerialization, orderID)
	}
	requestID := newRequestID()
	message := &domain.Message{
		Version:   domain.MessageVersion,
		ID:        &id,
		RequestID: &requestID,
		Action:    action,
	}

	reply, err := s.sendAndWait(ctx, message, tradeKey)
	if err != nil {
		return nil, nil, err
	}
	return order, reply, nil
}

func (s *OrderService) tradeKeyFor(
	ctx context.Context, order *domain.Order,
) (*domain.TradeKey, error) {
	if order.TradeIndex == 0 {
		return nil, ErrOrderNotTaken
	}
	return s.keyRepo.GetTradeKey(ctx, order.TradeIndex)
}

// nextTradeKey derives, persists and returns a brand new trade key,
// advancing the last used index. Indexes strictly increase for the lifetime
// of the installation.
func (s *OrderService) nextTradeKey(ctx context.Context) (*domain.TradeKey, error) {
	last, err := s.keyRepo.GetLastTradeIndex(ctx)
	if err != nil {
		return nil, err
	}
	index := wallet.NextTradeIndex(last)

	keyPair, err := s.wallet.DeriveTradeKeyPair(wallet.DeriveTradeKeyOpts{
		Index: index,
	})
	if err != nil {
		return nil, err
	}

	tradeKey := domain.TradeKey{
		Index:     index,
		SecretKey: keyPair.PrivateHex(),
		PubKey:    keyPair.PublicHex(),
		CreatedAt: time.Now().Unix(),
	}
	if err := s.keyRepo.SaveTradeKey(ctx, tradeKey); err != nil {
		return nil, err
	}
	if err := s.keyRepo.SetLastTradeIndex(ctx, index); err != nil {
		return nil, err
	}
	return &tradeKey, nil
}

// identityKey exposes the account identity as a pseudo trade key at index 0
// so it can flow through the same signing and sealing path.
func (s *OrderService) identityKey() (*domain.TradeKey, error) {
	keyPair, err := s.wallet.DeriveIdentityKeyPair()
	if err != nil {
		return nil, err
	}
	return &domain.TradeKey{
		SecretKey: keyPair.PrivateHex(),
		PubKey:    keyPair.PublicHex(),
	}, nil
}

// sendAndWait signs, seals, wraps and publishes the message, then waits for
// the correlated reply. A cant-do reply is surfaced as an error naming the
// action and the marketplace's reason verbatim.
func (s *OrderService) sendAndWait(
	ctx context.Context, message *domain.Message, tradeKey *domain.TradeKey,
) (*IncomingMessage, error) {
	wrap, err := buildRequestEvent(message, tradeKey, s.mostroPubKey)
	if err != nil {
		return nil, err
	}

	var requestID uint64
	if message.RequestID != nil {
		requestID = *message.RequestID
	}
	reply, err := s.correlator.SendRequest(ctx, RequestOpts{
		Event:           wrap,
		ReplyKeys:       []string{tradeKey.SecretKey},
		RequestID:       requestID,
		ExpectedActions: []domain.Action{message.Action, domain.ActionCantDo},
	})
	if err != nil {
		return nil, err
	}

	if reason, ok := reply.Message.CantDoReason(); ok {
		return nil, fmt.Errorf("%s rejected: %s", message.Action, reason)
	}
	return reply, nil
}

// buildRequestEvent produces the two-layer encrypted request: the signed
// message tuple sealed with the trade key and gift wrapped to the receiver.
func buildRequestEvent(
	message *domain.Message, tradeKey *domain.TradeKey, receiverPubKey string,
) (*nostr.Event, error) {
	secretBytes, err := hex.DecodeString(tradeKey.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSerialization, err)
	}
	privateKey, _ := btcec.PrivKeyFromBytes(secretBytes)

	signature, err := domain.SignMessage(message, privateKey)
	if err != nil {
		return nil, err
	}
	tuple, err := json.Marshal(domain.SignedMessage{
		Message:   message,
		Signature: signature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSerialization, err)
	}

	seal, err := envelope.Seal(envelope.SealOpts{
		Payload:         string(tuple),
		SenderSecretKey: tradeKey.SecretKey,
		ReceiverPubKey:  receiverPubKey,
	})
	if err != nil {
		return nil, err
	}
	return envelope.Wrap(envelope.WrapOpts{
		Seal:           seal,
		ReceiverPubKey: receiverPubKey,
	})
}

// newRequestID draws a non-zero random request id.
func newRequestID() uint64 {
	buf := make([]byte, 8)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		if id := binary.BigEndian.Uint64(buf); id != 0 {
			return id
		}
	}
}
