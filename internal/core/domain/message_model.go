package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/google/uuid"
)

// MessageVersion is the protocol revision spoken by this client.
const MessageVersion = 1

// Action is the verb of a protocol message.
type Action string

const (
	ActionNewOrder                   Action = "new-order"
	ActionTakeSell                   Action = "take-sell"
	ActionTakeBuy                    Action = "take-buy"
	ActionPayInvoice                 Action = "pay-invoice"
	ActionAddInvoice                 Action = "add-invoice"
	ActionFiatSent                   Action = "fiat-sent"
	ActionRelease                    Action = "release"
	ActionCancel                     Action = "cancel"
	ActionRate                       Action = "rate"
	ActionRateUser                   Action = "rate-user"
	ActionRateReceived               Action = "rate-received"
	ActionOrders                     Action = "orders"
	ActionLastTradeIndex             Action = "last-trade-index"
	ActionRestoreSession             Action = "restore-session"
	ActionSendDm                     Action = "send-dm"
	ActionCantDo                     Action = "cant-do"
	ActionDispute                    Action = "dispute"
	ActionDisputeInitiatedByYou      Action = "dispute-initiated-by-you"
	ActionDisputeInitiatedByPeer     Action = "dispute-initiated-by-peer"
	ActionWaitingSellerToPay         Action = "waiting-seller-to-pay"
	ActionWaitingBuyerInvoice        Action = "waiting-buyer-invoice"
	ActionHoldInvoicePaymentAccepted Action = "hold-invoice-payment-accepted"
	ActionPurchaseCompleted          Action = "purchase-completed"
)

// CantDoReason enumerates the rejection reasons the marketplace may answer
// with. User-facing errors report the reason verbatim.
type CantDoReason string

const (
	CantDoOutOfRangeFiatAmount CantDoReason = "out-of-range-fiat-amount"
	CantDoOutOfRangeSatsAmount CantDoReason = "out-of-range-sats-amount"
	CantDoInvalidTradeIndex    CantDoReason = "invalid-trade-index"
	CantDoInvalidAmount        CantDoReason = "invalid-amount"
	CantDoInvalidInvoice       CantDoReason = "invalid-invoice"
	CantDoInvalidOrderKind     CantDoReason = "invalid-order-kind"
	CantDoInvalidOrderStatus   CantDoReason = "invalid-order-status"
	CantDoInvalidPubkey        CantDoReason = "invalid-pubkey"
	CantDoInvalidParameters    CantDoReason = "invalid-parameters"
	CantDoInvalidSignature     CantDoReason = "invalid-signature"
	CantDoOrderAlreadyCanceled CantDoReason = "order-already-canceled"
	CantDoIsNotYourOrder       CantDoReason = "is-not-your-order"
	CantDoNotAllowedByStatus   CantDoReason = "not-allowed-by-status"
)

// PaymentRequest carries a lightning invoice and, for market-priced orders,
// the amount it was generated for.
type PaymentRequest struct {
	Invoice string `json:"invoice"`
	Amount  int64  `json:"amount,omitempty"`
}

// Payload is the typed content of a message. Exactly one field is set;
// which one is valid depends on the action and is enforced by the
// counterparty's schema rather than by this client.
type Payload struct {
	Order          *Order          `json:"order,omitempty"`
	PaymentRequest *PaymentRequest `json:"payment_request,omitempty"`
	TextMessage    string          `json:"text_message,omitempty"`
	RatingUser     *int            `json:"rating_user,omitempty"`
	IDs            []string        `json:"ids,omitempty"`
	Amount         *int64          `json:"amount,omitempty"`
	CantDo         *CantDoReason   `json:"cant-do,omitempty"`
}

// Message is the logical protocol message exchanged inside envelopes.
type Message struct {
	Version    int        `json:"version"`
	ID         *uuid.UUID `json:"id,omitempty"`
	RequestID  *uint64    `json:"request_id,omitempty"`
	TradeIndex *uint32    `json:"trade_index,omitempty"`
	Action     Action     `json:"action"`
	Payload    *Payload   `json:"payload,omitempty"`
}

// CantDoReason extracts the rejection reason of a cant-do reply, if any.
func (m *Message) CantDoReason() (CantDoReason, bool) {
	if m.Action != ActionCantDo || m.Payload == nil || m.Payload.CantDo == nil {
		return "", false
	}
	return *m.Payload.CantDo, true
}

// wireMessage is the category wrapper the protocol puts around a message on
// the wire: {"order": {...}}, {"dispute": {...}} or {"cant-do": {...}}.
type wireMessage struct {
	Order   *Message `json:"order,omitempty"`
	Dispute *Message `json:"dispute,omitempty"`
	CantDo  *Message `json:"cant-do,omitempty"`
}

func (m *Message) wire() wireMessage {
	switch m.Action {
	case ActionCantDo:
		return wireMessage{CantDo: m}
	case ActionDispute, ActionDisputeInitiatedByYou, ActionDisputeInitiatedByPeer:
		return wireMessage{Dispute: m}
	default:
		return wireMessage{Order: m}
	}
}

// EncodeMessage serializes a message with its category wrapper.
func EncodeMessage(m *Message) (string, error) {
	if m == nil {
		return "", fmt.Errorf("%w: message is null", ErrSerialization)
	}
	data, err := json.Marshal(m.wire())
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	return string(data), nil
}

// DecodeMessage parses a wrapped message regardless of its category.
func DecodeMessage(data string) (*Message, error) {
	wire := wireMessage{}
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	switch {
	case wire.Order != nil:
		return wire.Order, nil
	case wire.Dispute != nil:
		return wire.Dispute, nil
	case wire.CantDo != nil:
		return wire.CantDo, nil
	}
	return nil, fmt.Errorf("%w: unknown message category", ErrSerialization)
}

// SignedMessage is the (message, optional detached signature) tuple carried
// as the seal plaintext.
type SignedMessage struct {
	Message   *Message
	Signature string
}

// MarshalJSON encodes the tuple as a two-element JSON array; a missing
// signature becomes null.
func (s SignedMessage) MarshalJSON() ([]byte, error) {
	wrapped, err := EncodeMessage(s.Message)
	if err != nil {
		return nil, err
	}
	var sig interface{}
	if s.Signature != "" {
		sig = s.Signature
	}
	return json.Marshal([]interface{}{json.RawMessage(wrapped), sig})
}

// UnmarshalJSON accepts both the two-element tuple and a bare wrapped
// message.
func (s *SignedMessage) UnmarshalJSON(data []byte) error {
	elems := []json.RawMessage{}
	if err := json.Unmarshal(data, &elems); err != nil {
		// not an array: treat the whole blob as an unsigned message
		message, derr := DecodeMessage(string(data))
		if derr != nil {
			return derr
		}
		s.Message = message
		return nil
	}
	if len(elems) < 1 || len(elems) > 2 {
		return fmt.Errorf(
			"%w: tuple carries %d elements", ErrSerialization, len(elems),
		)
	}

	message, err := DecodeMessage(string(elems[0]))
	if err != nil {
		return err
	}
	s.Message = message

	if len(elems) == 2 && string(elems[1]) != "null" {
		if err := json.Unmarshal(elems[1], &s.Signature); err != nil {
			return fmt.Errorf("%w: %s", ErrSerialization, err)
		}
	}
	return nil
}

// SignMessage produces the detached schnorr signature over the sha256 of the
// wrapped message, proving the trade key authored it.
func SignMessage(m *Message, privateKey *btcec.PrivateKey) (string, error) {
	wrapped, err := EncodeMessage(m)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(wrapped))
	signature, err := schnorr.Sign(privateKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSerialization, err)
	}
	return hex.EncodeToString(signature.Serialize()), nil
}

// VerifyMessageSignature checks a detached signature against the given
// x-only public key in hex format.
func VerifyMessageSignature(m *Message, signatureHex, pubKeyHex string) bool {
	wrapped, err := EncodeMessage(m)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	signature, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	pubKeyBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}
	pubKey, err := schnorr.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(wrapped))
	return signature.Verify(digest[:], pubKey)
}
