// Package envelope implements the two-layer encryption used to deliver
// private marketplace messages over the public broadcast network. The inner
// seal is signed by the real sender and encrypted to the receiver; the outer
// gift wrap is encrypted and signed with a fresh single-use key, so the
// public record never links back to the sender.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
)

const (
	// KindSeal is the kind of the inner signed record. It is never
	// published on its own.
	KindSeal = 13
	// KindGiftWrap is the kind of the outer encrypted transport record.
	KindGiftWrap = 1059
	// KindDirectMessage is the kind of the single-layer, sender-linkable
	// variant.
	KindDirectMessage = 4
)

var (
	// ErrEnvelopeDecrypt is returned whenever an envelope cannot be opened
	// with any of the provided keys. It is expected for events addressed to
	// somebody else, so batch callers skip the record instead of failing.
	ErrEnvelopeDecrypt = errors.New("envelope cannot be decrypted")

	// ErrNullPayload ...
	ErrNullPayload = errors.New("payload must not be null")
	// ErrNullSeal ...
	ErrNullSeal = errors.New("seal event must not be null")
	// ErrNullSenderSecretKey ...
	ErrNullSenderSecretKey = errors.New("sender secret key must not be null")
	// ErrNullReceiverPubKey ...
	ErrNullReceiverPubKey = errors.New("receiver public key must not be null")
	// ErrNullCandidateKeys ...
	ErrNullCandidateKeys = errors.New("candidate key list must not be empty")
	// ErrNotGiftWrap ...
	ErrNotGiftWrap = errors.New("event is not a gift wrap")
)

// SealOpts is the struct given to the Seal method
type SealOpts struct {
	Payload         string
	SenderSecretKey string
	ReceiverPubKey  string
}

func (o SealOpts) validate() error {
	if len(o.Payload) <= 0 {
		return ErrNullPayload
	}
	if len(o.SenderSecretKey) <= 0 {
		return ErrNullSenderSecretKey
	}
	if len(o.ReceiverPubKey) <= 0 {
		return ErrNullReceiverPubKey
	}
	return nil
}

// Seal builds the inner record: the payload encrypted under the shared key
// of the real sender and the receiver, signed by the real sender. The seal
// travels only inside a gift wrap.
func Seal(opts SealOpts) (*nostr.Event, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	conversationKey, err := nip44.GenerateConversationKey(
		opts.ReceiverPubKey, opts.SenderSecretKey,
	)
	if err != nil {
		return nil, err
	}
	content, err := nip44.Encrypt(opts.Payload, conversationKey)
	if err != nil {
		return nil, err
	}

	seal := &nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindSeal,
		Tags:      nostr.Tags{},
		Content:   content,
	}
	if err := seal.Sign(opts.SenderSecretKey); err != nil {
		return nil, err
	}
	return seal, nil
}

// WrapOpts is the struct given to the Wrap method
type WrapOpts struct {
	Seal           *nostr.Event
	ReceiverPubKey string
	// Expiration is an optional unix timestamp after which relays may drop
	// the record. Zero means no expiration tag.
	Expiration int64
}

func (o WrapOpts) validate() error {
	if o.Seal == nil {
		return ErrNullSeal
	}
	if len(o.ReceiverPubKey) <= 0 {
		return ErrNullReceiverPubKey
	}
	return nil
}

// Wrap encrypts the serialized seal to the receiver under a fresh single-use
// key pair and signs the resulting record with that same ephemeral key. The
// only plaintext routing hint left on the wire is the receiver tag.
func Wrap(opts WrapOpts) (*nostr.Event, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(opts.Seal)
	if err != nil {
		return nil, err
	}

	ephemeralSecretKey := nostr.GeneratePrivateKey()
	conversationKey, err := nip44.GenerateConversationKey(
		opts.ReceiverPubKey, ephemeralSecretKey,
	)
	if err != nil {
		return nil, err
	}
	content, err := nip44.Encrypt(string(plaintext), conversationKey)
	if err != nil {
		return nil, err
	}

	tags := nostr.Tags{{"p", opts.ReceiverPubKey}}
	if opts.Expiration > 0 {
		tags = append(tags, nostr.Tag{
			"expiration", fmt.Sprintf("%d", opts.Expiration),
		})
	}

	wrap := &nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindGiftWrap,
		Tags:      tags,
		Content:   content,
	}
	if err := wrap.Sign(ephemeralSecretKey); err != nil {
		return nil, err
	}
	return wrap, nil
}

// OpenOpts is the struct given to the Open method
type OpenOpts struct {
	Envelope *nostr.Event
	// CandidateSecretKeys are the local secret keys the envelope may be
	// addressed to, usually every trade key plus the identity key. The list
	// is scanned linearly; the codec never reaches into any key storage.
	CandidateSecretKeys []string
}

func (o OpenOpts) validate() error {
	if o.Envelope == nil {
		return ErrNullSeal
	}
	if o.Envelope.Kind != KindGiftWrap {
		return ErrNotGiftWrap
	}
	if len(o.CandidateSecretKeys) <= 0 {
		return ErrNullCandidateKeys
	}
	return nil
}

// Open tries every candidate key against the outer layer and, on success,
// opens the inner seal with the same local key and the seal's own signer to
// recover the plaintext payload and the authenticated sender public key.
// It returns ErrEnvelopeDecrypt when no candidate key works, which callers
// processing a batch of foreign records must treat as skip, not fatal.
func Open(opts OpenOpts) (payload string, senderPubKey string, err error) {
	if err := opts.validate(); err != nil {
		return "", "", err
	}

	for _, secretKey := range opts.CandidateSecretKeys {
		seal, ok := openOuter(opts.Envelope, secretKey)
		if !ok {
			continue
		}
		return openSeal(seal, secretKey)
	}
	return "", "", ErrEnvelopeDecrypt
}

// openOuter peels the gift wrap with a single local key. A failure here just
// means the record was not addressed to this key.
func openOuter(envelope *nostr.Event, secretKey string) (*nostr.Event, bool) {
	conversationKey, err := nip44.GenerateConversationKey(
		envelope.PubKey, secretKey,
	)
	if err != nil {
		return nil, false
	}
	plaintext, err := nip44.Decrypt(envelope.Content, conversationKey)
	if err != nil {
		return nil, false
	}
	if !utf8.ValidString(plaintext) {
		return nil, false
	}

	seal := &nostr.Event{}
	if err := json.Unmarshal([]byte(plaintext), seal); err != nil {
		return nil, false
	}
	if seal.Kind != KindSeal {
		return nil, false
	}
	return seal, true
}

// openSeal decrypts the inner layer with the shared key of the local key and
// the seal's signer, the real sender.
func openSeal(seal *nostr.Event, secretKey string) (string, string, error) {
	if ok, err := seal.CheckSignature(); err != nil || !ok {
		return "", "", fmt.Errorf("%w: invalid seal signature", ErrEnvelopeDecrypt)
	}

	conversationKey, err := nip44.GenerateConversationKey(seal.PubKey, secretKey)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrEnvelopeDecrypt, err)
	}
	payload, err := nip44.Decrypt(seal.Content, conversationKey)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrEnvelopeDecrypt, err)
	}
	if !utf8.ValidString(payload) {
		return "", "", fmt.Errorf("%w: payload is not valid utf8", ErrEnvelopeDecrypt)
	}
	return payload, seal.PubKey, nil
}
