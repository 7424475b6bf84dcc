package envelope

import (
	"errors"
	"unicode/utf8"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
)

// ErrNotDirectMessage ...
var ErrNotDirectMessage = errors.New("event is not a direct message")

// DirectEncryptOpts is the struct given to the DirectEncrypt method
type DirectEncryptOpts struct {
	Payload         string
	SenderSecretKey string
	ReceiverPubKey  string
}

func (o DirectEncryptOpts) validate() error {
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

// DirectEncrypt builds the single-layer variant: the payload encrypted under
// the shared key of the two real parties and signed by the real sender. It
// trades sender unlinkability for one less layer of key material, which some
// latency-sensitive flows accept.
func DirectEncrypt(opts DirectEncryptOpts) (*nostr.Event, error) {
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

	event := &nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindDirectMessage,
		Tags:      nostr.Tags{{"p", opts.ReceiverPubKey}},
		Content:   content,
	}
	if err := event.Sign(opts.SenderSecretKey); err != nil {
		return nil, err
	}
	return event, nil
}

// DirectDecryptOpts is the struct given to the DirectDecrypt method
type DirectDecryptOpts struct {
	Event             *nostr.Event
	ReceiverSecretKey string
}

func (o DirectDecryptOpts) validate() error {
	if o.Event == nil {
		return ErrNullSeal
	}
	if o.Event.Kind != KindDirectMessage {
		return ErrNotDirectMessage
	}
	if len(o.ReceiverSecretKey) <= 0 {
		return ErrNullSenderSecretKey
	}
	return nil
}

// DirectDecrypt opens a single-layer message with the receiver key. The
// sender is simply the event signer.
func DirectDecrypt(opts DirectDecryptOpts) (payload string, senderPubKey string, err error) {
	if err := opts.validate(); err != nil {
		return "", "", err
	}

	conversationKey, err := nip44.GenerateConversationKey(
		opts.Event.PubKey, opts.ReceiverSecretKey,
	)
	if err != nil {
		return "", "", ErrEnvelopeDecrypt
	}
	plaintext, err := nip44.Decrypt(opts.Event.Content, conversationKey)
	if err != nil {
		return "", "", ErrEnvelopeDecrypt
	}
	if !utf8.ValidString(plaintext) {
		return "", "", ErrEnvelopeDecrypt
	}
	return plaintext, opts.Event.PubKey, nil
}
