package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// purposeIndex is the BIP43 purpose segment of the derivation path.
	purposeIndex = 44
	// coinTypeIndex is the registered coin type for broadcast-network
	// identities.
	coinTypeIndex = 1237
	// identityAccount is the account index reserved for the long-lived
	// account identity key. Trade keys start at account 1.
	identityAccount = 0
)

// KeyPair is a secp256k1 key pair derived from the wallet seed.
type KeyPair struct {
	PrivateKey *btcec.PrivateKey
	PublicKey  *btcec.PublicKey
}

// PrivateHex returns the 32-byte secret key in hex format, as expected by
// the broadcast-network event signer.
func (k *KeyPair) PrivateHex() string {
	return hex.EncodeToString(k.PrivateKey.Serialize())
}

// PublicHex returns the 32-byte x-only public key in hex format, the form
// events and recipient tags carry on the wire.
func (k *KeyPair) PublicHex() string {
	return hex.EncodeToString(k.PublicKey.SerializeCompressed()[1:])
}

// DeriveIdentityKeyPair derives the long-lived account identity key pair,
// fixed at account 0 of the hierarchy.
func (w *Wallet) DeriveIdentityKeyPair() (*KeyPair, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w.deriveAccountKeyPair(identityAccount)
}

// DeriveTradeKeyOpts is the struct given to the DeriveTradeKeyPair method
type DeriveTradeKeyOpts struct {
	Index uint32
}

func (o DeriveTradeKeyOpts) validate() error {
	if o.Index == 0 {
		return ErrNullTradeIndex
	}
	if o.Index > MaxHardenedValue {
		return ErrOutOfRangeTradeIndex
	}
	return nil
}

// DeriveTradeKeyPair derives the key pair bound to a single negotiation.
// Index 1 is the first trade key; index 0 is reserved for the identity.
func (w *Wallet) DeriveTradeKeyPair(opts DeriveTradeKeyOpts) (*KeyPair, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := w.validate(); err != nil {
		return nil, err
	}
	return w.deriveAccountKeyPair(opts.Index)
}

// NextTradeIndex returns the index to use for the next negotiation given the
// last used one. A last used index of 0 means no trade key was ever derived.
func NextTradeIndex(lastUsed uint32) uint32 {
	if lastUsed == 0 {
		return 1
	}
	return lastUsed + 1
}

// deriveAccountKeyPair walks the m/44'/1237'/account'/0/0 path from the
// wallet master key.
func (w *Wallet) deriveAccountKeyPair(account uint32) (*KeyPair, error) {
	hdNode, err := hdkeychain.NewKeyFromString(base58.Encode(w.masterKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyDerivation, err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + purposeIndex,
		hdkeychain.HardenedKeyStart + coinTypeIndex,
		hdkeychain.HardenedKeyStart + account,
		0,
		0,
	}
	for _, step := range path {
		hdNode, err = hdNode.Derive(step)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrKeyDerivation, err)
		}
	}

	privateKey, err := hdNode.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrKeyDerivation, err)
	}

	return &KeyPair{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PubKey(),
	}, nil
}
