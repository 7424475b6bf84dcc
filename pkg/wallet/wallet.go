package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyDerivation is the root of every derivation failure. Callers can
	// match the whole family with errors.Is.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrNullMnemonic ...
	ErrNullMnemonic = fmt.Errorf("%w: mnemonic is null", ErrKeyDerivation)
	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = fmt.Errorf("%w: mnemonic is invalid", ErrKeyDerivation)
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrNullTradeIndex ...
	ErrNullTradeIndex = fmt.Errorf(
		"%w: trade key index must be a positive integer", ErrKeyDerivation,
	)
	// ErrOutOfRangeTradeIndex ...
	ErrOutOfRangeTradeIndex = fmt.Errorf(
		"%w: trade key index exceeds the max hardened derivation value",
		ErrKeyDerivation,
	)
)

// Wallet derives the account identity key pair and the per-trade key pairs
// from a single BIP39 mnemonic. Derivation is deterministic: the same pair
// (mnemonic, index) always yields the same keys, which is what allows
// restoring every trade conversation from the seed alone.
type Wallet struct {
	mnemonic  []string
	masterKey []byte
}

// NewWalletOpts is the struct given to the NewWallet method. A zero
// EntropySize defaults to 128 bits, ie. a 12 word mnemonic.
type NewWalletOpts struct {
	EntropySize int
}

func (o NewWalletOpts) validate() error {
	if o.EntropySize == 0 {
		return nil
	}
	if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewWallet creates a new wallet with a freshly generated mnemonic
func NewWallet(opts NewWalletOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	mnemonic, err := generateMnemonic(opts.EntropySize)
	if err != nil {
		return nil, err
	}

	seed := generateSeedFromMnemonic(mnemonic)
	masterKey, err := generateMasterKey(seed)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		mnemonic:  mnemonic,
		masterKey: masterKey,
	}, nil
}

// NewWalletFromMnemonicOpts is the struct given to the NewWalletFromMnemonic
// method
type NewWalletFromMnemonicOpts struct {
	Mnemonic []string
}

func (o NewWalletFromMnemonicOpts) validate() error {
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !isMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	return nil
}

// NewWalletFromMnemonic restores a wallet from an existing mnemonic
func NewWalletFromMnemonic(opts NewWalletFromMnemonicOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	seed := generateSeedFromMnemonic(opts.Mnemonic)
	masterKey, err := generateMasterKey(seed)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		mnemonic:  opts.Mnemonic,
		masterKey: masterKey,
	}, nil
}

// Mnemonic returns the wallet's mnemonic as a list of words
func (w *Wallet) Mnemonic() []string {
	return w.mnemonic
}

func (w *Wallet) validate() error {
	if len(w.mnemonic) <= 0 || len(w.masterKey) <= 0 {
		return ErrNullMnemonic
	}
	return nil
}
