package domain

import "errors"

var (
	// ErrTagDecode is thrown when a public broadcast record carries tags that
	// cannot be projected back into a domain entity. Batch consumers skip the
	// record and keep going.
	ErrTagDecode = errors.New("record tags cannot be decoded")
	// ErrSerialization is thrown when a single message being built or parsed
	// has an invalid shape. Fatal for that message only.
	ErrSerialization = errors.New("message cannot be serialized")
	// ErrStore is the root of every persistence failure. Never silently
	// dropped.
	ErrStore = errors.New("local store failure")
	// ErrOrderNotFound ...
	ErrOrderNotFound = errors.New("order not found")
	// ErrTradeKeyNotFound ...
	ErrTradeKeyNotFound = errors.New("trade key not found")
	// ErrExclusiveFiatFields is thrown when an order carries both an exact
	// fiat amount and a min/max range.
	ErrExclusiveFiatFields = errors.New(
		"fiat amount and min/max range are mutually exclusive",
	)
	// ErrInvalidFiatRange ...
	ErrInvalidFiatRange = errors.New("fiat range min must be lower than max")
)
