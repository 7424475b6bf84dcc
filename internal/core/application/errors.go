package application

import "errors"

var (
	// ErrResponseTimeout is thrown when no correlated reply arrives within
	// the configured bound. The caller may retry the whole request with a
	// fresh request id; the timed-out subscription is already released.
	ErrResponseTimeout = errors.New("no response received within the timeout")

	// ErrNullTransport ...
	ErrNullTransport = errors.New("missing broadcast transport")
	// ErrNullRequestEvent ...
	ErrNullRequestEvent = errors.New("request event must not be null")
	// ErrNullReplyKeys ...
	ErrNullReplyKeys = errors.New("reply key list must not be empty")
	// ErrNullMatchRule is thrown when a request carries neither a request id
	// nor a set of expected reply actions.
	ErrNullMatchRule = errors.New(
		"either a request id or expected actions must be provided",
	)
	// ErrOrderNotTaken is thrown when a lifecycle verb is sent for an order
	// that has no trade key bound locally.
	ErrOrderNotTaken = errors.New("order has no local trade key bound")
)
