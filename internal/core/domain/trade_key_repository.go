package domain

import "context"

// TradeKey is the persisted reference to a locally derived per-trade key
// pair. The secret key is stored so past conversations stay readable without
// re-deriving the whole hierarchy on every fetch.
type TradeKey struct {
	Index     uint32 `badgerhold:"key" json:"index"`
	SecretKey string `json:"secret_key"`
	PubKey    string `json:"pub_key"`
	OrderID   string `json:"order_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// TradeKeyRepository persists per-trade keys and the monotonically
// increasing last-used trade index. The index never moves backwards: a trade
// key is never reused once bound to an order.
type TradeKeyRepository interface {
	// GetTradeKey returns the key derived at the given index, or
	// ErrTradeKeyNotFound.
	GetTradeKey(ctx context.Context, index uint32) (*TradeKey, error)
	// GetAllTradeKeys returns every persisted trade key.
	GetAllTradeKeys(ctx context.Context) ([]*TradeKey, error)
	// SaveTradeKey inserts or replaces the key at its index.
	SaveTradeKey(ctx context.Context, key TradeKey) error
	// GetLastTradeIndex returns the last used index, 0 when no trade key was
	// ever derived.
	GetLastTradeIndex(ctx context.Context) (uint32, error)
	// SetLastTradeIndex records the last used index.
	SetLastTradeIndex(ctx context.Context, index uint32) error
}
