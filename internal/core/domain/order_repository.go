package domain

import "context"

// OrderRepository is the abstraction for any kind of database intended to
// persist the user's own orders.
type OrderRepository interface {
	// GetOrder returns the order with the given id, or ErrOrderNotFound.
	GetOrder(ctx context.Context, id string) (*Order, error)
	// GetAllOrders returns every persisted order.
	GetAllOrders(ctx context.Context) ([]*Order, error)
	// SaveOrder inserts or replaces the order as a whole; concurrent callers
	// never observe a partial write.
	SaveOrder(ctx context.Context, order Order) error
	// DeleteOrder removes the order with the given id. Deleting a missing
	// order is not an error.
	DeleteOrder(ctx context.Context, id string) error
}
