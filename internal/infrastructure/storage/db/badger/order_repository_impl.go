package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

type orderRepositoryImpl struct {
	db *DbManager
}

// NewOrderRepositoryImpl returns a badger backed domain.OrderRepository.
func NewOrderRepositoryImpl(db *DbManager) domain.OrderRepository {
	return orderRepositoryImpl{
		db: db,
	}
}

func (o orderRepositoryImpl) GetOrder(
	_ context.Context, id string,
) (*domain.Order, error) {
	var order domain.Order
	if err := o.db.OrderStore.Get(id, &order); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return &order, nil
}

func (o orderRepositoryImpl) GetAllOrders(
	_ context.Context,
) ([]*domain.Order, error) {
	var all []domain.Order
	if err := o.db.OrderStore.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStore, err)
	}

	orders := make([]*domain.Order, 0, len(all))
	for i := range all {
		orders = append(orders, &all[i])
	}
	return orders, nil
}

func (o orderRepositoryImpl) SaveOrder(
	_ context.Context, order domain.Order,
) error {
	if err := o.db.OrderStore.Upsert(order.ID, order); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return nil
}

func (o orderRepositoryImpl) DeleteOrder(
	_ context.Context, id string,
) error {
	if err := o.db.OrderStore.Delete(id, domain.Order{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return nil
}
