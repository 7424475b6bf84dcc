package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/MostroP2P/mostro-cli-sub000/internal/core/domain"
)

// lastTradeIndexKey addresses the single record tracking the highest trade
// index ever handed out.
const lastTradeIndexKey = "last_trade_index"

type tradeIndexRecord struct {
	ID   string `badgerhold:"key"`
	Last uint32
}

type tradeKeyRepositoryImpl struct {
	db *DbManager
}

// NewTradeKeyRepositoryImpl returns a badger backed domain.TradeKeyRepository.
func NewTradeKeyRepositoryImpl(db *DbManager) domain.TradeKeyRepository {
	return tradeKeyRepositoryImpl{
		db: db,
	}
}

func (t tradeKeyRepositoryImpl) GetTradeKey(
	_ context.Context, index uint32,
) (*domain.TradeKey, error) {
	var key domain.TradeKey
	if err := t.db.KeyStore.Get(index, &key); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTradeKeyNotFound
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return &key, nil
}

func (t tradeKeyRepositoryImpl) GetAllTradeKeys(
	_ context.Context,
) ([]*domain.TradeKey, error) {
	var all []domain.TradeKey
	if err := t.db.KeyStore.Find(&all, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStore, err)
	}

	keys := make([]*domain.TradeKey, 0, len(all))
	for i := range all {
		keys = append(keys, &all[i])
	}
	return keys, nil
}

func (t tradeKeyRepositoryImpl) SaveTradeKey(
	_ context.Context, key domain.TradeKey,
) error {
	if err := t.db.KeyStore.Upsert(key.Index, key); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return nil
}

func (t tradeKeyRepositoryImpl) GetLastTradeIndex(
	_ context.Context,
) (uint32, error) {
	var record tradeIndexRecord
	if err := t.db.KeyStore.Get(lastTradeIndexKey, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return record.Last, nil
}

func (t tradeKeyRepositoryImpl) SetLastTradeIndex(
	_ context.Context, index uint32,
) error {
	record := tradeIndexRecord{ID: lastTradeIndexKey, Last: index}
	if err := t.db.KeyStore.Upsert(record.ID, record); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStore, err)
	}
	return nil
}
