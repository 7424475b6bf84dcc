package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager holds all the badgerhold stores in a single data structure.
// Orders and trade keys live in separate directories so the key material
// can be backed up or wiped independently of the order history.
type DbManager struct {
	OrderStore *badgerhold.Store
	KeyStore   *badgerhold.Store
}

// NewDbManager opens (or creates if not exists) the badger stores under the
// given base data dir, with an optional logger.
func NewDbManager(baseDbDir string, logger badger.Logger) (*DbManager, error) {
	orderDb, err := createDb(filepath.Join(baseDbDir, "orders"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening orders db: %w", err)
	}

	keyDb, err := createDb(filepath.Join(baseDbDir, "keys"), logger)
	if err != nil {
		return nil, fmt.Errorf("opening keys db: %w", err)
	}

	return &DbManager{
		OrderStore: orderDb,
		KeyStore:   keyDb,
	}, nil
}

// Close releases both underlying stores.
func (d *DbManager) Close() error {
	if err := d.OrderStore.Close(); err != nil {
		return err
	}
	return d.KeyStore.Close()
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
