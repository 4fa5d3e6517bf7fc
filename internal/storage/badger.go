// Package storage provides the BadgerDB-backed key-value storage used by
// the triple store.
package storage

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/sjhuskey/copticqa/pkg/store"
)

// BadgerStorage implements store.Storage using BadgerDB.
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens a BadgerDB-backed storage at the given path.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// NewMemoryStorage opens an in-memory BadgerDB instance. Nothing is
// persisted; intended for tests and ephemeral loads.
func NewMemoryStorage() (*BadgerStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger db: %w", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Begin starts a new transaction.
func (s *BadgerStorage) Begin(writable bool) (store.Transaction, error) {
	return &BadgerTransaction{
		txn:      s.db.NewTransaction(writable),
		writable: writable,
	}, nil
}

// Close closes the storage.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk.
func (s *BadgerStorage) Sync() error {
	return s.db.Sync()
}

// BadgerTransaction implements store.Transaction.
type BadgerTransaction struct {
	txn      *badger.Txn
	writable bool
}

// Get retrieves a value by key.
func (t *BadgerTransaction) Get(table store.Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(store.PrefixKey(table, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores a key-value pair.
func (t *BadgerTransaction) Set(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Set(store.PrefixKey(table, key), value)
}

// Delete removes a key.
func (t *BadgerTransaction) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrTransactionRO
	}
	return t.txn.Delete(store.PrefixKey(table, key))
}

// Scan iterates over keys with the given prefix.
func (t *BadgerTransaction) Scan(table store.Table, prefix []byte) (store.Iterator, error) {
	tablePrefix := store.TablePrefix(table)

	scanPrefix := tablePrefix
	if prefix != nil {
		scanPrefix = store.PrefixKey(table, prefix)
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = scanPrefix
	it := t.txn.NewIterator(opts)

	return &BadgerIterator{
		it:          it,
		tablePrefix: tablePrefix,
		seekKey:     scanPrefix,
	}, nil
}

// Commit commits the transaction.
func (t *BadgerTransaction) Commit() error {
	return t.txn.Commit()
}

// Rollback discards the transaction.
func (t *BadgerTransaction) Rollback() error {
	t.txn.Discard()
	return nil
}

// BadgerIterator implements store.Iterator.
type BadgerIterator struct {
	it          *badger.Iterator
	tablePrefix []byte
	seekKey     []byte
	started     bool
	hasValue    bool
}

// Next advances to the next item.
func (i *BadgerIterator) Next() bool {
	if !i.started {
		i.it.Seek(i.seekKey)
		i.started = true
	} else {
		i.it.Next()
	}

	i.hasValue = i.it.Valid()
	return i.hasValue
}

// Key returns the current key without the table prefix.
func (i *BadgerIterator) Key() []byte {
	if !i.hasValue {
		return nil
	}

	key := i.it.Item().Key()
	if len(key) > len(i.tablePrefix) {
		return key[len(i.tablePrefix):]
	}
	return nil
}

// Value returns the current value.
func (i *BadgerIterator) Value() ([]byte, error) {
	if !i.hasValue {
		return nil, store.ErrNotFound
	}

	var value []byte
	err := i.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close closes the iterator.
func (i *BadgerIterator) Close() error {
	i.it.Close()
	return nil
}
