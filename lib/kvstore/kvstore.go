// Package kvstore wraps badger with JSON-valued, namespaced keys. The
// capture pipeline and the remote-table configuration share one database
// but live under disjoint prefixes, so wiping one namespace can never
// touch the other's keys.
package kvstore

import (
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
)

var ErrNotFound = badger.ErrKeyNotFound

type DB struct {
	badger *badger.DB
}

func Open(path string) (*DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DB{badger: db}, nil
}

func (db *DB) Close() error {
	return db.badger.Close()
}

func (db *DB) Namespace(name string) Namespace {
	return Namespace{badger: db.badger, prefix: name + ":"}
}

type Namespace struct {
	badger *badger.DB
	prefix string
}

func (n Namespace) key(key string) []byte {
	return []byte(n.prefix + key)
}

// Get unmarshals the value stored under key into out. Returns ErrNotFound
// when the key has never been written or has been deleted.
func (n Namespace) Get(key string, out any) error {
	tx := n.badger.NewTransaction(false)
	defer tx.Discard()

	item, err := tx.Get(n.key(key))
	if err != nil {
		return err
	}
	serialized, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(serialized, out)
}

func (n Namespace) Set(key string, value any) error {
	serialized, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return n.badger.Update(func(tx *badger.Txn) error {
		return tx.Set(n.key(key), serialized)
	})
}

func (n Namespace) Delete(keys ...string) error {
	return n.badger.Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			err := tx.Delete(n.key(key))
			if err != nil {
				return err
			}
		}
		return nil
	})
}
