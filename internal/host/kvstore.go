package host

import (
	"context"
	"encoding/json"
	"strings"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// KeyValueStore is the key-value half of the reference host. Keyspaces are key prefixes in a
// single badger database and values are stored as JSON documents.
type KeyValueStore struct {
	log logrus.FieldLogger
	db  *badger.DB
}

// OpenKeyValueStore opens a badger database in dir, or an in-memory one when dir is empty.
func OpenKeyValueStore(log logrus.FieldLogger, dir string) (*KeyValueStore, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}

	// Route badger logging through logrus.
	opts = opts.WithLogger(badgerLogger{log: log.WithField("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open kv store")
	}

	return &KeyValueStore{
		log: log.WithField("component", "kvstore"),
		db:  db,
	}, nil
}

// validKeyspace rejects empty names and keyspaces containing the NUL separator.
func validKeyspace(keyspace, key string) bool {
	return keyspace != "" && key != "" && !strings.Contains(keyspace, "\x00")
}

func kvKey(keyspace, key string) []byte {
	return []byte(keyspace + "\x00" + key)
}

// KVStore writes value under key in keyspace, replacing any previous value.
func (s *KeyValueStore) KVStore(_ context.Context, keyspace, key string, value json.RawMessage) error {
	if !validKeyspace(keyspace, key) {
		return ErrInvalidKeyspace
	}

	if !json.Valid(value) {
		return ErrInvalidValue
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(kvKey(keyspace, key), value)
	})
	if err != nil {
		return errors.WithMessagef(err, "could not store %s/%s", keyspace, key)
	}

	s.log.WithFields(logrus.Fields{
		"keyspace": keyspace,
		"key":      key,
		"bytes":    len(value),
	}).Debug("stored value")

	return nil
}

// KVRead returns the value stored under key in keyspace.
func (s *KeyValueStore) KVRead(_ context.Context, keyspace, key string) (json.RawMessage, bool, error) {
	if !validKeyspace(keyspace, key) {
		return nil, false, ErrInvalidKeyspace
	}

	var valCopy []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(kvKey(keyspace, key))
		if err != nil {
			return err
		}

		valCopy, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, errors.WithMessagef(err, "could not read %s/%s", keyspace, key)
	}

	return json.RawMessage(valCopy), true, nil
}

// Close closes the underlying database.
func (s *KeyValueStore) Close() error {
	return errors.WithMessage(s.db.Close(), "could not close kv store")
}

// badgerLogger adapts logrus to badger.Logger, demoting badger's chatter to debug.
type badgerLogger struct {
	log logrus.FieldLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }
