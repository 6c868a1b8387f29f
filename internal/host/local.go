package host

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// LocalConfig locates the reference host's storage. Empty paths select in-memory stores.
type LocalConfig struct {
	SQLitePath string
	KVDir      string
}

// Local is the in-process reference host: a SQLStore and a KeyValueStore behind one Capability.
type Local struct {
	*SQLStore
	*KeyValueStore

	log logrus.FieldLogger
}

// Open opens both stores concurrently.
func Open(ctx context.Context, log logrus.FieldLogger, cfg LocalConfig) (*Local, error) {
	var (
		sqlStore *SQLStore
		kvStore  *KeyValueStore
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s, err := OpenSQLStore(gCtx, log, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening relational store: %w", err)
		}
		sqlStore = s
		return nil
	})

	g.Go(func() error {
		s, err := OpenKeyValueStore(log, cfg.KVDir)
		if err != nil {
			return fmt.Errorf("opening kv store: %w", err)
		}
		kvStore = s
		return nil
	})

	if err := g.Wait(); err != nil {
		if sqlStore != nil {
			_ = sqlStore.Close()
		}
		if kvStore != nil {
			_ = kvStore.Close()
		}
		return nil, err
	}

	l := &Local{
		SQLStore:      sqlStore,
		KeyValueStore: kvStore,
		log:           log.WithField("component", "local_host"),
	}

	l.log.WithFields(logrus.Fields{
		"sqlite": displayPath(cfg.SQLitePath),
		"kv":     displayPath(cfg.KVDir),
	}).Info("reference host opened")

	return l, nil
}

// Close closes both stores concurrently.
func (l *Local) Close() error {
	var g errgroup.Group

	g.Go(l.SQLStore.Close)
	g.Go(l.KeyValueStore.Close)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("closing reference host: %w", err)
	}

	l.log.Debug("reference host closed")

	return nil
}

// Compile-time interface compliance check
var _ Capability = (*Local)(nil)
