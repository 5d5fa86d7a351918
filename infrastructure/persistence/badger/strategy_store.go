// Package badger keeps a local durable copy of strategy records. It serves
// as the fallback when the remote store is unreachable and as the autosave
// target.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

const (
	keyPrefix = "strategy/"
	latestKey = "strategy/latest"
)

// Config holds configuration for the local database
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs each write
	SyncWrites bool
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// zapLogger adapts zap to badger's logger interface
type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// Open opens the database described by cfg
func Open(cfg Config, logger *zap.Logger) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(zapLogger{sugar: logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return db, nil
}

// StrategyStore stores each record under strategy/<id> and the id of the
// last save under strategy/latest
type StrategyStore struct {
	db *badger.DB
}

var _ ports.StrategyStore = (*StrategyStore)(nil)

// NewStrategyStore wraps an open database
func NewStrategyStore(db *badger.DB) *StrategyStore {
	return &StrategyStore{db: db}
}

// Close closes the underlying database
func (s *StrategyStore) Close() error {
	return s.db.Close()
}

// Save writes the record and the latest pointer in one transaction
func (s *StrategyStore) Save(_ context.Context, record ports.StrategyRecord) error {
	id := record.Key()
	if id == "" {
		return pkgerrors.NewValidationError("strategy record has no id")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.NewInternalError("encode strategy record").WithCause(err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyPrefix+id), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(id))
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save strategy locally", err)
	}
	return nil
}

// GetByID reads one record
func (s *StrategyStore) GetByID(_ context.Context, id string) (ports.StrategyRecord, error) {
	var record ports.StrategyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return readRecord(txn, id, &record)
	})
	return record, s.translate(err, "strategy "+id)
}

// Latest reads the record named by the latest pointer
func (s *StrategyStore) Latest(_ context.Context) (ports.StrategyRecord, error) {
	var record ports.StrategyRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readRecord(txn, string(id), &record)
	})
	return record, s.translate(err, "latest strategy")
}

// IDs lists the ids of every stored record
func (s *StrategyStore) IDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().Key())
			if k == latestKey {
				continue
			}
			ids = append(ids, k[len(keyPrefix):])
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("list strategies", err)
	}
	return ids, nil
}

func readRecord(txn *badger.Txn, id string, out *ports.StrategyRecord) error {
	item, err := txn.Get([]byte(keyPrefix + id))
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return pkgerrors.NewValidationErrorf("stored strategy %s is malformed: %v", id, err)
		}
		return nil
	})
}

func (s *StrategyStore) translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return pkgerrors.NewNotFoundError(resource)
	case pkgerrors.IsAppError(err):
		return err
	default:
		return pkgerrors.NewDatabaseError("read "+resource, err)
	}
}
