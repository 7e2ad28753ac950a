// Package history keeps a journal of finished deployments in badger.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pushchain/confdeploy/internal/deploy"
)

const keyPrefix = "deploy/"

// Record is the stored form of a deploy.Outcome.
type Record struct {
	ID            string    `json:"id" yaml:"id"`
	Operation     string    `json:"operation" yaml:"operation"`
	Service       string    `json:"service" yaml:"service"`
	Config        string    `json:"config" yaml:"config"`
	Result        string    `json:"result" yaml:"result"`
	States        []string  `json:"states" yaml:"states"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
	RollbackError string    `json:"rollback_error,omitempty" yaml:"rollback_error,omitempty"`
	StartedAt     time.Time `json:"started_at" yaml:"started_at"`
	DurationMS    int64     `json:"duration_ms" yaml:"duration_ms"`
}

// FromOutcome converts an orchestrator outcome into a journal record.
func FromOutcome(o deploy.Outcome) Record {
	r := Record{
		ID:         o.ID,
		Operation:  string(o.Operation),
		Service:    o.Service,
		Config:     o.Config,
		Result:     string(o.Result),
		StartedAt:  o.StartedAt,
		DurationMS: o.Duration.Milliseconds(),
	}
	for _, s := range o.States {
		r.States = append(r.States, string(s))
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	if o.RollbackErr != nil {
		r.RollbackError = o.RollbackErr.Error()
	}
	return r
}

// Options configures the store.
type Options struct {
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Store is the deployment journal.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// badger is chatty at info level; demote to debug.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens (creating if needed) the journal.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("history path is required")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithSyncWrites(true).WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(r Record) []byte {
	return []byte(fmt.Sprintf("%s%s/%s/%020d-%s", keyPrefix, r.Service, r.Config, r.StartedAt.UnixNano(), r.ID))
}

func prefix(service, config string) []byte {
	switch {
	case service == "":
		return []byte(keyPrefix)
	case config == "":
		return []byte(keyPrefix + service + "/")
	}
	return []byte(keyPrefix + service + "/" + config + "/")
}

// Append stores r.
func (s *Store) Append(r Record) error {
	if r.ID == "" || r.Service == "" || r.Config == "" {
		return errors.New("history record needs id, service and config")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(r), data)
	})
}

// Record implements deploy.Recorder.
func (s *Store) Record(o deploy.Outcome) error {
	return s.Append(FromOutcome(o))
}

// List returns records newest first, optionally filtered by service and
// config. limit <= 0 means no limit.
func (s *Store) List(service, config string, limit int) ([]Record, error) {
	if service == "" && config != "" {
		return nil, errors.New("config filter requires a service")
	}
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		p := prefix(service, config)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var r Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			records = append(records, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
