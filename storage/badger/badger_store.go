/*
   Copyright 2018-2019 Banco Bilbao Vizcaya Argentaria, S.A.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package badger implements storage.Store on top of Badger.
package badger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	b "github.com/dgraph-io/badger/v3"

	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/storage"
)

type BadgerStore struct {
	db                  *b.DB
	log                 log.Logger
	vlogTicker          *time.Ticker // runs every 1m, check size of vlog and run GC conditionally.
	mandatoryVlogTicker *time.Ticker // runs every 10m, we always run vlog GC.
	done                chan struct{}
}

// Options contains all the configuration used to open the Badger db
type Options struct {
	// Path is the directory path to the Badger db to use.
	// Ignored when InMemory is set.
	Path string

	// InMemory keeps every table and value in memory. Nothing is
	// written to disk.
	InMemory bool

	// SyncWrites fsyncs every write before acknowledging it.
	SyncWrites bool

	// ValueLogGC enables a periodic goroutine that does a garbage
	// collection of the value log while the underlying Badger is online.
	// It has no effect on in-memory stores.
	ValueLogGC bool

	// GCInterval is the interval between conditionally running the garbage
	// collection process, based on the size of the vlog. By default, runs every 1m.
	GCInterval time.Duration

	// MandatoryGCInterval is the interval between mandatory running the garbage
	// collection process. By default, runs every 10m.
	MandatoryGCInterval time.Duration

	// GCThreshold sets threshold in bytes for the vlog size to be included in the
	// garbage collection cycle. By default, 1GB.
	GCThreshold int64

	// Logger receives Badger's own messages. Defaults to log.L().
	Logger log.Logger
}

// NewBadgerStore opens an on disk store at path with value log garbage
// collection enabled.
func NewBadgerStore(path string, logger log.Logger) (*BadgerStore, error) {
	return NewBadgerStoreOpts(&Options{Path: path, ValueLogGC: true, Logger: logger})
}

// NewInMemoryBadgerStore opens a store that never touches the disk.
func NewInMemoryBadgerStore(logger log.Logger) (*BadgerStore, error) {
	return NewBadgerStoreOpts(&Options{InMemory: true, Logger: logger})
}

func NewBadgerStoreOpts(opts *Options) (*BadgerStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.L()
	}
	logger = logger.Named("badger")

	path := opts.Path
	if opts.InMemory {
		path = ""
	} else if path == "" {
		return nil, errors.New("badger: a path is required unless the store is in memory")
	}

	bOpts := b.DefaultOptions(path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(&badgerLogger{logger})

	db, err := b.Open(bOpts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{db: db, log: logger, done: make(chan struct{})}
	// Start GC routine
	if opts.ValueLogGC && !opts.InMemory {

		var gcInterval time.Duration
		var mandatoryGCInterval time.Duration
		var threshold int64

		if gcInterval = 1 * time.Minute; opts.GCInterval != 0 {
			gcInterval = opts.GCInterval
		}
		if mandatoryGCInterval = 10 * time.Minute; opts.MandatoryGCInterval != 0 {
			mandatoryGCInterval = opts.MandatoryGCInterval
		}
		if threshold = int64(1 << 30); opts.GCThreshold != 0 {
			threshold = opts.GCThreshold
		}

		store.vlogTicker = time.NewTicker(gcInterval)
		store.mandatoryVlogTicker = time.NewTicker(mandatoryGCInterval)
		go store.runVlogGC(threshold)
	}

	return store, nil
}

func (s *BadgerStore) Mutate(mutations []*storage.Mutation) error {
	return s.db.Update(func(txn *b.Txn) error {
		for _, m := range mutations {
			key := append([]byte{m.Table.Prefix()}, m.Key...)
			err := txn.Set(key, m.Value)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) GetRange(table storage.Table, start, end []byte) (storage.KVRange, error) {
	result := storage.NewKVRange()
	startKey := append([]byte{table.Prefix()}, start...)
	endKey := append([]byte{table.Prefix()}, end...)
	err := s.db.View(func(txn *b.Txn) error {
		opts := b.DefaultIteratorOptions
		opts.Prefix = []byte{table.Prefix()}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(startKey); it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if bytes.Compare(key, endKey) > 0 {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, storage.NewKVPair(key[1:], value))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BadgerStore) Get(table storage.Table, key []byte) (*storage.KVPair, error) {
	result := new(storage.KVPair)
	result.Key = key
	err := s.db.View(func(txn *b.Txn) error {
		k := append([]byte{table.Prefix()}, key...)
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		result.Value = value
		return nil
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, b.ErrKeyNotFound):
		return nil, storage.ErrKeyNotFound
	default:
		return nil, err
	}
}

func (s *BadgerStore) GetLast(table storage.Table) (*storage.KVPair, error) {
	result := new(storage.KVPair)
	err := s.db.View(func(txn *b.Txn) error {
		var err error
		opts := b.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		// we are using a reversed iterator so we need to seek for
		// the last possible key of the table
		it.Seek([]byte{table.Prefix(), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
		if it.ValidForPrefix([]byte{table.Prefix()}) {
			item := it.Item()
			key := item.KeyCopy(nil)
			result.Key = key[1:]
			result.Value, err = item.ValueCopy(nil)
		} else {
			err = b.ErrKeyNotFound
		}
		return err
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, b.ErrKeyNotFound):
		return nil, storage.ErrKeyNotFound
	default:
		return nil, err
	}
}

// BadgerKVPairReader reads a table inside a read only transaction, so it
// sees the store as it was when the reader was created.
type BadgerKVPairReader struct {
	prefix byte
	txn    *b.Txn
	it     *b.Iterator
}

func NewBadgerKVPairReader(table storage.Table, txn *b.Txn) *BadgerKVPairReader {
	opts := b.DefaultIteratorOptions
	opts.PrefetchSize = 10
	it := txn.NewIterator(opts)
	it.Seek([]byte{table.Prefix()})
	return &BadgerKVPairReader{table.Prefix(), txn, it}
}

func (r *BadgerKVPairReader) Read(buffer []*storage.KVPair) (n int, err error) {
	for n = 0; r.it.ValidForPrefix([]byte{r.prefix}) && n < len(buffer); r.it.Next() {
		item := r.it.Item()
		key := item.KeyCopy(nil)
		value, err := item.ValueCopy(nil)
		if err != nil {
			return n, err
		}
		buffer[n] = &storage.KVPair{Key: key[1:], Value: value}
		n++
	}
	return n, nil
}

func (r *BadgerKVPairReader) Close() {
	r.it.Close()
	r.txn.Discard()
}

func (s *BadgerStore) GetAll(table storage.Table) storage.KVPairReader {
	return NewBadgerKVPairReader(table, s.db.NewTransaction(false))
}

func (s *BadgerStore) Close() error {
	if s.vlogTicker != nil {
		s.vlogTicker.Stop()
	}
	if s.mandatoryVlogTicker != nil {
		s.mandatoryVlogTicker.Stop()
	}
	close(s.done)
	return s.db.Close()
}

func (s *BadgerStore) runVlogGC(threshold int64) {
	// Get initial size on start.
	_, lastVlogSize := s.db.Size()

	runGC := func() {
		var err error
		for err == nil {
			// If a GC is successful, immediately run it again.
			s.log.Debug("VlogGC task: running...")
			err = s.db.RunValueLogGC(0.7)
		}
		s.log.Debug("VlogGC task: done.")
		_, lastVlogSize = s.db.Size()
	}

	for {
		select {
		case <-s.done:
			return
		case <-s.vlogTicker.C:
			_, currentVlogSize := s.db.Size()
			if currentVlogSize < lastVlogSize+threshold {
				continue
			}
			runGC()
		case <-s.mandatoryVlogTicker.C:
			runGC()
		}
	}
}

// badgerLogger routes Badger's messages to our logger. Badger is chatty at
// info level, so those messages go to debug.
type badgerLogger struct {
	log log.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(trim(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(trim(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(trim(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace(trim(format, args...))
}

func trim(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
