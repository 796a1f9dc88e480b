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

package commitment

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/merkle"
	"github.com/bbva/commitd/metrics"
	"github.com/bbva/commitd/storage"
	"github.com/bbva/commitd/util"
)

// rootKey is the MetaTable key holding the latest root.
var rootKey = []byte("root")

const readBatchSize = 512

// record is the stored form of a commitment.
type record struct {
	Index uint64 `msgpack:"i"`
	Value []byte `msgpack:"v"`
	Root  []byte `msgpack:"r"`
}

// KVStore keeps commitments in a storage.Store, one msgpack record per
// commitment keyed by its big endian index. The tree is rebuilt on every
// add from the values read back from the key-value store.
type KVStore struct {
	sync.RWMutex
	kv    storage.Store
	tree  *merkle.Tree
	count uint64

	opts    *options
	metrics *storeMetrics
}

// NewKVStore returns a commitment store backed by kv, which must be empty.
// Commitments left by a previous process are not recovered.
func NewKVStore(kv storage.Store, opts ...Option) (*KVStore, error) {
	o := newOptions(opts)

	_, err := kv.GetLast(storage.CommitmentTable)
	switch {
	case err == nil:
		return nil, errors.Wrap(ErrInternal, "key-value store already holds commitments")
	case err != storage.ErrKeyNotFound:
		return nil, errors.Wrapf(ErrInternal, "unable to open key-value store: %v", err)
	}

	return &KVStore{
		kv:      kv,
		tree:    merkle.NewTree(o.hasher),
		opts:    o,
		metrics: newStoreMetrics("kv"),
	}, nil
}

func (s *KVStore) Add(value []byte) (uint64, hashing.Digest, error) {
	if err := ValidateValue(value, s.opts.maxValueSize); err != nil {
		s.metrics.RejectedTotal.Inc()
		return 0, nil, err
	}

	s.Lock()
	defer s.Unlock()

	all, err := s.readAll()
	if err != nil {
		return 0, nil, err
	}
	values := make([][]byte, 0, len(all)+1)
	for _, c := range all {
		values = append(values, c.Value)
	}
	values = append(values, value)

	tree, root, err := rebuild(s.opts, s.metrics, values)
	if err != nil {
		s.opts.logger.Errorf("Unable to rebuild tree: %v", err)
		return 0, nil, err
	}

	index := s.count
	encoded, err := msgpack.Marshal(&record{Index: index, Value: value, Root: root})
	if err != nil {
		return 0, nil, errors.Wrapf(ErrInternal, "unable to encode commitment: %v", err)
	}
	err = s.kv.Mutate([]*storage.Mutation{
		storage.NewMutation(storage.CommitmentTable, util.Uint64AsBytes(index), encoded),
		storage.NewMutation(storage.MetaTable, rootKey, root),
	})
	if err != nil {
		s.opts.logger.Errorf("Unable to store commitment %d: %v", index, err)
		return 0, nil, errors.Wrapf(ErrInternal, "unable to store commitment: %v", err)
	}

	s.count++
	s.tree = tree

	s.metrics.AddTotal.Inc()
	s.metrics.Leaves.Set(float64(tree.LeafCount()))
	s.opts.logger.Debugf("Added commitment %d with root %x", index, root)
	return index, append(hashing.Digest(nil), root...), nil
}

func (s *KVStore) Get(index uint64) (*Commitment, error) {
	s.RLock()
	defer s.RUnlock()
	if index >= s.count {
		return nil, notFound(index, s.count)
	}
	return s.get(index)
}

func (s *KVStore) get(index uint64) (*Commitment, error) {
	kv, err := s.kv.Get(storage.CommitmentTable, util.Uint64AsBytes(index))
	if err != nil {
		return nil, errors.Wrapf(ErrInternal, "unable to read commitment %d: %v", index, err)
	}
	return decode(kv.Value)
}

func (s *KVStore) GetAll() ([]*Commitment, error) {
	s.RLock()
	defer s.RUnlock()
	return s.readAll()
}

// readAll reads every commitment in index order. Callers hold the lock.
func (s *KVStore) readAll() ([]*Commitment, error) {
	all := make([]*Commitment, 0, s.count)
	reader := s.kv.GetAll(storage.CommitmentTable)
	defer reader.Close()

	entries := make([]*storage.KVPair, readBatchSize)
	for {
		n, err := reader.Read(entries)
		if err != nil {
			return nil, errors.Wrapf(ErrInternal, "unable to read commitments: %v", err)
		}
		if n == 0 {
			break
		}
		for _, e := range entries[:n] {
			c, err := decode(e.Value)
			if err != nil {
				return nil, err
			}
			all = append(all, c)
		}
	}

	if uint64(len(all)) != s.count {
		return nil, errors.Wrapf(ErrInternal, "read %d commitments, expected %d", len(all), s.count)
	}
	return all, nil
}

func (s *KVStore) Tree() (*merkle.Tree, error) {
	s.RLock()
	defer s.RUnlock()
	return s.tree, nil
}

func (s *KVStore) Root() (hashing.Digest, error) {
	s.RLock()
	defer s.RUnlock()
	if s.count == 0 {
		return nil, errNoRoot()
	}
	kv, err := s.kv.Get(storage.MetaTable, rootKey)
	if err != nil {
		return nil, errors.Wrapf(ErrInternal, "unable to read root: %v", err)
	}
	return append(hashing.Digest(nil), kv.Value...), nil
}

func (s *KVStore) Count() (uint64, error) {
	s.RLock()
	defer s.RUnlock()
	return s.count, nil
}

func (s *KVStore) Proof(index uint64) (*merkle.Proof, error) {
	s.RLock()
	defer s.RUnlock()
	if index >= s.count {
		return nil, notFound(index, s.count)
	}
	c, err := s.get(index)
	if err != nil {
		return nil, err
	}
	p, err := proof(s.tree, index, c.Value)
	if err != nil {
		return nil, err
	}
	s.metrics.ProofTotal.Inc()
	return p, nil
}

func (s *KVStore) Snapshot() (*Snapshot, error) {
	s.RLock()
	defer s.RUnlock()
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}
	return &Snapshot{Commitments: all, Tree: s.tree}, nil
}

// Close closes the underlying key-value store.
func (s *KVStore) Close() error {
	s.Lock()
	defer s.Unlock()
	return s.kv.Close()
}

// RegisterMetrics publishes the store metrics in r.
func (s *KVStore) RegisterMetrics(r metrics.Registry) {
	r.MustRegister(s.metrics.collectors()...)
}

func decode(b []byte) (*Commitment, error) {
	var r record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrapf(ErrInternal, "unable to decode commitment: %v", err)
	}
	return &Commitment{Index: r.Index, Value: r.Value, MerkleRoot: r.Root}, nil
}
