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

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/merkle"
	"github.com/bbva/commitd/metrics"
)

// MemoryStore keeps commitments in a slice. The slice and the current tree
// are guarded by the same lock.
type MemoryStore struct {
	sync.RWMutex
	commitments []*Commitment
	tree        *merkle.Tree

	opts    *options
	metrics *storeMetrics
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		commitments: make([]*Commitment, 0),
		tree:        merkle.NewTree(o.hasher),
		opts:        o,
		metrics:     newStoreMetrics("memory"),
	}
}

func (s *MemoryStore) Add(value []byte) (uint64, hashing.Digest, error) {
	if err := ValidateValue(value, s.opts.maxValueSize); err != nil {
		s.metrics.RejectedTotal.Inc()
		return 0, nil, err
	}
	value = append([]byte(nil), value...)

	s.Lock()
	defer s.Unlock()

	values := make([][]byte, 0, len(s.commitments)+1)
	for _, c := range s.commitments {
		values = append(values, c.Value)
	}
	values = append(values, value)

	tree, root, err := rebuild(s.opts, s.metrics, values)
	if err != nil {
		s.opts.logger.Errorf("Unable to rebuild tree: %v", err)
		return 0, nil, err
	}

	index := uint64(len(s.commitments))
	s.commitments = append(s.commitments, &Commitment{
		Index:      index,
		Value:      value,
		MerkleRoot: root,
	})
	s.tree = tree

	s.metrics.AddTotal.Inc()
	s.metrics.Leaves.Set(float64(tree.LeafCount()))
	s.opts.logger.Debugf("Added commitment %d with root %x", index, root)
	return index, append(hashing.Digest(nil), root...), nil
}

func (s *MemoryStore) Get(index uint64) (*Commitment, error) {
	s.RLock()
	defer s.RUnlock()
	if index >= uint64(len(s.commitments)) {
		return nil, notFound(index, uint64(len(s.commitments)))
	}
	return s.commitments[index].clone(), nil
}

func (s *MemoryStore) GetAll() ([]*Commitment, error) {
	s.RLock()
	defer s.RUnlock()
	return s.copyCommitments(), nil
}

func (s *MemoryStore) copyCommitments() []*Commitment {
	all := make([]*Commitment, len(s.commitments))
	for i, c := range s.commitments {
		all[i] = c.clone()
	}
	return all
}

func (s *MemoryStore) Tree() (*merkle.Tree, error) {
	s.RLock()
	defer s.RUnlock()
	return s.tree, nil
}

func (s *MemoryStore) Root() (hashing.Digest, error) {
	s.RLock()
	defer s.RUnlock()
	if len(s.commitments) == 0 {
		return nil, errNoRoot()
	}
	return s.tree.RootDigest()
}

func (s *MemoryStore) Count() (uint64, error) {
	s.RLock()
	defer s.RUnlock()
	return uint64(len(s.commitments)), nil
}

func (s *MemoryStore) Proof(index uint64) (*merkle.Proof, error) {
	s.RLock()
	defer s.RUnlock()
	if index >= uint64(len(s.commitments)) {
		return nil, notFound(index, uint64(len(s.commitments)))
	}
	p, err := proof(s.tree, index, append([]byte(nil), s.commitments[index].Value...))
	if err != nil {
		return nil, err
	}
	s.metrics.ProofTotal.Inc()
	return p, nil
}

func (s *MemoryStore) Snapshot() (*Snapshot, error) {
	s.RLock()
	defer s.RUnlock()
	return &Snapshot{
		Commitments: s.copyCommitments(),
		Tree:        s.tree,
	}, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// RegisterMetrics publishes the store metrics in r.
func (s *MemoryStore) RegisterMetrics(r metrics.Registry) {
	r.MustRegister(s.metrics.collectors()...)
}
