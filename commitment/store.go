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
	"time"

	"github.com/pkg/errors"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/merkle"
	"github.com/bbva/commitd/metrics"
)

// Store is the append-only commitment log. Implementations are safe for
// concurrent use: adds are serialized and readers always observe a
// commitment list and a tree of the same size.
type Store interface {
	// Add validates and appends value, rebuilds the tree over every value
	// and returns the index assigned to value and the new root.
	Add(value []byte) (index uint64, root hashing.Digest, err error)
	// Get returns the commitment at index or ErrNotFound.
	Get(index uint64) (*Commitment, error)
	// GetAll returns every commitment in index order.
	GetAll() ([]*Commitment, error)
	// Tree returns the current tree, empty when nothing was committed.
	Tree() (*merkle.Tree, error)
	// Root returns the current root digest or ErrNotFound.
	Root() (hashing.Digest, error)
	// Count returns the number of commitments.
	Count() (uint64, error)
	// Proof returns an inclusion proof of the commitment at index under
	// the current root, or ErrNotFound.
	Proof(index uint64) (*merkle.Proof, error)
	// Snapshot returns the commitments and the tree as of the same instant.
	Snapshot() (*Snapshot, error)
	// Close releases the resources held by the store.
	Close() error
}

// Snapshot is a consistent view of a store: len(Commitments) always equals
// Tree.LeafCount().
type Snapshot struct {
	Commitments []*Commitment
	Tree        *merkle.Tree
}

type options struct {
	hasher       hashing.Hasher
	maxValueSize int
	logger       log.Logger
}

// Option configures a store.
type Option func(*options)

// WithHasher sets the hash function of the tree. Defaults to SHA256.
func WithHasher(hasher hashing.Hasher) Option {
	return func(o *options) {
		o.hasher = hasher
	}
}

// WithMaxValueSize sets the largest value accepted by Add, in bytes.
func WithMaxValueSize(size int) Option {
	return func(o *options) {
		o.maxValueSize = size
	}
}

// WithLogger sets the logger of the store.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		hasher:       hashing.NewSha256Hasher(),
		maxValueSize: DefaultMaxValueSize,
		logger:       log.L(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("commitment")
	return o
}

// rebuild builds the tree for values and checks its shape.
func rebuild(o *options, m *storeMetrics, values [][]byte) (*merkle.Tree, hashing.Digest, error) {
	start := time.Now()
	tree := merkle.Build(o.hasher, values)
	elapsed := time.Since(start)

	if tree.LeafCount() != uint64(len(values)) {
		return nil, nil, errors.Wrapf(ErrTreeBuild, "tree has %d leaves, expected %d", tree.LeafCount(), len(values))
	}
	root, err := tree.RootDigest()
	if err != nil {
		return nil, nil, errors.Wrap(ErrTreeBuild, err.Error())
	}

	m.observeRebuild(tree, elapsed)
	o.logger.Tracef("Rebuilt tree of %d leaves in %v with %d digests", tree.LeafCount(), elapsed, tree.Digests())
	return tree, root, nil
}

// proof generates the proof for a bounds checked index.
func proof(tree *merkle.Tree, index uint64, value []byte) (*merkle.Proof, error) {
	root, ok := tree.Root()
	if !ok {
		return nil, errNoRoot()
	}
	path := merkle.GenerateProof(root, index, tree.LeafCount())
	return merkle.NewProof(index, value, path, root.Digest(), tree.Hasher()), nil
}

func errNoRoot() error {
	return errors.Wrap(ErrNotFound, "no commitments yet")
}

func notFound(index, count uint64) error {
	return errors.Wrapf(ErrNotFound, "commitment %d does not exist, there are %d commitments", index, count)
}

var _ metrics.Registerer = (*MemoryStore)(nil)
var _ metrics.Registerer = (*KVStore)(nil)
