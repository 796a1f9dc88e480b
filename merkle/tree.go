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

// Package merkle implements the binary hash tree that backs the commitment
// log, together with inclusion proofs over it.
//
// Trees are immutable. Appending a value means building a new tree from
// every value seen so far.
package merkle

import (
	"errors"

	"github.com/bbva/commitd/crypto/hashing"
)

// ErrEmptyTree is returned when a root is requested from a tree without
// leaves.
var ErrEmptyTree = errors.New("merkle: tree has no leaves")

// Tree is an immutable binary hash tree over an ordered list of values.
// A tree has a root if and only if it has at least one leaf.
type Tree struct {
	root      *Node
	leafCount uint64
	height    uint
	hasher    hashing.Hasher
	digests   uint64
}

// NewTree returns an empty tree.
func NewTree(hasher hashing.Hasher) *Tree {
	return &Tree{hasher: hasher}
}

// Build hashes every value into a leaf, preserving order, and combines the
// leaves pairwise level by level until a single root remains. An unpaired
// node at the end of any level is paired with a copy of itself.
func Build(hasher hashing.Hasher, values [][]byte) *Tree {
	t := &Tree{
		leafCount: uint64(len(values)),
		height:    height(uint64(len(values))),
		hasher:    hasher,
	}
	if len(values) == 0 {
		return t
	}

	leaves := make([]*Node, len(values))
	for i, v := range values {
		leaves[i] = NewLeaf(hasher, v)
	}
	t.digests = uint64(len(leaves))
	t.root = t.build(leaves, t.height)
	return t
}

func (t *Tree) build(leaves []*Node, height uint) *Node {
	if height == 0 {
		return leaves[0]
	}
	l, r := split(uint64(len(leaves)), height)
	left := t.build(leaves[:l], height-1)
	var right *Node
	if r == 0 {
		right = left.clone()
		right.duplicate = true
	} else {
		right = t.build(leaves[l:], height-1)
	}
	t.digests++
	return NewParent(t.hasher, left, right)
}

// Root returns the root node, if any.
func (t *Tree) Root() (*Node, bool) {
	return t.root, t.root != nil
}

// RootDigest returns a copy of the root digest or ErrEmptyTree.
func (t *Tree) RootDigest() (hashing.Digest, error) {
	if t.root == nil {
		return nil, ErrEmptyTree
	}
	return t.root.Digest(), nil
}

// LeafCount returns the number of values the tree was built from.
func (t *Tree) LeafCount() uint64 {
	return t.leafCount
}

// Height returns the number of levels above the leaves.
func (t *Tree) Height() uint {
	return t.height
}

// Hasher returns the hasher used to build the tree.
func (t *Tree) Hasher() hashing.Hasher {
	return t.hasher
}

// Digests returns how many hash computations building the tree took.
func (t *Tree) Digests() uint64 {
	return t.digests
}
