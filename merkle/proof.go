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

package merkle

import (
	"fmt"

	"github.com/bbva/commitd/crypto/hashing"
)

// ProofElement is the digest of a sibling node on the path from a leaf to
// the root. IsLeft tells whether the sibling sits to the left of the path.
type ProofElement struct {
	Hash   hashing.Digest
	IsLeft bool
}

// Proof is a self contained inclusion proof: it binds a value, at a given
// index, to a root digest.
type Proof struct {
	Index  uint64
	Value  []byte
	Path   []ProofElement
	Root   hashing.Digest
	hasher hashing.Hasher
}

// NewProof returns a proof to be verified with the given hasher.
func NewProof(index uint64, value []byte, path []ProofElement, root hashing.Digest, hasher hashing.Hasher) *Proof {
	return &Proof{
		Index:  index,
		Value:  value,
		Path:   path,
		Root:   root,
		hasher: hasher,
	}
}

// Verify recomputes the root from the value and the path and compares it
// with the proof root. A proof built without a hasher is checked with SHA256.
func (p *Proof) Verify() bool {
	hasher := p.hasher
	if hasher == nil {
		hasher = hashing.NewSha256Hasher()
	}
	return Verify(hasher, p.Value, p.Path, p.Root)
}

// GenerateProof returns the sibling digests on the path from the leaf at
// index to the root, ordered from the leaf's sibling upwards. The path has
// exactly ceil(log2(total)) elements.
//
// total must be the leaf count of the tree root belongs to and index must
// be lower than total. Breaking either precondition is a bug in the caller
// and GenerateProof panics instead of returning a wrong path: the descent
// checks, at every level, that the right child is a duplicate exactly when
// total leaves nothing for it. Callers holding untrusted indexes must check
// them against the leaf count first.
func GenerateProof(root *Node, index, total uint64) []ProofElement {
	if root == nil || total == 0 {
		panic("merkle: proof requested from an empty tree")
	}
	if index >= total {
		panic(fmt.Sprintf("merkle: proof index %d out of range [0, %d)", index, total))
	}

	h := height(total)
	path := make([]ProofElement, h)
	node, begin, size := root, uint64(0), total

	for ; h > 0; h-- {
		if node.IsLeaf() {
			panic(fmt.Sprintf("merkle: tree is shallower than expected for %d leaves", total))
		}
		left, right := node.left, node.right

		l, r := split(size, h)
		if (r == 0) != right.duplicate {
			panic(fmt.Sprintf("merkle: tree shape does not match %d leaves", total))
		}
		if index < begin+l {
			path[h-1] = ProofElement{Hash: right.Digest(), IsLeft: false}
			node, size = left, l
		} else {
			path[h-1] = ProofElement{Hash: left.Digest(), IsLeft: true}
			node, begin, size = right, begin+l, r
		}
	}

	if !node.IsLeaf() {
		panic(fmt.Sprintf("merkle: tree is deeper than expected for %d leaves", total))
	}
	return path
}
