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
	"github.com/bbva/commitd/crypto/hashing"
)

// Node is an immutable node of a commitment tree. A leaf holds the digest
// of a committed value and has no children. An interior node holds the
// digest of its children's digests concatenated left to right and always
// has both children.
type Node struct {
	digest      hashing.Digest
	left, right *Node
	// duplicate marks the copy paired with an unmatched node.
	duplicate bool
}

// NewLeaf hashes the given value into a leaf node.
func NewLeaf(hasher hashing.Hasher, value []byte) *Node {
	return &Node{digest: hasher.Do(value)}
}

// NewParent builds the interior node for the given pair of children.
// Both children are required.
func NewParent(hasher hashing.Hasher, left, right *Node) *Node {
	if left == nil || right == nil {
		panic("merkle: interior node requires two children")
	}
	return &Node{
		digest: hasher.Do(left.digest, right.digest),
		left:   left,
		right:  right,
	}
}

// Digest returns a copy of the node digest.
func (n *Node) Digest() hashing.Digest {
	return append(hashing.Digest(nil), n.digest...)
}

// Left returns the left child, nil for leaves.
func (n *Node) Left() *Node {
	return n.left
}

// Right returns the right child, nil for leaves.
func (n *Node) Right() *Node {
	return n.right
}

// IsDuplicate reports whether the node is the copy of an unmatched node
// made to complete its level.
func (n *Node) IsDuplicate() bool {
	return n.duplicate
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.left == nil && n.right == nil
}

// clone deep copies a subtree. Duplicated odd nodes are copies so that
// every node is owned by exactly one parent.
func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		digest:    n.digest,
		left:      n.left.clone(),
		right:     n.right.clone(),
		duplicate: n.duplicate,
	}
}
