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

import "math/bits"

// A tree with 5 leaves x0..x4, built level by level pairing nodes left to
// right and pairing an unmatched node with itself:
//
//	height 3                _______ r _______
//	                        |               |
//	height 2           __ a(0,4) __     __ d(4,5) __
//	                   |          |     |          |
//	height 1        b(0,2)    c(2,4)  e(4,5)     e'(4,5)
//	                |    |    |    |   |    |
//	height 0        x0   x1   x2   x3  x4   x4'
//
// Every node of height h covers the index range [begin, begin+2^h) clipped
// to the leaf count, so its left child always covers the first 2^(h-1)
// leaves of its range and the right child whatever remains. When nothing
// remains the right child is a copy of the left one (e' and x4' above).
// The left child of the root holds 4 leaves, not ceil(5/2).

// height returns the height of a tree with the given number of leaves,
// ceil(log2(leaves)). A single leaf tree has height 0.
func height(leaves uint64) uint {
	if leaves <= 1 {
		return 0
	}
	return uint(bits.Len64(leaves - 1))
}

// split partitions the size leaves covered by a node of the given height
// (height > 0) into the sizes of its left and right subtrees. A zero right
// size means the right child duplicates the left one.
//
// Tree construction and proof generation both descend through this
// function, so the grouping of leaves is defined in a single place.
func split(size uint64, height uint) (left, right uint64) {
	half := uint64(1) << (height - 1)
	if size <= half {
		return size, 0
	}
	return half, size - half
}
