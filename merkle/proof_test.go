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
	"testing"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/stretchr/testify/require"
)

func proofFor(t *testing.T, tree *Tree, vs [][]byte, index uint64) *Proof {
	root, ok := tree.Root()
	require.True(t, ok)
	path := GenerateProof(root, index, tree.LeafCount())
	return NewProof(index, vs[index], path, root.Digest(), tree.Hasher())
}

func TestProofFourLeaves(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	vs := values("data", 4)
	tree := Build(hasher, vs)

	proof := proofFor(t, tree, vs, 2)
	require.Len(t, proof.Path, 2)
	require.True(t, proof.Verify())

	require.Equal(t, hasher.Do([]byte("data3")), proof.Path[0].Hash)
	require.False(t, proof.Path[0].IsLeft)
	require.Equal(t, hasher.Do(hasher.Do([]byte("data0")), hasher.Do([]byte("data1"))), proof.Path[1].Hash)
	require.True(t, proof.Path[1].IsLeft)

	wrong := NewProof(2, []byte("wrong_data"), proof.Path, proof.Root, hasher)
	require.False(t, wrong.Verify())
}

func TestProofOddLeaves(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	vs := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}
	tree := Build(hasher, vs)
	expectedRoot, err := tree.RootDigest()
	require.NoError(t, err)

	for i := uint64(0); i < 3; i++ {
		proof := proofFor(t, tree, vs, i)
		require.Equalf(t, expectedRoot, proof.Root, "All proofs must share the root in test case %d", i)
		require.Truef(t, proof.Verify(), "The proof for index %d should verify", i)
	}

	last := proofFor(t, tree, vs, 2)
	require.Equal(t, hasher.Do([]byte("ccc")), last.Path[0].Hash, "The last leaf is paired with itself")
	require.False(t, last.Path[0].IsLeft)
}

func TestProofRoundTrip(t *testing.T) {
	for _, hasher := range []hashing.Hasher{
		hashing.NewSha256Hasher(),
		hashing.NewBlake2bHasher(),
		hashing.NewBlake3Hasher(),
	} {
		for n := 1; n <= 40; n++ {
			vs := values("leaf", n)
			tree := Build(hasher, vs)
			for i := 0; i < n; i++ {
				proof := proofFor(t, tree, vs, uint64(i))
				require.Lenf(t, proof.Path, int(height(uint64(n))), "Wrong proof length for index %d of %d", i, n)
				require.Truef(t, proof.Verify(), "Proof for index %d of %d with %s should verify", i, n, hasher.Name())
			}
		}
	}
}

func TestProofSingleLeaf(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	vs := [][]byte{[]byte("alone")}
	tree := Build(hasher, vs)

	proof := proofFor(t, tree, vs, 0)
	require.Empty(t, proof.Path)
	require.True(t, proof.Verify())
}

func TestProofTampering(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	vs := values("tamper", 7)
	tree := Build(hasher, vs)

	for i := uint64(0); i < 7; i++ {
		proof := proofFor(t, tree, vs, i)
		require.True(t, proof.Verify())

		value := append([]byte{}, proof.Value...)
		value[0] ^= 0x01
		require.Falsef(t, Verify(hasher, value, proof.Path, proof.Root), "A modified value must not verify for index %d", i)

		for j := range proof.Path {
			path := clonePath(proof.Path)
			path[j].Hash[0] ^= 0x01
			require.Falsef(t, Verify(hasher, proof.Value, path, proof.Root), "A modified hash at %d must not verify for index %d", j, i)

			path = clonePath(proof.Path)
			path[j].IsLeft = !path[j].IsLeft
			if path[j].Hash.Equal(siblingPathDigest(hasher, proof, j)) {
				// the sibling of a duplicated node commutes with it
				continue
			}
			require.Falsef(t, Verify(hasher, proof.Value, path, proof.Root), "A swapped side at %d must not verify for index %d", j, i)
		}

		root := append(hashing.Digest{}, proof.Root...)
		root[len(root)-1] ^= 0x01
		require.Falsef(t, Verify(hasher, proof.Value, proof.Path, root), "A modified root must not verify for index %d", i)

		require.False(t, Verify(hasher, proof.Value, proof.Path[:len(proof.Path)-1], proof.Root))
		require.False(t, Verify(hasher, proof.Value, append(clonePath(proof.Path), proof.Path[0]), proof.Root))
	}
}

func TestProofWithoutHasherUsesSha256(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	vs := values("default", 5)
	tree := Build(hasher, vs)
	p := proofFor(t, tree, vs, 4)

	proof := &Proof{Index: p.Index, Value: p.Value, Path: p.Path, Root: p.Root}
	require.True(t, proof.Verify())
}

func TestProofFromWrongHasherFails(t *testing.T) {
	vs := values("mixed", 6)
	tree := Build(hashing.NewBlake3Hasher(), vs)
	p := proofFor(t, tree, vs, 3)

	require.False(t, Verify(hashing.NewSha256Hasher(), p.Value, p.Path, p.Root))
}

func TestGenerateProofPanics(t *testing.T) {
	hasher := hashing.NewSha256Hasher()
	tree := Build(hasher, values("p", 5))
	root, _ := tree.Root()

	require.Panics(t, func() { GenerateProof(nil, 0, 0) })
	require.Panics(t, func() { GenerateProof(root, 0, 0) })
	require.Panics(t, func() { GenerateProof(root, 5, 5) })
	require.Panics(t, func() { GenerateProof(root, 100, 5) })
	require.Panics(t, func() { GenerateProof(root, 0, 64) }, "A leaf count deeper than the tree must be rejected")
	require.Panics(t, func() { GenerateProof(root, 0, 2) }, "A leaf count shallower than the tree must be rejected")

	for _, total := range []uint64{6, 7, 8} {
		require.Panicsf(t, func() { GenerateProof(root, 5, total) }, "A leaf count of %d must be rejected on a tree of 5", total)
		require.Panicsf(t, func() { GenerateProof(root, total-1, total) }, "A leaf count of %d must be rejected on a tree of 5", total)
	}

	six, _ := Build(hasher, values("p", 6)).Root()
	require.Panics(t, func() { GenerateProof(six, 4, 5) }, "A leaf count smaller than the tree must be rejected")
	require.NotPanics(t, func() { GenerateProof(six, 5, 6) })
}

func clonePath(path []ProofElement) []ProofElement {
	c := make([]ProofElement, len(path))
	for i, e := range path {
		c[i] = ProofElement{Hash: append(hashing.Digest{}, e.Hash...), IsLeft: e.IsLeft}
	}
	return c
}

// siblingPathDigest returns the digest the verifier holds right before
// consuming element j.
func siblingPathDigest(hasher hashing.Hasher, p *Proof, j int) hashing.Digest {
	current := hasher.Do(p.Value)
	for _, e := range p.Path[:j] {
		if e.IsLeft {
			current = hasher.Do(e.Hash, current)
		} else {
			current = hasher.Do(current, e.Hash)
		}
	}
	return current
}
