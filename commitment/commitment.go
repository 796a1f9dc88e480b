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

// Package commitment keeps the append-only log of committed values and the
// Merkle tree over them.
//
// Every add rebuilds the whole tree from all the values committed so far.
// The new commitment and the new tree become visible to readers at once.
package commitment

import (
	"github.com/bbva/commitd/crypto/hashing"
)

// Commitment binds a value to its position in the log and to the root of
// the tree right after it was added. Commitments are never modified.
type Commitment struct {
	Index      uint64
	Value      []byte
	MerkleRoot hashing.Digest
}

func (c *Commitment) clone() *Commitment {
	return &Commitment{
		Index:      c.Index,
		Value:      append([]byte(nil), c.Value...),
		MerkleRoot: append(hashing.Digest(nil), c.MerkleRoot...),
	}
}
