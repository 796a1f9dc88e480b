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

// Verify folds the path over the leaf digest of value and reports whether
// the result equals root. It never fails: a malformed or tampered proof
// simply does not verify.
func Verify(hasher hashing.Hasher, value []byte, path []ProofElement, root hashing.Digest) bool {
	current := hasher.Do(value)
	for _, e := range path {
		if e.IsLeft {
			current = hasher.Do(e.Hash, current)
		} else {
			current = hasher.Do(current, e.Hash)
		}
	}
	return current.Equal(root)
}
