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

package util

import "encoding/binary"

// Uint64AsBytes encodes i in big endian so that byte order matches numeric
// order when used as a storage key.
func Uint64AsBytes(i uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return b
}

// BytesAsUint64 decodes a big endian integer. Shorter inputs are treated as
// if left padded with zeros.
func BytesAsUint64(b []byte) uint64 {
	var out uint64
	for _, x := range b {
		out = out<<8 | uint64(x)
	}
	return out
}
