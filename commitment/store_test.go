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
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbva/commitd/crypto/hashing"
	"github.com/bbva/commitd/log"
	"github.com/bbva/commitd/merkle"
	"github.com/bbva/commitd/storage"
	"github.com/bbva/commitd/storage/badger"
	"github.com/bbva/commitd/storage/bplus"
)

var silent = log.New(&log.LoggerOptions{Level: log.Off})

type openF func(t *testing.T, opts ...Option) (Store, *storeMetrics, func())

func openMemoryStore(t *testing.T, opts ...Option) (Store, *storeMetrics, func()) {
	store := NewMemoryStore(append([]Option{WithLogger(silent)}, opts...)...)
	return store, store.metrics, func() {
		require.NoError(t, store.Close())
	}
}

func openBPlusKVStore(t *testing.T, opts ...Option) (Store, *storeMetrics, func()) {
	store, err := NewKVStore(bplus.NewBPlusTreeStore(), append([]Option{WithLogger(silent)}, opts...)...)
	require.NoError(t, err)
	return store, store.metrics, func() {
		require.NoError(t, store.Close())
	}
}

func openBadgerKVStore(t *testing.T, opts ...Option) (Store, *storeMetrics, func()) {
	kv, err := badger.NewInMemoryBadgerStore(silent)
	require.NoError(t, err)
	store, err := NewKVStore(kv, append([]Option{WithLogger(silent)}, opts...)...)
	require.NoError(t, err)
	return store, store.metrics, func() {
		require.NoError(t, store.Close())
	}
}

var stores = map[string]openF{
	"memory":    openMemoryStore,
	"kv/bplus":  openBPlusKVStore,
	"kv/badger": openBadgerKVStore,
}

func forEachStore(t *testing.T, test func(t *testing.T, open openF)) {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		open := stores[name]
		t.Run(name, func(t *testing.T) {
			test(t, open)
		})
	}
}

func TestEmptyStore(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		_, err := store.Root()
		require.True(t, IsNotFound(err), "An empty store has no root: %v", err)

		_, err = store.Get(0)
		require.True(t, IsNotFound(err), "An empty store has no commitments: %v", err)

		_, err = store.Proof(0)
		require.True(t, IsNotFound(err), "An empty store has no proofs: %v", err)

		count, err := store.Count()
		require.NoError(t, err)
		require.Equal(t, uint64(0), count)

		all, err := store.GetAll()
		require.NoError(t, err)
		require.Empty(t, all)

		tree, err := store.Tree()
		require.NoError(t, err)
		_, ok := tree.Root()
		require.False(t, ok)
	})
}

func TestAddRejectsInvalidValues(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, m, closeF := open(t, WithMaxValueSize(8))
		defer closeF()

		testCases := []struct {
			value []byte
			valid bool
		}{
			{nil, false},
			{[]byte{}, false},
			{[]byte("123456789"), false},
			{[]byte("12345678"), true},
			{[]byte("1"), true},
		}

		var expected uint64
		for i, c := range testCases {
			index, root, err := store.Add(c.value)
			if !c.valid {
				require.Truef(t, IsInvalidInput(err), "Value should be rejected in test case %d", i)
				require.Nilf(t, root, "No root for rejected values in test case %d", i)
			} else {
				require.NoErrorf(t, err, "Value should be accepted in test case %d", i)
				require.Equalf(t, expected, index, "Wrong index in test case %d", i)
				expected++
			}
			count, err := store.Count()
			require.NoError(t, err)
			require.Equalf(t, expected, count, "Rejected values must not be recorded in test case %d", i)
		}
		require.Equal(t, float64(3), testutil.ToFloat64(m.RejectedTotal))
		require.Equal(t, float64(2), testutil.ToFloat64(m.AddTotal))
	})
}

func TestAddAndRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		hasher := hashing.NewSha256Hasher()
		values := make([][]byte, 0)
		for i := 0; i < 9; i++ {
			value := []byte(fmt.Sprintf("value-%d", i))
			values = append(values, value)

			index, root, err := store.Add(value)
			require.NoError(t, err)
			require.Equal(t, uint64(i), index)

			expected, err := merkle.Build(hasher, values).RootDigest()
			require.NoError(t, err)
			require.Equalf(t, expected, root, "Root after %d adds", i+1)

			current, err := store.Root()
			require.NoError(t, err)
			require.Equal(t, root, current)
		}

		for i, value := range values {
			c, err := store.Get(uint64(i))
			require.NoError(t, err)
			require.Equal(t, uint64(i), c.Index)
			require.Equal(t, value, c.Value)

			expected, _ := merkle.Build(hasher, values[:i+1]).RootDigest()
			require.Equalf(t, expected, c.MerkleRoot, "A commitment keeps the root it was added with, index %d", i)
		}

		_, err := store.Get(uint64(len(values)))
		require.True(t, IsNotFound(err))

		all, err := store.GetAll()
		require.NoError(t, err)
		require.Len(t, all, len(values))
		for i, c := range all {
			require.Equal(t, uint64(i), c.Index)
			require.Equal(t, values[i], c.Value)
		}
	})
}

func TestKnownScenarios(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		for _, v := range []string{"aaa", "bbb", "ccc"} {
			_, _, err := store.Add([]byte(v))
			require.NoError(t, err)
		}

		root, err := store.Root()
		require.NoError(t, err)
		require.Equal(t, "ec1b9828bcc1e13ea8e998121fc508f892d30e4633c3e2b460ce4f640d96e058", root.String())

		for i := uint64(0); i < 3; i++ {
			p, err := store.Proof(i)
			require.NoError(t, err)
			require.Equal(t, root, p.Root)
			require.Truef(t, p.Verify(), "Proof %d should verify", i)
		}
	})
}

func TestProofs(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, m, closeF := open(t, WithHasher(hashing.NewBlake3Hasher()))
		defer closeF()

		for n := 1; n <= 12; n++ {
			_, _, err := store.Add([]byte(fmt.Sprintf("proof-%d", n)))
			require.NoError(t, err)

			root, err := store.Root()
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				p, err := store.Proof(uint64(i))
				require.NoError(t, err)
				require.Equal(t, uint64(i), p.Index)
				require.Equal(t, root, p.Root)
				require.Truef(t, p.Verify(), "Proof %d of %d should verify", i, n)
			}
			_, err = store.Proof(uint64(n))
			require.True(t, IsNotFound(err))
		}
		require.Equal(t, float64(78), testutil.ToFloat64(m.ProofTotal))
	})
}

func TestRebuildCostIsObservable(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, m, closeF := open(t)
		defer closeF()

		hasher := hashing.NewSha256Hasher()
		values := make([][]byte, 0)
		var expected uint64
		for i := 0; i < 20; i++ {
			value := []byte(fmt.Sprintf("cost-%d", i))
			values = append(values, value)
			expected += merkle.Build(hasher, values).Digests()

			_, _, err := store.Add(value)
			require.NoError(t, err)
		}

		tree, err := store.Tree()
		require.NoError(t, err)
		require.Equal(t, uint64(41), tree.Digests(), "A 20 leaf build hashes every leaf and every parent")
		require.Equal(t, float64(expected), testutil.ToFloat64(m.DigestsTotal), "Every add rebuilds the whole tree")
		require.Equal(t, float64(20), testutil.ToFloat64(m.Leaves))
	})
}

func TestConcurrentAdds(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		const writers, adds = 8, 25
		indices := make(chan uint64, writers*adds)

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < adds; i++ {
					index, _, err := store.Add([]byte(fmt.Sprintf("writer-%d-%d", w, i)))
					if !assert.NoError(t, err) {
						return
					}
					indices <- index
				}
			}(w)
		}

		done := make(chan struct{})
		var readers sync.WaitGroup
		for r := 0; r < 4; r++ {
			readers.Add(1)
			go func() {
				defer readers.Done()
				for {
					select {
					case <-done:
						return
					default:
					}
					snapshot, err := store.Snapshot()
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, uint64(len(snapshot.Commitments)), snapshot.Tree.LeafCount())
					for i, c := range snapshot.Commitments {
						assert.Equal(t, uint64(i), c.Index)
					}
				}
			}()
		}

		wg.Wait()
		close(done)
		readers.Wait()
		close(indices)

		seen := make(map[uint64]bool)
		for index := range indices {
			require.False(t, seen[index], "Index %d assigned twice", index)
			seen[index] = true
		}
		for i := uint64(0); i < writers*adds; i++ {
			require.True(t, seen[i], "Index %d was skipped", i)
		}

		snapshot, err := store.Snapshot()
		require.NoError(t, err)
		values := make([][]byte, len(snapshot.Commitments))
		for i, c := range snapshot.Commitments {
			values[i] = c.Value
		}
		expected, err := merkle.Build(hashing.NewSha256Hasher(), values).RootDigest()
		require.NoError(t, err)
		root, err := store.Root()
		require.NoError(t, err)
		require.Equal(t, expected, root)
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		_, _, err := store.Add([]byte("original"))
		require.NoError(t, err)

		snapshot, err := store.Snapshot()
		require.NoError(t, err)
		snapshot.Commitments[0].Value[0] = 'X'

		_, _, err = store.Add([]byte("later"))
		require.NoError(t, err)
		require.Len(t, snapshot.Commitments, 1)
		require.Equal(t, uint64(1), snapshot.Tree.LeafCount())

		c, err := store.Get(0)
		require.NoError(t, err)
		require.Equal(t, []byte("original"), c.Value)
	})
}

func TestReturnedDigestsAreCopies(t *testing.T) {
	forEachStore(t, func(t *testing.T, open openF) {
		store, _, closeF := open(t)
		defer closeF()

		_, _, err := store.Add([]byte("a"))
		require.NoError(t, err)
		_, added, err := store.Add([]byte("b"))
		require.NoError(t, err)
		expected := append(hashing.Digest(nil), added...)

		added[0] ^= 0xff
		root, err := store.Root()
		require.NoError(t, err)
		root[1] ^= 0xff
		c, err := store.Get(1)
		require.NoError(t, err)
		c.MerkleRoot[2] ^= 0xff

		c, err = store.Get(1)
		require.NoError(t, err)
		require.Equal(t, expected, c.MerkleRoot, "The commitment root must not change")

		root, err = store.Root()
		require.NoError(t, err)
		require.Equal(t, expected, root, "The current root must not change")

		p, err := store.Proof(0)
		require.NoError(t, err)
		require.Equal(t, expected, p.Root)
		require.True(t, p.Verify())
	})
}

func TestKVStoreRequiresAnEmptyStore(t *testing.T) {
	kv := bplus.NewBPlusTreeStore()
	defer kv.Close()

	require.NoError(t, kv.Mutate([]*storage.Mutation{
		storage.NewMutation(storage.CommitmentTable, []byte{0}, []byte("left over")),
	}))

	_, err := NewKVStore(kv, WithLogger(silent))
	require.Error(t, err)
}

func TestValidateValue(t *testing.T) {
	require.NoError(t, ValidateValue([]byte("x"), DefaultMaxValueSize))
	require.NoError(t, ValidateValue(make([]byte, DefaultMaxValueSize), DefaultMaxValueSize))
	require.True(t, IsInvalidInput(ValidateValue(make([]byte, DefaultMaxValueSize+1), DefaultMaxValueSize)))
	require.True(t, IsInvalidInput(ValidateValue(nil, DefaultMaxValueSize)))
	require.False(t, IsNotFound(ValidateValue(nil, DefaultMaxValueSize)))
}
