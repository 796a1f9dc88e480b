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

// Package storage holds a behavioural test suite shared by every
// storage.Store implementation.
package storage

import (
	"testing"

	"github.com/bbva/commitd/storage"
	"github.com/bbva/commitd/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// OpenF opens an empty store and returns it along with a function that
// closes and removes it.
type OpenF func() (storage.Store, func())

// RunStoreSuite runs the common store tests against the stores returned by
// open.
func RunStoreSuite(t *testing.T, open OpenF) {
	t.Run("mutate", func(t *testing.T) { testMutate(t, open) })
	t.Run("get", func(t *testing.T) { testGetExistentKey(t, open) })
	t.Run("get range", func(t *testing.T) { testGetRange(t, open) })
	t.Run("get all", func(t *testing.T) { testGetAll(t, open) })
	t.Run("get last", func(t *testing.T) { testGetLast(t, open) })
}

func testMutate(t *testing.T, open OpenF) {
	store, closeF := open()
	defer closeF()

	tests := []struct {
		testname      string
		table         storage.Table
		key, value    []byte
		expectedError error
	}{
		{"Mutate Key=Value", storage.CommitmentTable, []byte("Key"), []byte("Value"), nil},
		{"Mutate overwrites", storage.CommitmentTable, []byte("Key"), []byte("Other"), nil},
		{"Mutate other table", storage.MetaTable, []byte("Key"), []byte("Meta"), nil},
	}

	for _, test := range tests {
		err := store.Mutate([]*storage.Mutation{
			storage.NewMutation(test.table, test.key, test.value),
		})
		require.Equalf(t, test.expectedError, err, "Error mutating in test: %s", test.testname)
		kv, err := store.Get(test.table, test.key)
		require.Equalf(t, test.expectedError, err, "Error getting key in test: %s", test.testname)
		require.Equalf(t, test.value, kv.Value, "Wrong value in test: %s", test.testname)
	}
}

func testGetExistentKey(t *testing.T, open OpenF) {
	store, closeF := open()
	defer closeF()

	testCases := []struct {
		table         storage.Table
		key, value    []byte
		expectedError error
	}{
		{storage.CommitmentTable, []byte("Key1"), []byte("Value1"), nil},
		{storage.CommitmentTable, []byte("Key2"), []byte("Value2"), nil},
		{storage.MetaTable, []byte("Key3"), []byte("Value3"), nil},
		{storage.MetaTable, []byte("Key4"), []byte("Value4"), storage.ErrKeyNotFound},
	}

	for _, test := range testCases {
		if test.expectedError == nil {
			err := store.Mutate([]*storage.Mutation{
				storage.NewMutation(test.table, test.key, test.value),
			})
			require.NoError(t, err)
		}

		stored, err := store.Get(test.table, test.key)
		if test.expectedError == nil {
			require.NoError(t, err)
			require.Equalf(t, test.key, stored.Key, "The stored key does not match the original: expected %d, actual %d", test.key, stored.Key)
			require.Equalf(t, test.value, stored.Value, "The stored value does not match the original: expected %d, actual %d", test.value, stored.Value)
		} else {
			require.Equal(t, test.expectedError, err)
		}
	}

	_, err := store.Get(storage.CommitmentTable, []byte("Key3"))
	require.Equal(t, storage.ErrKeyNotFound, err, "Tables must not share keys")
}

func testGetRange(t *testing.T, open OpenF) {
	store, closeF := open()
	defer closeF()

	var testCases = []struct {
		size       int
		start, end byte
	}{
		{40, 10, 50},
		{0, 1, 9},
		{11, 1, 20},
		{10, 40, 60},
		{0, 60, 100},
		{0, 20, 10},
	}

	table := storage.CommitmentTable
	for i := 10; i < 50; i++ {
		err := store.Mutate([]*storage.Mutation{
			storage.NewMutation(table, []byte{byte(i)}, []byte("Value")),
		})
		require.NoError(t, err)
	}
	err := store.Mutate([]*storage.Mutation{
		storage.NewMutation(storage.MetaTable, []byte{byte(15)}, []byte("Meta")),
	})
	require.NoError(t, err)

	for i, test := range testCases {
		slice, err := store.GetRange(table, []byte{test.start}, []byte{test.end})
		require.NoError(t, err)
		require.Equalf(t, test.size, len(slice), "Slice length invalid in test case %d", i)
	}
}

func testGetAll(t *testing.T, open OpenF) {
	table := storage.CommitmentTable
	numElems := uint64(1000)
	testCases := []struct {
		batchSize    int
		numBatches   int
		lastBatchLen int
	}{
		{10, 100, 10},
		{20, 50, 20},
		{17, 59, 14},
	}

	store, closeF := open()
	defer closeF()

	for i := uint64(0); i < numElems; i++ {
		key := util.Uint64AsBytes(i)
		err := store.Mutate([]*storage.Mutation{
			storage.NewMutation(table, key, key),
		})
		require.NoError(t, err)
	}
	err := store.Mutate([]*storage.Mutation{
		storage.NewMutation(storage.MetaTable, []byte("other"), []byte("table")),
	})
	require.NoError(t, err)

	for i, c := range testCases {
		reader := store.GetAll(table)
		numBatches := 0
		var lastBatchLen int
		next := uint64(0)
		for {
			entries := make([]*storage.KVPair, c.batchSize)
			n, err := reader.Read(entries)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			for _, e := range entries[:n] {
				require.Equalf(t, next, util.BytesAsUint64(e.Key), "Keys must be read in order in test case %d", i)
				next++
			}
			numBatches++
			lastBatchLen = n
		}
		reader.Close()
		assert.Equalf(t, c.numBatches, numBatches, "The number of batches should match for test case %d", i)
		assert.Equalf(t, c.lastBatchLen, lastBatchLen, "The size of the last batch len should match for test case %d", i)
	}
}

func testGetLast(t *testing.T, open OpenF) {
	store, closeF := open()
	defer closeF()

	_, err := store.GetLast(storage.CommitmentTable)
	require.Equal(t, storage.ErrKeyNotFound, err)

	numElems := uint64(20)
	tables := []storage.Table{storage.DefaultTable, storage.CommitmentTable, storage.MetaTable}
	for _, table := range tables {
		for i := uint64(0); i < numElems; i++ {
			key := util.Uint64AsBytes(i)
			key[0] = byte(table)
			err := store.Mutate([]*storage.Mutation{
				storage.NewMutation(table, key, key),
			})
			require.NoError(t, err)
		}
	}

	for _, table := range tables {
		kv, err := store.GetLast(table)
		require.NoError(t, err)
		key := util.Uint64AsBytes(numElems - 1)
		key[0] = byte(table)
		require.Equalf(t, key, kv.Key, "The key should match the last inserted element of %s", table)
		require.Equalf(t, key, kv.Value, "The value should match the last inserted element of %s", table)
	}
}
