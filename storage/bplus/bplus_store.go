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

// Package bplus implements an in-memory storage.Store on top of a B-tree.
package bplus

import (
	"bytes"
	"sync"

	"github.com/bbva/commitd/storage"
	"github.com/google/btree"
)

type BPlusTreeStore struct {
	mu sync.RWMutex
	db *btree.BTree
}

func NewBPlusTreeStore() *BPlusTreeStore {
	return &BPlusTreeStore{db: btree.New(2)}
}

func (s *BPlusTreeStore) Mutate(mutations []*storage.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mutations {
		key := append([]byte{m.Table.Prefix()}, m.Key...)
		s.db.ReplaceOrInsert(KVItem{key, clone(m.Value)})
	}
	return nil
}

func (s *BPlusTreeStore) GetRange(table storage.Table, start, end []byte) (storage.KVRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := storage.NewKVRange()
	startKey := append([]byte{table.Prefix()}, start...)
	endKey := append([]byte{table.Prefix()}, end...)
	s.db.AscendGreaterOrEqual(KVItem{startKey, nil}, func(i btree.Item) bool {
		item := i.(KVItem)
		if bytes.Compare(item.Key, endKey) > 0 {
			return false
		}
		result = append(result, storage.NewKVPair(clone(item.Key[1:]), clone(item.Value)))
		return true
	})
	return result, nil
}

func (s *BPlusTreeStore) Get(table storage.Table, key []byte) (*storage.KVPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := append([]byte{table.Prefix()}, key...)
	item := s.db.Get(KVItem{k, nil})
	if item == nil {
		return nil, storage.ErrKeyNotFound
	}
	return &storage.KVPair{Key: clone(key), Value: clone(item.(KVItem).Value)}, nil
}

func (s *BPlusTreeStore) GetLast(table storage.Table) (*storage.KVPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result *storage.KVPair
	prefix := table.Prefix()
	visit := func(i btree.Item) bool {
		item := i.(KVItem)
		if item.Key[0] == prefix && len(item.Key) > 1 {
			result = &storage.KVPair{Key: clone(item.Key[1:]), Value: clone(item.Value)}
		}
		return false
	}
	if prefix == 0xff {
		s.db.Descend(visit)
	} else {
		s.db.DescendLessOrEqual(KVItem{[]byte{prefix + 1}, nil}, func(i btree.Item) bool {
			if bytes.Equal(i.(KVItem).Key, []byte{prefix + 1}) {
				return true
			}
			return visit(i)
		})
	}
	if result == nil {
		return nil, storage.ErrKeyNotFound
	}
	return result, nil
}

// GetAll returns a reader over a copy-on-write snapshot of the table, so
// concurrent mutations are not observed by the reader.
func (s *BPlusTreeStore) GetAll(table storage.Table) storage.KVPairReader {
	s.mu.Lock()
	snapshot := s.db.Clone()
	s.mu.Unlock()
	return NewBPlusKVPairReader(table, snapshot)
}

func (s *BPlusTreeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.Clear(false)
	return nil
}

// clone copies b. Items never share memory with callers.
func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

type KVItem struct {
	Key, Value []byte
}

func (p KVItem) Less(b btree.Item) bool {
	return bytes.Compare(p.Key, b.(KVItem).Key) < 0
}

type BPlusKVPairReader struct {
	prefix  byte
	db      *btree.BTree
	lastKey []byte
}

func NewBPlusKVPairReader(table storage.Table, db *btree.BTree) *BPlusKVPairReader {
	return &BPlusKVPairReader{
		prefix:  table.Prefix(),
		db:      db,
		lastKey: []byte{table.Prefix()},
	}
}

func (r *BPlusKVPairReader) Read(buffer []*storage.KVPair) (n int, err error) {
	if r.db == nil {
		return 0, nil
	}
	r.db.AscendGreaterOrEqual(KVItem{r.lastKey, nil}, func(i btree.Item) bool {
		if n >= len(buffer) {
			return false
		}
		key := i.(KVItem).Key
		if key[0] != r.prefix {
			return false
		}
		if !bytes.Equal(key, r.lastKey) {
			buffer[n] = &storage.KVPair{Key: clone(key[1:]), Value: clone(i.(KVItem).Value)}
			n++
		}
		r.lastKey = key
		return true
	})
	return n, nil
}

func (r *BPlusKVPairReader) Close() {
	r.db = nil
}
