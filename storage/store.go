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

// Package storage defines the key-value abstraction commitments are kept in.
package storage

import (
	"errors"
)

// Table groups keys under a one byte prefix.
type Table uint32

const (
	// DefaultTable is used for keys with no specific table.
	DefaultTable Table = iota
	// CommitmentTable holds committed values indexed by position.
	CommitmentTable
	// MetaTable holds store wide metadata.
	MetaTable
)

// String returns a string representation of the table.
func (t Table) String() string {
	var s string
	switch t {
	case DefaultTable:
		s = "default"
	case CommitmentTable:
		s = "commitments"
	case MetaTable:
		s = "meta"
	default:
		s = "unknown"
	}
	return s
}

// Prefix returns the byte prepended to every key of the table.
func (t Table) Prefix() byte {
	return byte(t)
}

var (
	ErrKeyNotFound = errors.New("key not found")
)

// Store is an ordered key-value store partitioned in tables. Mutations
// are applied atomically.
type Store interface {
	Mutate(mutations []*Mutation) error
	GetRange(table Table, start, end []byte) (KVRange, error)
	Get(table Table, key []byte) (*KVPair, error)
	GetAll(table Table) KVPairReader
	GetLast(table Table) (*KVPair, error)
	Close() error
}

type Mutation struct {
	Table      Table
	Key, Value []byte
}

func NewMutation(table Table, key, value []byte) *Mutation {
	return &Mutation{table, key, value}
}

type KVPair struct {
	Key, Value []byte
}

func NewKVPair(key, value []byte) KVPair {
	return KVPair{Key: key, Value: value}
}

// KVPairReader iterates over a consistent view of a table. Read fills the
// buffer and returns how many pairs were read, zero once exhausted.
type KVPairReader interface {
	Read([]*KVPair) (n int, err error)
	Close()
}

type KVRange []KVPair

func NewKVRange() KVRange {
	return make(KVRange, 0)
}
