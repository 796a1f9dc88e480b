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
	"github.com/pkg/errors"
)

// DefaultMaxValueSize is the largest value accepted by default, in bytes.
const DefaultMaxValueSize = 1000000

var (
	// ErrNotFound is returned when the requested commitment, or the root of
	// an empty log, does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for values rejected before any mutation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTreeBuild signals a broken invariant while building a tree.
	ErrTreeBuild = errors.New("tree build error")
	// ErrInternal is returned for any other failure, such as a storage error.
	ErrInternal = errors.New("internal error")
)

// ValidateValue checks a value before it is committed: it must not be empty
// and must not exceed maxSize bytes.
func ValidateValue(value []byte, maxSize int) error {
	if len(value) == 0 {
		return errors.Wrap(ErrInvalidInput, "value cannot be empty")
	}
	if len(value) > maxSize {
		return errors.Wrapf(ErrInvalidInput, "value of %d bytes exceeds the maximum of %d", len(value), maxSize)
	}
	return nil
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is, or wraps, ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTreeBuild reports whether err is, or wraps, ErrTreeBuild.
func IsTreeBuild(err error) bool {
	return errors.Is(err, ErrTreeBuild)
}
