// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package generations

// Set is a fixed-capacity set of keys in [0, capacity) supporting O(1) Reset.
// It is a Map without values: each slot holds only a generation tag.
type Set[G Generation] struct {
	m Map[struct{}, G]
}

// NewSet constructs a new Set with the specified capacity. It panics under
// the same conditions as New.
func NewSet[G Generation](capacity int, options ...option[struct{}, G]) *Set[G] {
	s, err := NewSetChecked[G](capacity, options...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSetChecked is like NewSet, but returns an error rather than panicking.
func NewSetChecked[G Generation](capacity int, options ...option[struct{}, G]) (*Set[G], error) {
	s := &Set[G]{}
	if err := s.m.init(capacity, options...); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the slot memory back to the configured allocator.
func (s *Set[G]) Close() {
	s.m.Close()
}

// Insert adds key to the set. It is a no-op if key is out of range.
func (s *Set[G]) Insert(key int) {
	s.m.Set(key, struct{}{})
}

// Contains reports whether key was inserted since the last Reset.
func (s *Set[G]) Contains(key int) bool {
	_, ok := s.m.Get(key)
	return ok
}

// InsertChecked is like Insert, but returns an error wrapping ErrOutOfRange
// if key is out of range.
func (s *Set[G]) InsertChecked(key int) error {
	return s.m.SetChecked(key, struct{}{})
}

// ContainsChecked is like Contains, but returns an error wrapping
// ErrOutOfRange if key is out of range.
func (s *Set[G]) ContainsChecked(key int) (bool, error) {
	_, ok, err := s.m.GetChecked(key)
	return ok, err
}

// UncheckedInsert is like Insert without the bounds check. The caller must
// guarantee 0 <= key < Capacity().
func (s *Set[G]) UncheckedInsert(key int) {
	s.m.UncheckedSet(key, struct{}{})
}

// UncheckedContains is like Contains without the bounds check. The caller
// must guarantee 0 <= key < Capacity().
func (s *Set[G]) UncheckedContains(key int) bool {
	_, ok := s.m.UncheckedGet(key)
	return ok
}

// Reset removes all keys from the set.
func (s *Set[G]) Reset() {
	s.m.Reset()
}

// Capacity returns the number of addressable keys.
func (s *Set[G]) Capacity() int {
	return s.m.Capacity()
}

// Stats returns a snapshot of the set's statistics.
func (s *Set[G]) Stats() *Stats {
	return s.m.Stats()
}
