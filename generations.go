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

// package generations provides fixed-capacity containers keyed by small
// integers that can be cleared in O(1). They are intended for workloads that
// repeatedly populate and clear a scratch table, such as the "visited" set or
// the distance table of a graph search that is reset between queries, and
// that never need to enumerate the live entries.
//
// # Generations
//
// A Map is a slice of slots indexed directly by key. Every slot carries a
// generation tag next to its value and the Map carries a single current
// generation. A slot is live iff its tag equals the current generation. Set
// stamps the current generation onto the slot together with the value, and
// Get compares the tag of the slot against the current generation. Reset
// increments the current generation which turns every slot stale at once
// without touching slot memory.
//
// Slots start out with generation 0 while the Map starts at generation 1, so
// a freshly constructed Map has no live slots. When the current generation
// reaches the maximum value representable by its type, Reset zeroes the tag
// of every slot and restarts at generation 1. This O(capacity) pass happens
// once every 2^w-1 resets for a w-bit generation, so Reset is O(1) amortized.
// The generation type is a type parameter: a narrow generation saves memory
// per slot at the cost of more frequent wraparounds.
//
//	              current generation = 7
//	+---------+---------+---------+---------+
//	| gen=7   | gen=3   | gen=0   | gen=7   |
//	| val=42  | val=11  | val=0   | val=9   |
//	+---------+---------+---------+---------+
//	  live      stale     stale     live
//
// # Comparison with sparse sets
//
// A sparse set (https://research.swtch.com/sparse) also clears in O(1), but
// keeps a sparse index array and a dense entry array, so every lookup and
// insert touches two memory locations and performs two bounds checks. In
// exchange it can enumerate its members. A generations Map gives up
// enumeration, and the count of live entries, so that Set and Get touch a
// single slot: Set is a blind write and Get is a single read.
//
// # Out of range keys
//
// The valid keys of a Map are [0, Capacity()). Set and Get treat any other
// key as absent: Set is a no-op and Get reports not found. SetChecked and
// GetChecked return an error wrapping ErrOutOfRange instead. UncheckedSet and
// UncheckedGet skip the bounds check entirely and require the caller to
// guarantee the key is valid.
//
// # Concurrency
//
// Maps and Sets are not safe for concurrent use. None of the operations block
// and there is no background work. Use one container per goroutine or guard
// it with an external mutex.
package generations

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/exp/constraints"
)

const debug = false

// Generation is the set of types usable as a generation tag. The width of the
// type determines the per-slot overhead and how often Reset has to perform a
// full pass over the slots.
type Generation interface {
	constraints.Unsigned
}

// Slot holds a value and its generation tag.
type Slot[V any, G Generation] struct {
	// NB: value precedes gen so that a zero-sized V does not add trailing
	// padding. A Set slot is exactly the size of G.
	value V
	gen   G
}

// Map is a fixed-capacity container mapping keys in [0, capacity) to values
// of type V, using generation tags of type G to support O(1) Reset.
type Map[V any, G Generation] struct {
	// slots is capacity in length. The memory is owned by allocator.
	slots []Slot[V, G]
	// unchecked aliases slots for UncheckedSet and UncheckedGet.
	unchecked unsafeSlice[Slot[V, G]]
	// gen is the current generation. It is never 0.
	gen       G
	allocator Allocator[V, G]

	// Counters reported by Stats. They are only touched by Reset.
	resets      uint64
	wraparounds uint64
	statsDebug  bool
}

// New constructs a new Map with the specified capacity. All keys are absent
// in the new Map. New panics if capacity is negative or if the configured
// Allocator fails to provide the requested slots. Use NewChecked to get an
// error instead.
func New[V any, G Generation](capacity int, options ...option[V, G]) *Map[V, G] {
	m, err := NewChecked[V, G](capacity, options...)
	if err != nil {
		panic(err)
	}
	return m
}

// NewChecked is like New, but returns ErrInvalidCapacity or ErrAllocation
// rather than panicking.
func NewChecked[V any, G Generation](capacity int, options ...option[V, G]) (*Map[V, G], error) {
	m := &Map[V, G]{}
	if err := m.init(capacity, options...); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map[V, G]) init(capacity int, options ...option[V, G]) error {
	if capacity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	*m = Map[V, G]{
		gen:       1,
		allocator: defaultAllocator[V, G]{},
	}
	for _, op := range options {
		op.apply(m)
	}

	if capacity > 0 {
		slots := m.allocator.AllocSlots(capacity)
		if len(slots) != capacity {
			if slots != nil {
				m.allocator.FreeSlots(slots)
			}
			return fmt.Errorf("%w: requested %d slots, allocator returned %d",
				ErrAllocation, capacity, len(slots))
		}
		if _, ok := m.allocator.(defaultAllocator[V, G]); !ok {
			// Memory from a custom allocator may be recycled. Stale tags could
			// equal the current generation.
			clear(slots)
		}
		m.slots = slots
		m.unchecked = makeUnsafeSlice(slots)
	}

	m.checkInvariants()
	return nil
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator.
// After Close the map has zero capacity and every key is out of range. Close
// is idempotent.
func (m *Map[V, G]) Close() {
	if debug {
		fmt.Printf("close: capacity=%d gen=%d\n", len(m.slots), m.gen)
	}
	if m.allocator != nil && m.slots != nil {
		m.allocator.FreeSlots(m.slots)
	}
	m.slots = nil
	m.unchecked = makeUnsafeSlice([]Slot[V, G](nil))
	m.allocator = nil
}

// Set associates value with key. Any value previously stored for key, live
// or stale, is overwritten. Set is a no-op if key is out of range.
func (m *Map[V, G]) Set(key int, value V) {
	// NB: The uint conversion folds the negative key check into the upper
	// bound check and lets the compiler eliminate the slice bounds check.
	if uint(key) >= uint(len(m.slots)) {
		return
	}
	m.slots[key] = Slot[V, G]{gen: m.gen, value: value}
}

// Get retrieves the value for key, returning ok=false if key was not Set
// since the last Reset or is out of range.
func (m *Map[V, G]) Get(key int) (value V, ok bool) {
	if uint(key) >= uint(len(m.slots)) {
		return value, false
	}
	s := &m.slots[key]
	if s.gen != m.gen {
		// The stale value is never returned.
		return value, false
	}
	return s.value, true
}

// SetChecked is like Set, but returns an error wrapping ErrOutOfRange if key
// is out of range.
func (m *Map[V, G]) SetChecked(key int, value V) error {
	if uint(key) >= uint(len(m.slots)) {
		return m.outOfRange(key)
	}
	m.slots[key] = Slot[V, G]{gen: m.gen, value: value}
	return nil
}

// GetChecked is like Get, but returns an error wrapping ErrOutOfRange if key
// is out of range.
func (m *Map[V, G]) GetChecked(key int) (value V, ok bool, err error) {
	if uint(key) >= uint(len(m.slots)) {
		return value, false, m.outOfRange(key)
	}
	value, ok = m.Get(key)
	return value, ok, nil
}

// UncheckedSet is like Set but performs no bounds check. The caller must
// guarantee 0 <= key < Capacity(). Violating this corrupts memory.
func (m *Map[V, G]) UncheckedSet(key int, value V) {
	if invariants && uint(key) >= uint(len(m.slots)) {
		panic(fmt.Sprintf("invariant failed: unchecked set of key %d, capacity %d", key, len(m.slots)))
	}
	*m.unchecked.At(uintptr(key)) = Slot[V, G]{gen: m.gen, value: value}
}

// UncheckedGet is like Get but performs no bounds check. The caller must
// guarantee 0 <= key < Capacity().
func (m *Map[V, G]) UncheckedGet(key int) (value V, ok bool) {
	if invariants && uint(key) >= uint(len(m.slots)) {
		panic(fmt.Sprintf("invariant failed: unchecked get of key %d, capacity %d", key, len(m.slots)))
	}
	s := m.unchecked.At(uintptr(key))
	if s.gen != m.gen {
		return value, false
	}
	return s.value, true
}

// Reset removes all entries from the map. It is O(1) except when the current
// generation has reached its maximum value, in which case every slot is
// visited once.
func (m *Map[V, G]) Reset() {
	m.resets++
	if m.gen == maxGeneration[G]() {
		m.wraparound()
	} else {
		m.gen++
	}
	m.checkInvariants()
}

// wraparound zeroes the generation of every slot and restarts the current
// generation at 1. Values are left in place; they are unreachable because no
// slot carries the current generation.
func (m *Map[V, G]) wraparound() {
	if debug {
		fmt.Printf("reset(wraparound): capacity=%d gen=%d wraparounds=%d\n",
			len(m.slots), m.gen, m.wraparounds)
	}
	for i := range m.slots {
		m.slots[i].gen = 0
	}
	m.gen = 1
	m.wraparounds++
}

// Capacity returns the number of addressable keys. Keys in [0, Capacity())
// are valid.
func (m *Map[V, G]) Capacity() int {
	return len(m.slots)
}

func (m *Map[V, G]) outOfRange(key int) error {
	return fmt.Errorf("%w: key %d, capacity %d", ErrOutOfRange, key, len(m.slots))
}

// maxGeneration returns the largest value representable by G.
func maxGeneration[G Generation]() G {
	return ^G(0)
}

// generationBits returns the width of G in bits.
func generationBits[G Generation]() int {
	var g G
	return int(unsafe.Sizeof(g)) * 8
}

func (m *Map[V, G]) checkInvariants() {
	if invariants {
		if m.gen == 0 {
			panic(fmt.Sprintf("invariant failed: current generation is 0\n%s", m.debugString()))
		}
		// Generations only grow between wraparounds, so no slot can be ahead
		// of the map.
		for i := range m.slots {
			if g := m.slots[i].gen; g > m.gen {
				panic(fmt.Sprintf("invariant failed: slot(%d): generation %d > current generation %d\n%s",
					i, g, m.gen, m.debugString()))
			}
		}
	}
}

func (m *Map[V, G]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  gen=%d  resets=%d  wraparounds=%d\n",
		len(m.slots), m.gen, m.resets, m.wraparounds)
	for i := range m.slots {
		s := &m.slots[i]
		switch {
		case s.gen == m.gen:
			fmt.Fprintf(&buf, "  %4d: %v [gen=%d]\n", i, s.value, s.gen)
		case s.gen == 0:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		default:
			fmt.Fprintf(&buf, "  %4d: stale [gen=%d]\n", i, s.gen)
		}
	}
	return buf.String()
}
