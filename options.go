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

// option provide an interface to do work on Map while it is being created.
type option[V any, G Generation] interface {
	apply(m *Map[V, G])
}

// Allocator specifies an interface for allocating and releasing the slot
// memory used by a Map or Set. The default allocator utilizes Go's builtin
// make() and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then Close must be called in order to ensure FreeSlots is called.
type Allocator[V any, G Generation] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[V,G], n).
	// Recycled memory is permitted: the generation of every returned slot is
	// zeroed before use.
	AllocSlots(n int) []Slot[V, G]

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[V, G])
}

type defaultAllocator[V any, G Generation] struct{}

func (defaultAllocator[V, G]) AllocSlots(n int) []Slot[V, G] {
	return make([]Slot[V, G], n)
}

func (defaultAllocator[V, G]) FreeSlots(v []Slot[V, G]) {
}

type allocatorOption[V any, G Generation] struct {
	allocator Allocator[V, G]
}

func (op allocatorOption[V, G]) apply(m *Map[V, G]) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[V,G].
// A Set[G] takes an Allocator[struct{}, G].
func WithAllocator[V any, G Generation](allocator Allocator[V, G]) option[V, G] {
	return allocatorOption[V, G]{allocator}
}

type statsDebugOption[V any, G Generation] struct{}

func (statsDebugOption[V, G]) apply(m *Map[V, G]) {
	m.statsDebug = true
}

// WithStatsDebug is an option that makes Stats scan every slot and report
// how many are live, stale and untouched. The scan is O(capacity) and is only
// paid by callers of Stats.
func WithStatsDebug[V any, G Generation]() option[V, G] {
	return statsDebugOption[V, G]{}
}
